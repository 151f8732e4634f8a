package tenant

import (
	"time"

	"bizdesk/internal/domain/auth"
)

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      auth.Role  `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
