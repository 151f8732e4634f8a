package appointments

import "time"

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	StaffID   string    `json:"staffId"`
	ContactID string    `json:"contactId,omitempty"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
