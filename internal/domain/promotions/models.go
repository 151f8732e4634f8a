package promotions

import "time"

type Promotion struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	Code            string    `json:"code"`
	Description     string    `json:"description,omitempty"`
	DiscountPercent int       `json:"discountPercent"`
	StartsAt        time.Time `json:"startsAt"`
	EndsAt          time.Time `json:"endsAt"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Redeemable reports whether the promotion can be applied at the given
// moment. The window is inclusive of StartsAt and exclusive of EndsAt.
func (p Promotion) Redeemable(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}
