package promotions

import (
	"testing"
	"time"
)

func TestRedeemable(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	promo := Promotion{Code: "SUMMER20", DiscountPercent: 20, StartsAt: start, EndsAt: end, Active: true}

	tests := []struct {
		name   string
		now    time.Time
		active bool
		want   bool
	}{
		{"mid window", start.AddDate(0, 0, 15), true, true},
		{"at start", start, true, true},
		{"before start", start.Add(-time.Minute), true, false},
		{"at end", end, true, false},
		{"after end", end.Add(time.Hour), true, false},
		{"inactive", start.AddDate(0, 0, 15), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := promo
			p.Active = tc.active
			if got := p.Redeemable(tc.now); got != tc.want {
				t.Errorf("Redeemable(%s) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}
