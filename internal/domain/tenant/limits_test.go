package tenant

import (
	"context"
	"testing"
	"time"
)

func TestEffectiveLimitOverrideWins(t *testing.T) {
	now := time.Now()
	override := &LimitOverride{Kind: LimitContacts, Limit: 1000}

	got := EffectiveLimit(override, now, 250, true, LimitContacts)
	if got != 1000 {
		t.Fatalf("active override should beat plan limit, got %d", got)
	}
}

func TestEffectiveLimitExpiredOverrideIgnored(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Hour)
	override := &LimitOverride{Kind: LimitContacts, Limit: 1000, ExpiresAt: &expired}

	got := EffectiveLimit(override, now, 250, true, LimitContacts)
	if got != 250 {
		t.Fatalf("expired override should fall back to plan limit, got %d", got)
	}
}

func TestEffectiveLimitFutureExpiryActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	override := &LimitOverride{Kind: LimitUsers, Limit: 20, ExpiresAt: &future}

	got := EffectiveLimit(override, now, 10, true, LimitUsers)
	if got != 20 {
		t.Fatalf("unexpired override should apply, got %d", got)
	}
}

func TestEffectiveLimitFreeFallback(t *testing.T) {
	got := EffectiveLimit(nil, time.Now(), 0, false, LimitEmails)
	if got != freeFallback[LimitEmails] {
		t.Fatalf("missing subscription should use free tier, got %d", got)
	}
}

func TestWithinLimit(t *testing.T) {
	tests := []struct {
		name            string
		usage, n, limit int
		want            bool
	}{
		{"under limit", 2, 1, 3, true},
		{"at limit", 3, 1, 3, false},
		{"zero means unlimited", 1000000, 1, 0, true},
		{"batch exceeding limit", 400, 200, 500, false},
		{"batch within limit", 300, 200, 500, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := WithinLimit(tc.usage, tc.n, tc.limit); got != tc.want {
				t.Fatalf("WithinLimit(%d, %d, %d) = %v, want %v", tc.usage, tc.n, tc.limit, got, tc.want)
			}
		})
	}
}

type fakeLimitStore struct {
	override *LimitOverride
	plan     int
	planOK   bool
	usage    int
}

func (f fakeLimitStore) LimitOverride(ctx context.Context, tenantID string, kind LimitKind) (*LimitOverride, error) {
	return f.override, nil
}

func (f fakeLimitStore) PlanLimit(ctx context.Context, tenantID string, kind LimitKind) (int, bool, error) {
	return f.plan, f.planOK, nil
}

func (f fakeLimitStore) Usage(ctx context.Context, tenantID string, kind LimitKind) (int, error) {
	return f.usage, nil
}

func TestCanAddAgainstPlan(t *testing.T) {
	limits := NewLimits(fakeLimitStore{plan: 3, planOK: true, usage: 3})
	ok, usage, limit, err := limits.CanAdd(context.Background(), "t1", LimitUsers, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("a full tenant should not add another user")
	}
	if usage != 3 || limit != 3 {
		t.Fatalf("unexpected usage/limit: %d/%d", usage, limit)
	}
}

func TestCanAddWithOverride(t *testing.T) {
	limits := NewLimits(fakeLimitStore{
		override: &LimitOverride{Kind: LimitUsers, Limit: 10},
		plan:     3,
		planOK:   true,
		usage:    3,
	})
	ok, _, limit, err := limits.CanAdd(context.Background(), "t1", LimitUsers, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || limit != 10 {
		t.Fatalf("custom override should lift the plan limit, ok=%v limit=%d", ok, limit)
	}
}
