package tenant

import (
	"context"
	"time"
)

type LimitKind string

const (
	LimitUsers    LimitKind = "users"
	LimitContacts LimitKind = "contacts"
	LimitEmails   LimitKind = "emails"
)

// LimitOverride is a per-tenant custom quota row. A nil ExpiresAt never
// expires. Limit 0 means unlimited.
type LimitOverride struct {
	Kind      LimitKind
	Limit     int
	ExpiresAt *time.Time
}

// Free-tier quotas apply when a tenant has no subscription row at all.
var freeFallback = map[LimitKind]int{
	LimitUsers:    3,
	LimitContacts: 250,
	LimitEmails:   500,
}

// EffectiveLimit picks the applicable quota: an active, non-expired custom
// override always beats the plan-derived limit, which beats the free-tier
// fallback.
func EffectiveLimit(override *LimitOverride, now time.Time, planLimit int, planFound bool, kind LimitKind) int {
	if override != nil && (override.ExpiresAt == nil || override.ExpiresAt.After(now)) {
		return override.Limit
	}
	if planFound {
		return planLimit
	}
	return freeFallback[kind]
}

// WithinLimit reports whether usage plus n more stays inside the limit.
func WithinLimit(usage, n, limit int) bool {
	if limit <= 0 {
		return true
	}
	return usage+n <= limit
}

type LimitStore interface {
	LimitOverride(ctx context.Context, tenantID string, kind LimitKind) (*LimitOverride, error)
	PlanLimit(ctx context.Context, tenantID string, kind LimitKind) (int, bool, error)
	Usage(ctx context.Context, tenantID string, kind LimitKind) (int, error)
}

// Limits answers quota questions for handlers and the campaign sender.
type Limits struct {
	Store LimitStore
}

func NewLimits(store LimitStore) *Limits {
	return &Limits{Store: store}
}

func (l *Limits) Limit(ctx context.Context, tenantID string, kind LimitKind) (int, error) {
	override, err := l.Store.LimitOverride(ctx, tenantID, kind)
	if err != nil {
		return 0, err
	}
	planLimit, planFound, err := l.Store.PlanLimit(ctx, tenantID, kind)
	if err != nil {
		return 0, err
	}
	return EffectiveLimit(override, time.Now(), planLimit, planFound, kind), nil
}

func (l *Limits) Usage(ctx context.Context, tenantID string, kind LimitKind) (int, error) {
	return l.Store.Usage(ctx, tenantID, kind)
}

// CanAdd reports whether the tenant may add n more of kind, and returns the
// current usage and effective limit for quota error messages.
func (l *Limits) CanAdd(ctx context.Context, tenantID string, kind LimitKind, n int) (bool, int, int, error) {
	limit, err := l.Limit(ctx, tenantID, kind)
	if err != nil {
		return false, 0, 0, err
	}
	usage, err := l.Store.Usage(ctx, tenantID, kind)
	if err != nil {
		return false, 0, 0, err
	}
	return WithinLimit(usage, n, limit), usage, limit, nil
}
