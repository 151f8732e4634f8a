package auth

import (
	"context"
	"errors"
	"log/slog"
)

// Resolver computes the effective permission set for one request by merging
// the tenant's stored override on top of the default matrix. The merged set
// is never persisted; it is recomputed per request and discarded.
type Resolver struct {
	Overrides OverrideStore
}

func NewResolver(store OverrideStore) *Resolver {
	return &Resolver{Overrides: store}
}

// Effective returns the merged key -> granted map for (tenant, role).
// Owner always gets the full set and is not customizable. Any problem
// loading the override (missing table, malformed payload, wrong version)
// degrades to defaults; permission checks must never abort a request.
func (r *Resolver) Effective(ctx context.Context, tenantID string, role Role) map[string]bool {
	if role == RoleOwner {
		grants := make(map[string]bool, len(catalog))
		for _, def := range catalog {
			grants[def.Key] = true
		}
		return grants
	}

	grants := DefaultGrants(role)
	if r.Overrides == nil {
		return grants
	}

	doc, err := r.Overrides.GetOverride(ctx, tenantID, role)
	if err != nil {
		if !errors.Is(err, ErrOverrideNotFound) {
			slog.Warn("permission override unavailable, falling back to defaults",
				"tenantId", tenantID, "role", role, "err", err)
		}
		return grants
	}

	for key, granted := range doc.Grants {
		grants[key] = granted
	}
	return grants
}

// Allowed reports whether the role holds at least one of the required keys
// (OR semantics, so a route can ask for "edit or admin-override"). Missing
// and unknown keys count as not granted. Owner is allowed unconditionally.
func (r *Resolver) Allowed(ctx context.Context, tenantID string, role Role, keys ...string) bool {
	if role == RoleOwner {
		return true
	}
	if len(keys) == 0 {
		return false
	}
	effective := r.Effective(ctx, tenantID, role)
	for _, key := range keys {
		if effective[key] {
			return true
		}
	}
	return false
}
