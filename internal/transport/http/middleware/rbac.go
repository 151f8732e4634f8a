package middleware

import (
	"context"
	"net/http"
	"strings"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/transport/http/api"
)

// PermissionResolver is satisfied by *auth.Resolver.
type PermissionResolver interface {
	Allowed(ctx context.Context, tenantID string, role auth.Role, keys ...string) bool
}

// RequireRole gates a route on the role hierarchy: the caller passes when
// it matches or outranks at least one of the acceptable roles. No identity
// yields 401, insufficient rank 403.
func RequireRole(acceptable ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}

			if !auth.AtLeastAny(user.Role, acceptable...) {
				api.Fail(w, http.StatusForbidden, "forbidden",
					"requires role "+joinRoles(acceptable)+", caller has role "+string(user.Role),
					GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission gates a route on fine-grained permission keys resolved
// against the tenant's effective permission set. Multiple keys are OR-ed:
// holding any one of them passes.
func RequirePermission(resolver PermissionResolver, keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}

			if !resolver.Allowed(r.Context(), user.TenantID, user.Role, keys...) {
				api.Fail(w, http.StatusForbidden, "forbidden",
					"requires permission "+strings.Join(keys, " or ")+", caller has role "+string(user.Role),
					GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinRoles(roles []auth.Role) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, " or ")
}
