package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bizdesk/internal/domain/auth"
)

type stubResolver struct {
	allowed map[string]bool
}

func (s stubResolver) Allowed(ctx context.Context, tenantID string, role auth.Role, keys ...string) bool {
	if role == auth.RoleOwner {
		return true
	}
	for _, key := range keys {
		if s.allowed[key] {
			return true
		}
	}
	return false
}

func requestAs(role auth.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", Role: role})
	return req.WithContext(ctx)
}

func TestRequireRoleNoIdentity(t *testing.T) {
	handler := RequireRole(auth.RoleEmployee)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		caller   auth.Role
		required auth.Role
		want     int
	}{
		{"exact role passes", auth.RoleManager, auth.RoleManager, http.StatusOK},
		{"higher role passes", auth.RoleOwner, auth.RoleEmployee, http.StatusOK},
		{"administrator passes manager gate", auth.RoleAdministrator, auth.RoleManager, http.StatusOK},
		{"lower role denied", auth.RoleEmployee, auth.RoleManager, http.StatusForbidden},
		{"unknown role denied", auth.Role("superuser"), auth.RoleEmployee, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := RequireRole(tc.required)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, requestAs(tc.caller))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusOK && !called {
				t.Fatal("expected handler to run")
			}
		})
	}
}

func TestRequirePermissionUnauthorized(t *testing.T) {
	handler := RequirePermission(stubResolver{}, auth.PermContactsView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermissionDenied(t *testing.T) {
	resolver := stubResolver{allowed: map[string]bool{}}
	handler := RequirePermission(resolver, auth.PermContactsDel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(auth.RoleManager))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequirePermissionOrSemantics(t *testing.T) {
	resolver := stubResolver{allowed: map[string]bool{auth.PermContactsDel: true}}
	called := false
	handler := RequirePermission(resolver, auth.PermContactsDel, auth.PermUsersDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(auth.RoleManager))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("one granted key should pass the gate, got %d", rec.Code)
	}
}

func TestRequirePermissionOwnerBypass(t *testing.T) {
	resolver := stubResolver{allowed: map[string]bool{}}
	called := false
	handler := RequirePermission(resolver, auth.PermBillingManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(auth.RoleOwner))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("owner should pass every permission gate, got %d", rec.Code)
	}
}
