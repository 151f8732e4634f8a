package permissionshandler

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
)

type Handler struct {
	Resolver  *auth.Resolver
	Overrides auth.OverrideStore
	Audit     *audit.Store
}

func NewHandler(resolver *auth.Resolver, overrides auth.OverrideStore, auditStore *audit.Store) *Handler {
	return &Handler{Resolver: resolver, Overrides: overrides, Audit: auditStore}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/permissions", func(r chi.Router) {
		r.Get("/catalog", h.handleCatalog)
		r.Get("/effective", h.handleEffective)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermSettingsView)).Get("/roles", h.handleListRoles)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermSettingsPerms)).Put("/roles/{role}", h.handleSetOverride)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermSettingsPerms)).Delete("/roles/{role}", h.handleResetOverride)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermSettingsPerms)).Delete("/roles", h.handleResetAll)
	})
}

// handleMe returns the caller's identity, role and resolved permission
// set, so clients can render their UI from a single call after login.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"userId":   user.UserID,
		"tenantId": user.TenantID,
		"role":     user.Role,
		"grants":   h.Resolver.Effective(r.Context(), user.TenantID, user.Role),
	}, middleware.GetRequestID(r.Context()))
}

// handleCatalog lists every permission the product knows about, grouped the
// way the settings UI renders them.
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"permissions": auth.Catalog()}, middleware.GetRequestID(r.Context()))
}

// handleEffective returns the caller's resolved permission set. Callers
// holding settings.view may inspect another role with ?role=.
func (h *Handler) handleEffective(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	role := user.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, known := auth.ParseRole(raw)
		if !known {
			api.Fail(w, http.StatusBadRequest, "unknown_role", "unknown role "+raw, middleware.GetRequestID(r.Context()))
			return
		}
		if parsed != user.Role && !h.Resolver.Allowed(r.Context(), user.TenantID, user.Role, auth.PermSettingsView) {
			api.Fail(w, http.StatusForbidden, "forbidden", "requires permission "+auth.PermSettingsView, middleware.GetRequestID(r.Context()))
			return
		}
		role = parsed
	}

	api.Success(w, map[string]any{
		"role":   role,
		"grants": h.Resolver.Effective(r.Context(), user.TenantID, role),
	}, middleware.GetRequestID(r.Context()))
}

type roleMatrix struct {
	Role       auth.Role       `json:"role"`
	Customized bool            `json:"customized"`
	Grants     map[string]bool `json:"grants"`
}

// handleListRoles renders the full role/permission matrix with per-role
// customization markers.
func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	overrides, err := h.Overrides.ListOverrides(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "permissions_list_failed", "failed to list role overrides", middleware.GetRequestID(r.Context()))
		return
	}

	matrix := make([]roleMatrix, 0, len(auth.Roles()))
	for _, role := range auth.Roles() {
		_, customized := overrides[role]
		matrix = append(matrix, roleMatrix{
			Role:       role,
			Customized: customized,
			Grants:     h.Resolver.Effective(r.Context(), user.TenantID, role),
		})
	}
	api.Success(w, map[string]any{"roles": matrix}, middleware.GetRequestID(r.Context()))
}

type overrideRequest struct {
	Version int             `json:"version"`
	Grants  map[string]bool `json:"grants"`
}

func (h *Handler) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	role, ok := parseEditableRole(w, r)
	if !ok {
		return
	}

	var payload overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Version != 0 && payload.Version != auth.OverrideSchemaVersion {
		api.Fail(w, http.StatusBadRequest, "unsupported_version", "unsupported override schema version", middleware.GetRequestID(r.Context()))
		return
	}
	if len(payload.Grants) == 0 {
		api.Fail(w, http.StatusBadRequest, "empty_override", "grants must name at least one permission", middleware.GetRequestID(r.Context()))
		return
	}

	// Keys the catalog does not know are dropped, not stored: a stale UI
	// must not plant grants a future release might interpret.
	grants := make(map[string]bool, len(payload.Grants))
	var ignored []string
	for key, granted := range payload.Grants {
		if !auth.KnownPermission(key) {
			ignored = append(ignored, key)
			continue
		}
		grants[key] = granted
	}
	sort.Strings(ignored)
	if len(grants) == 0 {
		api.Fail(w, http.StatusBadRequest, "unknown_permissions", "no recognized permission keys in grants", middleware.GetRequestID(r.Context()))
		return
	}

	doc := auth.OverrideDocument{Version: auth.OverrideSchemaVersion, Grants: grants}
	if err := h.Overrides.UpsertOverride(r.Context(), user.TenantID, role, doc); err != nil {
		api.Fail(w, http.StatusInternalServerError, "override_save_failed", "failed to save role override", middleware.GetRequestID(r.Context()))
		return
	}

	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionPermissionOverrideSet, string(role),
		map[string]any{"grants": grants, "ignoredKeys": ignored})

	api.Success(w, map[string]any{
		"role":        role,
		"grants":      h.Resolver.Effective(r.Context(), user.TenantID, role),
		"ignoredKeys": ignored,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetOverride(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	role, ok := parseEditableRole(w, r)
	if !ok {
		return
	}

	if err := h.Overrides.DeleteOverrides(r.Context(), user.TenantID, role); err != nil {
		api.Fail(w, http.StatusInternalServerError, "override_reset_failed", "failed to reset role override", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionPermissionOverrideReset, string(role), nil)

	api.Success(w, map[string]any{
		"role":   role,
		"grants": h.Resolver.Effective(r.Context(), user.TenantID, role),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetAll(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Overrides.DeleteOverrides(r.Context(), user.TenantID, ""); err != nil {
		api.Fail(w, http.StatusInternalServerError, "override_reset_failed", "failed to reset role overrides", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionPermissionOverrideReset, "all", nil)
	api.Success(w, map[string]string{"status": "reset"}, middleware.GetRequestID(r.Context()))
}

// parseEditableRole rejects unknown roles and the owner role, which always
// keeps its full defaults and cannot be customized.
func parseEditableRole(w http.ResponseWriter, r *http.Request) (auth.Role, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "role"))
	role, known := auth.ParseRole(raw)
	if !known {
		api.Fail(w, http.StatusBadRequest, "unknown_role", "unknown role "+raw, middleware.GetRequestID(r.Context()))
		return "", false
	}
	if role == auth.RoleOwner {
		api.Fail(w, http.StatusBadRequest, "owner_immutable", "the owner role cannot be customized", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return role, true
}
