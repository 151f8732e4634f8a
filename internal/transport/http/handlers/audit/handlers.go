package audithandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store    *audit.Store
	Resolver middleware.PermissionResolver
}

func NewHandler(store *audit.Store, resolver middleware.PermissionResolver) *Handler {
	return &Handler{Store: store, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(h.Resolver, auth.PermAuditView)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 100, 500)

	events, err := h.Store.List(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}
