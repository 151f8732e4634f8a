package billinghandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/billing"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
)

type Handler struct {
	Store    *billing.Store
	Resolver middleware.PermissionResolver
	Audit    *audit.Store
}

func NewHandler(store *billing.Store, resolver middleware.PermissionResolver, auditStore *audit.Store) *Handler {
	return &Handler{Store: store, Resolver: resolver, Audit: auditStore}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermBillingView)).Get("/plans", h.handlePlans)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermBillingView)).Get("/subscription", h.handleSubscription)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermBillingManage)).Put("/subscription", h.handleChangePlan)
	})
}

type changePlanRequest struct {
	PlanCode string `json:"planCode"`
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListPlans(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "plans_failed", "failed to list plans", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, plans, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubscription(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	sub, err := h.Store.GetSubscription(r.Context(), user.TenantID)
	if err != nil {
		// No subscription row means the tenant runs on free-tier fallbacks.
		api.Success(w, map[string]any{"planCode": billing.PlanFree, "fallback": true}, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, sub, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangePlan(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	code := strings.ToLower(strings.TrimSpace(payload.PlanCode))
	if !billing.ValidPlanCode(code) {
		api.Fail(w, http.StatusBadRequest, "unknown_plan", "unknown plan code "+code, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.ChangePlan(r.Context(), user.TenantID, code); err != nil {
		api.Fail(w, http.StatusInternalServerError, "plan_change_failed", "failed to change plan", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionPlanChanged, code, nil)
	api.Success(w, map[string]string{"status": "changed", "planCode": code}, middleware.GetRequestID(r.Context()))
}
