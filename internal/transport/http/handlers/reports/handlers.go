package reportshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/reports"
	"bizdesk/internal/domain/tenant"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
)

type Handler struct {
	Service  *reports.Service
	Tenants  *tenant.Store
	Resolver middleware.PermissionResolver
}

func NewHandler(service *reports.Service, tenants *tenant.Store, resolver middleware.PermissionResolver) *Handler {
	return &Handler{Service: service, Tenants: tenants, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermReportsView)).Get("/usage", h.handleUsage)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermReportsExport)).Get("/campaigns/{id}/pdf", h.handleCampaignPDF)
	})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	items, err := h.Service.UsageSummary(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "usage_report_failed", "failed to compute usage", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCampaignPDF(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	campaignID := chi.URLParam(r, "id")

	tenantName := ""
	if t, err := h.Tenants.GetTenant(r.Context(), user.TenantID); err == nil {
		tenantName = t.Name
	}

	pdf, err := h.Service.CampaignReportPDF(r.Context(), user.TenantID, campaignID, tenantName)
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "campaign_not_found", "campaign not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render campaign report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=campaign-"+campaignID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
