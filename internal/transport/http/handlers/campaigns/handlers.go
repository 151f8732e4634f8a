package campaignshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/campaigns"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store       *campaigns.Store
	Service     *campaigns.Service
	Resolver    middleware.PermissionResolver
	Audit       *audit.Store
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(store *campaigns.Store, service *campaigns.Service, resolver middleware.PermissionResolver, auditStore *audit.Store, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Store: store, Service: service, Resolver: resolver, Audit: auditStore, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsView)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsView)).Get("/{campaignID}", h.handleGet)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsNew)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsNew)).Put("/{campaignID}", h.handleUpdate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsDel)).Delete("/{campaignID}", h.handleDelete)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsSend)).Post("/{campaignID}/send", h.handleSend)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermCampaignsSend)).Post("/{campaignID}/schedule", h.handleSchedule)
	})
}

type campaignRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Subject string `json:"subject" validate:"required,min=1,max=300"`
	Body    string `json:"body" validate:"required"`
	ListID  string `json:"listId" validate:"required,uuid"`
}

type scheduleRequest struct {
	At string `json:"at" validate:"required"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	list, err := h.Store.ListCampaigns(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "campaigns_list_failed", "failed to list campaigns", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	campaign, err := h.Store.GetCampaign(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "campaign_not_found", "campaign not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, campaign, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateCampaign(r.Context(), user.TenantID, payload.Name, payload.Subject, payload.Body, payload.ListID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "campaign_create_failed", "failed to create campaign", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.UpdateCampaign(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"),
		payload.Name, payload.Subject, payload.Body, payload.ListID)
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusConflict, "campaign_not_editable", "campaign not found or no longer a draft", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "campaign_update_failed", "failed to update campaign", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.DeleteCampaign(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"))
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "campaign_not_found", "campaign not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "campaign_delete_failed", "failed to delete campaign", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// handleSend honors an Idempotency-Key header so a retried send does not
// deliver the campaign twice.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	campaignID := chi.URLParam(r, "campaignID")
	endpoint := "campaigns.send"

	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash([]byte(campaignID))
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash)
		if err != nil {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different request", middleware.GetRequestID(r.Context()))
			return
		}
		if found {
			api.Success(w, stored, middleware.GetRequestID(r.Context()))
			return
		}
	}

	sent, err := h.Service.Send(r.Context(), user.TenantID, campaignID)
	switch {
	case errors.Is(err, campaigns.ErrNotSendable):
		api.Fail(w, http.StatusConflict, "campaign_not_sendable", "campaign was already sent or is sending", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, campaigns.ErrNoRecipients):
		api.Fail(w, http.StatusConflict, "no_recipients", "campaign list has no subscribed recipients", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, campaigns.ErrQuotaExceeded):
		api.Fail(w, http.StatusConflict, "quota_exceeded", err.Error(), middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "campaign_send_failed", "failed to send campaign", middleware.GetRequestID(r.Context()))
		return
	}

	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionCampaignSent, campaignID,
		map[string]int{"sent": sent})

	result := map[string]any{"status": "sent", "sent": sent}
	if idemKey != "" && h.Idempotency != nil {
		raw, err := json.Marshal(result)
		if err == nil {
			if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash, raw); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
			}
		}
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	at, ok := v.Time("at", payload.At)
	if v.Reject(w, middleware.GetRequestID(r.Context())) || !ok {
		return
	}

	err := h.Service.Schedule(r.Context(), user.TenantID, chi.URLParam(r, "campaignID"), at)
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusConflict, "campaign_not_schedulable", "campaign not found or no longer a draft", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "campaign_schedule_failed", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"status": "scheduled", "at": at}, middleware.GetRequestID(r.Context()))
}
