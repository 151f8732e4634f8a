package appointmentshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/appointments"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store    *appointments.Store
	Resolver middleware.PermissionResolver
}

func NewHandler(store *appointments.Store, resolver middleware.PermissionResolver) *Handler {
	return &Handler{Store: store, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appointments", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermApptView)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermApptView)).Get("/{appointmentID}", h.handleGet)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermApptCreate)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermApptEdit)).Put("/{appointmentID}", h.handleReschedule)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermApptCancel)).Delete("/{appointmentID}", h.handleCancel)
	})
}

type appointmentRequest struct {
	StaffID   string `json:"staffId" validate:"required,uuid"`
	ContactID string `json:"contactId" validate:"omitempty,uuid"`
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Notes     string `json:"notes" validate:"max=2000"`
	StartsAt  string `json:"startsAt" validate:"required"`
	EndsAt    string `json:"endsAt" validate:"required"`
}

type rescheduleRequest struct {
	StartsAt string `json:"startsAt" validate:"required"`
	EndsAt   string `json:"endsAt" validate:"required"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	v := shared.NewValidator()
	from := time.Now().AddDate(0, 0, -7)
	to := time.Now().AddDate(0, 1, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, ok := v.Time("from", raw); ok {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, ok := v.Time("to", raw); ok {
			to = parsed
		}
	}
	v.TimeOrder("from", from, "to", to)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	list, err := h.Store.ListRange(r.Context(), user.TenantID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "appointments_list_failed", "failed to list appointments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	appt, err := h.Store.Get(r.Context(), user.TenantID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "appointment_not_found", "appointment not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, appt, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	startsAt, okStart := v.Time("startsAt", payload.StartsAt)
	endsAt, okEnd := v.Time("endsAt", payload.EndsAt)
	if okStart && okEnd {
		v.TimeOrder("startsAt", startsAt, "endsAt", endsAt)
		if !endsAt.After(startsAt) {
			v.Add("endsAt", "must be after startsAt")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.Create(r.Context(), user.TenantID, appointments.Appointment{
		StaffID:   payload.StaffID,
		ContactID: payload.ContactID,
		Title:     payload.Title,
		Notes:     payload.Notes,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
	})
	if errors.Is(err, appointments.ErrConflict) {
		api.Fail(w, http.StatusConflict, "appointment_conflict", "the staff member already has a booking in this window", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "appointment_create_failed", "failed to book appointment", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	startsAt, okStart := v.Time("startsAt", payload.StartsAt)
	endsAt, okEnd := v.Time("endsAt", payload.EndsAt)
	if okStart && okEnd && !endsAt.After(startsAt) {
		v.Add("endsAt", "must be after startsAt")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.Reschedule(r.Context(), user.TenantID, chi.URLParam(r, "appointmentID"), startsAt, endsAt)
	switch {
	case errors.Is(err, appointments.ErrConflict):
		api.Fail(w, http.StatusConflict, "appointment_conflict", "the staff member already has a booking in this window", middleware.GetRequestID(r.Context()))
	case errors.Is(err, pgx.ErrNoRows):
		api.Fail(w, http.StatusNotFound, "appointment_not_found", "appointment not found or cancelled", middleware.GetRequestID(r.Context()))
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "appointment_update_failed", "failed to reschedule appointment", middleware.GetRequestID(r.Context()))
	default:
		api.Success(w, map[string]string{"status": "rescheduled"}, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.Cancel(r.Context(), user.TenantID, chi.URLParam(r, "appointmentID"))
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "appointment_not_found", "appointment not found or already cancelled", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "appointment_cancel_failed", "failed to cancel appointment", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "cancelled"}, middleware.GetRequestID(r.Context()))
}
