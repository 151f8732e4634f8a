package signuphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bizdesk/internal/domain/signup"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *signup.Service
}

func NewHandler(service *signup.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/signup", func(r chi.Router) {
		r.Post("/request", h.handleRequest)
		r.Post("/confirm", h.handleConfirm)
	})
}

type signupRequest struct {
	Email      string `json:"email" validate:"required,email"`
	TenantName string `json:"tenantName" validate:"required,min=2,max=200"`
	Password   string `json:"password" validate:"required,min=10"`
}

type confirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	var payload signupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Service.Request(r.Context(), payload.Email, payload.TenantName, payload.Password)
	if errors.Is(err, signup.ErrDisabled) {
		api.Fail(w, http.StatusForbidden, "signup_disabled", "self-service signup is disabled", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "failed to start signup", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "confirmation_sent"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var payload confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	tenantID, err := h.Service.Confirm(r.Context(), payload.Email, payload.Code)
	switch {
	case errors.Is(err, signup.ErrDisabled):
		api.Fail(w, http.StatusForbidden, "signup_disabled", "self-service signup is disabled", middleware.GetRequestID(r.Context()))
	case errors.Is(err, signup.ErrNotFound):
		api.Fail(w, http.StatusGone, "signup_expired", "no pending signup, or the code expired", middleware.GetRequestID(r.Context()))
	case errors.Is(err, signup.ErrBadCode):
		api.Fail(w, http.StatusBadRequest, "invalid_code", "confirmation code does not match", middleware.GetRequestID(r.Context()))
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "failed to complete signup", middleware.GetRequestID(r.Context()))
	default:
		api.Created(w, map[string]string{"tenantId": tenantID}, middleware.GetRequestID(r.Context()))
	}
}
