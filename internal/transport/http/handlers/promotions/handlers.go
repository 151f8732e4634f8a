package promotionshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/promotions"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store    *promotions.Store
	Resolver middleware.PermissionResolver
}

func NewHandler(store *promotions.Store, resolver middleware.PermissionResolver) *Handler {
	return &Handler{Store: store, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/promotions", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermPromosView)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermPromosView)).Get("/redeemable/{code}", h.handleCheckCode)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermPromosManage)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermPromosManage)).Put("/{promotionID}", h.handleUpdate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermPromosManage)).Delete("/{promotionID}", h.handleDelete)
	})
}

type promotionRequest struct {
	Code            string `json:"code" validate:"required,min=2,max=40"`
	Description     string `json:"description" validate:"max=500"`
	DiscountPercent int    `json:"discountPercent" validate:"required,gte=1,lte=100"`
	StartsAt        string `json:"startsAt" validate:"required"`
	EndsAt          string `json:"endsAt" validate:"required"`
	Active          bool   `json:"active"`
}

func (h *Handler) parsePromotion(w http.ResponseWriter, r *http.Request) (promotions.Promotion, bool) {
	var payload promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return promotions.Promotion{}, false
	}
	v := shared.NewValidator()
	v.Struct(payload)
	startsAt, okStart := v.Time("startsAt", payload.StartsAt)
	endsAt, okEnd := v.Time("endsAt", payload.EndsAt)
	if okStart && okEnd {
		v.TimeOrder("startsAt", startsAt, "endsAt", endsAt)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return promotions.Promotion{}, false
	}
	return promotions.Promotion{
		Code:            payload.Code,
		Description:     payload.Description,
		DiscountPercent: payload.DiscountPercent,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Active:          payload.Active,
	}, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	list, err := h.Store.List(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "promotions_list_failed", "failed to list promotions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

// handleCheckCode answers whether a code can be applied right now, for the
// point-of-sale flow.
func (h *Handler) handleCheckCode(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	promo, err := h.Store.FindByCode(r.Context(), user.TenantID, chi.URLParam(r, "code"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "promotion_not_found", "no promotion with this code", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"code":            promo.Code,
		"redeemable":      promo.Redeemable(time.Now()),
		"discountPercent": promo.DiscountPercent,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	promo, ok := h.parsePromotion(w, r)
	if !ok {
		return
	}
	id, err := h.Store.Create(r.Context(), user.TenantID, promo)
	if err != nil {
		api.Fail(w, http.StatusConflict, "promotion_create_failed", "a promotion with this code already exists", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	promo, ok := h.parsePromotion(w, r)
	if !ok {
		return
	}
	err := h.Store.Update(r.Context(), user.TenantID, chi.URLParam(r, "promotionID"), promo)
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "promotion_not_found", "promotion not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "promotion_update_failed", "failed to update promotion", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.Delete(r.Context(), user.TenantID, chi.URLParam(r, "promotionID"))
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "promotion_not_found", "promotion not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "promotion_delete_failed", "failed to delete promotion", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
