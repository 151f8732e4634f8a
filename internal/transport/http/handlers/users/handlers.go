package usershandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/tenant"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store    *tenant.Store
	Limits   *tenant.Limits
	Resolver middleware.PermissionResolver
	Audit    *audit.Store
}

func NewHandler(store *tenant.Store, limits *tenant.Limits, resolver middleware.PermissionResolver, auditStore *audit.Store) *Handler {
	return &Handler{Store: store, Limits: limits, Resolver: resolver, Audit: auditStore}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermUsersView)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermUsersView)).Get("/{userID}", h.handleGet)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermUsersCreate)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermUsersEdit)).Put("/{userID}", h.handleUpdate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermUsersDelete)).Delete("/{userID}", h.handleDelete)
	})
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required,min=10"`
}

type updateUserRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Role   string `json:"role" validate:"required"`
	Status string `json:"status" validate:"required,oneof=active disabled"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	users, err := h.Store.ListUsers(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "users_list_failed", "failed to list users", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	target, err := h.Store.GetUser(r.Context(), user.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "user_not_found", "user not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, target, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	role, known := auth.ParseRole(payload.Role)
	if !known {
		v.Add("role", "must be one of: employee, manager, administrator, owner")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	// Nobody hands out a role above their own.
	if auth.Rank(role) > auth.Rank(user.Role) {
		api.Fail(w, http.StatusForbidden, "role_too_high", "cannot assign a role above your own", middleware.GetRequestID(r.Context()))
		return
	}

	ok, usage, limit, err := h.Limits.CanAdd(r.Context(), user.TenantID, tenant.LimitUsers, 1)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "limit_check_failed", "failed to check the user limit", middleware.GetRequestID(r.Context()))
		return
	}
	if !ok {
		api.FailWithDetails(w, http.StatusConflict, "limit_reached", "user limit reached for the current plan",
			map[string]int{"usage": usage, "limit": limit}, middleware.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_create_failed", "failed to create user", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := h.Store.CreateUser(r.Context(), user.TenantID, strings.ToLower(strings.TrimSpace(payload.Email)), payload.Name, role, hash)
	if err != nil {
		api.Fail(w, http.StatusConflict, "user_create_failed", "a user with this email already exists", middleware.GetRequestID(r.Context()))
		return
	}

	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUserCreated, id,
		map[string]string{"email": payload.Email, "role": string(role)})

	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	userID := chi.URLParam(r, "userID")

	var payload updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	role, known := auth.ParseRole(payload.Role)
	if !known {
		v.Add("role", "must be one of: employee, manager, administrator, owner")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	target, err := h.Store.GetUser(r.Context(), user.TenantID, userID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "user_not_found", "user not found", middleware.GetRequestID(r.Context()))
		return
	}
	if auth.Rank(target.Role) > auth.Rank(user.Role) {
		api.Fail(w, http.StatusForbidden, "rank_exceeded", "cannot modify a user above your own role", middleware.GetRequestID(r.Context()))
		return
	}
	if auth.Rank(role) > auth.Rank(user.Role) {
		api.Fail(w, http.StatusForbidden, "role_too_high", "cannot assign a role above your own", middleware.GetRequestID(r.Context()))
		return
	}
	if target.Role == auth.RoleOwner && role != auth.RoleOwner {
		api.Fail(w, http.StatusConflict, "owner_required", "the owner account cannot be demoted", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.UpdateUser(r.Context(), user.TenantID, userID, payload.Name, role, payload.Status); err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_update_failed", "failed to update user", middleware.GetRequestID(r.Context()))
		return
	}
	if target.Role != role {
		h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUserRoleChanged, userID,
			map[string]string{"from": string(target.Role), "to": string(role)})
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	userID := chi.URLParam(r, "userID")

	target, err := h.Store.GetUser(r.Context(), user.TenantID, userID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "user_not_found", "user not found", middleware.GetRequestID(r.Context()))
		return
	}
	if target.Role == auth.RoleOwner {
		api.Fail(w, http.StatusConflict, "owner_required", "the owner account cannot be deleted", middleware.GetRequestID(r.Context()))
		return
	}
	if auth.Rank(target.Role) > auth.Rank(user.Role) {
		api.Fail(w, http.StatusForbidden, "rank_exceeded", "cannot delete a user above your own role", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.DeleteUser(r.Context(), user.TenantID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "user_not_found", "user not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "user_delete_failed", "failed to delete user", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUserDeleted, userID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
