package contactshandler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/contacts"
	"bizdesk/internal/domain/tenant"
	"bizdesk/internal/transport/http/api"
	"bizdesk/internal/transport/http/middleware"
	"bizdesk/internal/transport/http/shared"
)

type Handler struct {
	Store    *contacts.Store
	Limits   *tenant.Limits
	Resolver middleware.PermissionResolver
}

func NewHandler(store *contacts.Store, limits *tenant.Limits, resolver middleware.PermissionResolver) *Handler {
	return &Handler{Store: store, Limits: limits, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contacts", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsView)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsExp)).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsView)).Get("/{contactID}", h.handleGet)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsAdd)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsEdit)).Put("/{contactID}", h.handleUpdate)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsDel)).Delete("/{contactID}", h.handleDelete)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermTagsManage)).Post("/{contactID}/tags/{tagID}", h.handleTag)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermTagsManage)).Delete("/{contactID}/tags/{tagID}", h.handleUntag)
	})

	r.Route("/lists", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsView)).Get("/", h.handleListLists)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermListsManage)).Post("/", h.handleCreateList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermListsManage)).Delete("/{listID}", h.handleDeleteList)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermListsManage)).Post("/{listID}/members/{contactID}", h.handleAddMember)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermListsManage)).Delete("/{listID}/members/{contactID}", h.handleRemoveMember)
	})

	r.Route("/tags", func(r chi.Router) {
		r.With(middleware.RequirePermission(h.Resolver, auth.PermContactsView)).Get("/", h.handleListTags)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermTagsManage)).Post("/", h.handleCreateTag)
		r.With(middleware.RequirePermission(h.Resolver, auth.PermTagsManage)).Delete("/{tagID}", h.handleDeleteTag)
	})
}

type contactRequest struct {
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"max=100"`
	Phone      string `json:"phone" validate:"max=40"`
	Subscribed *bool  `json:"subscribed"`
}

type nameRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 500)

	list, err := h.Store.ListContacts(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "contacts_list_failed", "failed to list contacts", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	contact, err := h.Store.GetContact(r.Context(), user.TenantID, chi.URLParam(r, "contactID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "contact_not_found", "contact not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, contact, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload contactRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	ok, usage, limit, err := h.Limits.CanAdd(r.Context(), user.TenantID, tenant.LimitContacts, 1)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "limit_check_failed", "failed to check the contact limit", middleware.GetRequestID(r.Context()))
		return
	}
	if !ok {
		api.FailWithDetails(w, http.StatusConflict, "limit_reached", "contact limit reached for the current plan",
			map[string]int{"usage": usage, "limit": limit}, middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Store.CreateContact(r.Context(), user.TenantID,
		strings.ToLower(strings.TrimSpace(payload.Email)), payload.FirstName, payload.LastName, payload.Phone)
	if err != nil {
		api.Fail(w, http.StatusConflict, "contact_create_failed", "a contact with this email already exists", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload contactRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	subscribed := true
	if payload.Subscribed != nil {
		subscribed = *payload.Subscribed
	}
	err := h.Store.UpdateContact(r.Context(), user.TenantID, chi.URLParam(r, "contactID"),
		payload.FirstName, payload.LastName, payload.Phone, subscribed)
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "contact_not_found", "contact not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "contact_update_failed", "failed to update contact", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.DeleteContact(r.Context(), user.TenantID, chi.URLParam(r, "contactID"))
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "contact_not_found", "contact not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "contact_delete_failed", "failed to delete contact", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	list, err := h.Store.ListContacts(r.Context(), user.TenantID, 10000, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "contacts_export_failed", "failed to export contacts", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=contacts.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "email", "first_name", "last_name", "phone", "subscribed", "created_at"}); err != nil {
		slog.Warn("contact export header failed", "err", err)
	}
	for _, c := range list {
		subscribed := "false"
		if c.Subscribed {
			subscribed = "true"
		}
		if err := writer.Write([]string{c.ID, c.Email, c.FirstName, c.LastName, c.Phone, subscribed, c.CreatedAt.Format("2006-01-02")}); err != nil {
			slog.Warn("contact export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("contact export flush failed", "err", err)
	}
}

func (h *Handler) handleTag(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.TagContact(r.Context(), user.TenantID, chi.URLParam(r, "contactID"), chi.URLParam(r, "tagID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "tag_failed", "failed to tag contact", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "tagged"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUntag(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.UntagContact(r.Context(), user.TenantID, chi.URLParam(r, "contactID"), chi.URLParam(r, "tagID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "untag_failed", "failed to untag contact", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "untagged"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListLists(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	lists, err := h.Store.ListLists(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lists_failed", "failed to list contact lists", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, lists, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload nameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateList(r.Context(), user.TenantID, payload.Name, payload.Description)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_create_failed", "failed to create list", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.DeleteList(r.Context(), user.TenantID, chi.URLParam(r, "listID"))
	if errors.Is(err, pgx.ErrNoRows) {
		api.Fail(w, http.StatusNotFound, "list_not_found", "list not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "list_delete_failed", "failed to delete list", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.AddListMember(r.Context(), user.TenantID, chi.URLParam(r, "listID"), chi.URLParam(r, "contactID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "member_add_failed", "failed to add list member", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "added"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.RemoveListMember(r.Context(), user.TenantID, chi.URLParam(r, "listID"), chi.URLParam(r, "contactID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "member_remove_failed", "failed to remove list member", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "removed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	tags, err := h.Store.ListTags(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "tags_failed", "failed to list tags", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tags, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload nameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateTag(r.Context(), user.TenantID, payload.Name)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "tag_create_failed", "failed to create tag", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.DeleteTag(r.Context(), user.TenantID, chi.URLParam(r, "tagID")); err != nil {
		api.Fail(w, http.StatusInternalServerError, "tag_delete_failed", "failed to delete tag", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
