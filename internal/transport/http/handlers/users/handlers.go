package userhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/users"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context) ([]users.User, error)
	Get(ctx context.Context, id int64) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	ListByRole(ctx context.Context, roleID int64) ([]users.User, error)
	ListActive(ctx context.Context) ([]users.User, error)
	Create(ctx context.Context, actorID int64, in users.CreateInput) (users.User, error)
	Update(ctx context.Context, actorID, id int64, in users.UpdateInput) (users.User, error)
	Activate(ctx context.Context, actorID, id int64) (users.User, error)
	Deactivate(ctx context.Context, actorID, id int64) (users.User, error)
	Delete(ctx context.Context, actorID, id int64) error
	SetPassword(ctx context.Context, actorID, id int64, password string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireCapability(auth.CapUsersManage))

		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/active", h.handleActive)
		r.Get("/role/{roleID}", h.handleByRole)
		r.Get("/email/{email}", h.handleGetByEmail)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/activate", h.handleActivate)
		r.Put("/{id}/deactivate", h.handleDeactivate)
		r.Put("/{id}/password", h.handleSetPassword)
	})
}

type passwordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), reqID)
	case errors.Is(err, users.ErrSelfAction):
		api.Fail(w, http.StatusConflict, "self_action", err.Error(), reqID)
	case errors.Is(err, users.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", err.Error(), reqID)
	case errors.Is(err, users.ErrInvalidEmail):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	case errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), reqID)
	default:
		zap.S().Warnw("user handler failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", reqID)
	}
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", middleware.GetRequestID(r.Context()))
	}
	return id, ok
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, value any, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, value, middleware.GetRequestID(r.Context()))
}

// handleList godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {array} users.User
// @Failure 403 {object} api.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	h.write(w, r, items, err)
}

// handleActive godoc
// @Summary List active users
// @Tags Users
// @Produce json
// @Success 200 {array} users.User
// @Security BearerAuth
// @Router /users/active [get]
func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListActive(r.Context())
	h.write(w, r, items, err)
}

// handleByRole godoc
// @Summary List users with a role
// @Tags Users
// @Produce json
// @Param roleId path int true "1 ADMIN, 2 CLIENT, 3 GERANT"
// @Success 200 {array} users.User
// @Failure 400 {object} api.Envelope
// @Security BearerAuth
// @Router /users/role/{roleId} [get]
func (h *Handler) handleByRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := shared.PathID(r, "roleID")
	if !ok {
		fail(w, r, users.ErrInvalidRole)
		return
	}
	items, err := h.Service.ListByRole(r.Context(), roleID)
	h.write(w, r, items, err)
}

// handleGetByEmail godoc
// @Summary Find a user by email
// @Tags Users
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} users.User
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /users/email/{email} [get]
func (h *Handler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	h.write(w, r, u, err)
}

// handleGet godoc
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} users.User
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), id)
	h.write(w, r, u, err)
}

// handleCreate godoc
// @Summary Create a user
// @Description Without a password a temporary one is generated and emailed to the user.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body users.CreateInput true "User"
// @Success 201 {object} users.User
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /users [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	var payload users.CreateInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	created, err := h.Service.Create(r.Context(), actor.UserID, payload)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// handleUpdate godoc
// @Summary Update a user
// @Description Only the fields present in the body change.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User id"
// @Param request body users.UpdateInput true "Changes"
// @Success 200 {object} users.User
// @Failure 404 {object} api.Envelope
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var payload users.UpdateInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.Service.Update(r.Context(), actor.UserID, id, payload)
	h.write(w, r, updated, err)
}

// handleActivate godoc
// @Summary Activate a user
// @Tags Users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} users.User
// @Security BearerAuth
// @Router /users/{id}/activate [put]
func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Activate(r.Context(), actor.UserID, id)
	h.write(w, r, u, err)
}

// handleDeactivate godoc
// @Summary Deactivate a user
// @Description Administrators cannot deactivate themselves.
// @Tags Users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} users.User
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /users/{id}/deactivate [put]
func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Deactivate(r.Context(), actor.UserID, id)
	h.write(w, r, u, err)
}

// handleDelete godoc
// @Summary Delete a user
// @Tags Users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} api.Envelope
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), actor.UserID, id); err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// handleSetPassword godoc
// @Summary Reset a user's password
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User id"
// @Param request body passwordRequest true "New password"
// @Success 200 {object} api.Envelope
// @Failure 400 {object} api.Envelope
// @Security BearerAuth
// @Router /users/{id}/password [put]
func (h *Handler) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetUser(r.Context())
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var payload passwordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	password := payload.Password
	if password == "" {
		password = payload.NewPassword
	}
	if err := h.Service.SetPassword(r.Context(), actor.UserID, id, password); err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_updated"}, middleware.GetRequestID(r.Context()))
}
