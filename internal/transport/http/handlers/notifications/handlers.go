package notificationshandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/notifications"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notifications.Notification, error)
	Count(ctx context.Context, userID int64, unreadOnly bool) (int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

// handleList godoc
// @Summary List the caller's notifications
// @Description Newest first. X-Total-Count carries the unpaged total.
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Page size (max 500)"
// @Param offset query int false "Offset"
// @Success 200 {array} notifications.Notification
// @Security BearerAuth
// @Router /notifications [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	total, err := h.Service.Count(r.Context(), user.UserID, unreadOnly)
	if err != nil {
		zap.S().Warnw("notification count failed", "userId", user.UserID, "err", err)
	}
	items, err := h.Service.List(r.Context(), user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		zap.S().Warnw("notification list failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleUnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	count, err := h.Service.UnreadCount(r.Context(), user.UserID)
	if err != nil {
		zap.S().Warnw("unread count failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_count_failed", "failed to count notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int{"count": count}, middleware.GetRequestID(r.Context()))
}

// handleMarkRead godoc
// @Summary Mark one notification read
// @Tags Notifications
// @Produce json
// @Param notificationID path int true "Notification id"
// @Success 200 {object} api.Envelope
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /notifications/{notificationID}/read [post]
func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "notificationID")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid notification id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.MarkRead(r.Context(), user.UserID, id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		zap.S().Warnw("mark read failed", "userId", user.UserID, "notificationId", id, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

// handleMarkAllRead godoc
// @Summary Mark every notification read
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	updated, err := h.Service.MarkAllRead(r.Context(), user.UserID)
	if err != nil {
		zap.S().Warnw("mark all read failed", "userId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, middleware.GetRequestID(r.Context()))
}
