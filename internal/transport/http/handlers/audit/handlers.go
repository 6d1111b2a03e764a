package audithandler

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
	ListExport(ctx context.Context) ([]audit.Event, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireCapability(auth.CapAuditRead))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

// handleListEvents godoc
// @Summary List audit events
// @Tags Audit
// @Produce json
// @Param action query string false "Action, e.g. gdpr_request.status"
// @Param entityType query string false "Entity type"
// @Param actorUserId query int false "Actor id"
// @Param includeDetails query bool false "Include before/after snapshots"
// @Param limit query int false "Page size (max 500)"
// @Param offset query int false "Offset"
// @Success 200 {array} audit.Event
// @Security BearerAuth
// @Router /audit/events [get]
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	query := r.URL.Query()
	v := shared.NewValidator()
	filter := audit.Filter{
		Action:     query.Get("action"),
		EntityType: query.Get("entityType"),
		ActorID:    v.OptionalID("actorUserId", query.Get("actorUserId")),
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	includeDetails := query.Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		zap.S().Warnw("audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		zap.S().Warnw("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

// handleExportEvents godoc
// @Summary Export audit events as CSV
// @Tags Audit
// @Produce text/csv
// @Success 200 {string} string
// @Security BearerAuth
// @Router /audit/events/export [get]
func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListExport(r.Context())
	if err != nil {
		zap.S().Warnw("audit export failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	if err := WriteCSV(w, events); err != nil {
		zap.S().Warnw("audit export write failed", "err", err)
	}
}

// WriteCSV writes one header row and one row per event.
func WriteCSV(w io.Writer, events []audit.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		return err
	}
	for _, evt := range events {
		actor := ""
		if evt.ActorID != nil {
			actor = strconv.FormatInt(*evt.ActorID, 10)
		}
		row := []string{
			strconv.FormatInt(evt.ID, 10), actor, evt.Action, evt.EntityType, evt.EntityID,
			evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
