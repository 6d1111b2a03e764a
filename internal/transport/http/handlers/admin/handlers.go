package adminhandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/platform/jobs"
	"gdprdesk/internal/platform/metrics"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
)

type Jobs interface {
	RunRetention(ctx context.Context) (any, error)
	ListRuns(ctx context.Context, limit int) ([]jobs.Run, error)
}

type Metrics interface {
	Snapshot() metrics.Snapshot
}

type Auditor interface {
	Record(ctx context.Context, meta audit.Meta, action, entityType string, entityID int64, before, after any) error
}

type Handler struct {
	Jobs    Jobs
	Metrics Metrics
	Audit   Auditor
}

func NewHandler(runner Jobs, collector Metrics, auditor Auditor) *Handler {
	return &Handler{Jobs: runner, Metrics: collector, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireCapability(auth.CapSystemJobs))
		r.Post("/retention/run", h.handleRunRetention)
		r.Get("/jobs", h.handleListJobs)
		if h.Metrics != nil {
			r.Get("/metrics", h.handleMetrics)
		}
	})
}

// handleRunRetention godoc
// @Summary Run the retention purge now
// @Description Deletes closed requests, read notifications, audit events and idempotency keys past the retention window.
// @Tags Admin
// @Produce json
// @Success 200 {object} jobs.RetentionResult
// @Failure 500 {object} api.Envelope
// @Security BearerAuth
// @Router /admin/retention/run [post]
func (h *Handler) handleRunRetention(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	result, err := h.Jobs.RunRetention(r.Context())
	if h.Audit != nil {
		if auditErr := h.Audit.Record(r.Context(), audit.MetaFromContext(r.Context(), user.UserID), audit.ActionRetentionRun, "job", 0, nil, result); auditErr != nil {
			zap.S().Warnw("audit record failed", "action", audit.ActionRetentionRun, "err", auditErr)
		}
	}
	if err != nil {
		zap.S().Warnw("retention run failed", "err", err)
		api.FailWithDetails(w, http.StatusInternalServerError, "retention_failed", err.Error(), result, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

// handleListJobs godoc
// @Summary Recent background job runs
// @Tags Admin
// @Produce json
// @Param limit query int false "Max rows (default 50, max 200)"
// @Success 200 {array} jobs.Run
// @Security BearerAuth
// @Router /admin/jobs [get]
func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Jobs.ListRuns(r.Context(), limit)
	if err != nil {
		zap.S().Warnw("job list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_list_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

// handleMetrics godoc
// @Summary In-process request and job counters
// @Tags Admin
// @Produce json
// @Success 200 {object} metrics.Snapshot
// @Security BearerAuth
// @Router /admin/metrics [get]
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}
