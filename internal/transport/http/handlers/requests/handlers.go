package requesthandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/gdpr"
	"gdprdesk/internal/listview"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, user auth.UserContext, in gdpr.CreateInput) (gdpr.Request, error)
	Get(ctx context.Context, user auth.UserContext, id int64) (gdpr.Request, error)
	History(ctx context.Context, user auth.UserContext, id int64) ([]gdpr.HistoryEntry, error)
	List(ctx context.Context, user auth.UserContext, filter gdpr.Filter) ([]gdpr.Request, error)
	Count(ctx context.Context, user auth.UserContext, filter gdpr.Filter) (int64, error)
	Mine(ctx context.Context, user auth.UserContext, status gdpr.Status) ([]gdpr.Request, error)
	DateRange(ctx context.Context, user auth.UserContext, start, end time.Time) ([]gdpr.Request, error)
	Recent(ctx context.Context, user auth.UserContext) ([]gdpr.Request, error)
	Statistics(ctx context.Context, user auth.UserContext) (gdpr.Statistics, error)
	UpdateStatus(ctx context.Context, user auth.UserContext, id int64, status string) (gdpr.Request, error)
	UpdateContent(ctx context.Context, user auth.UserContext, id int64, content string) (gdpr.Request, error)
	Delete(ctx context.Context, user auth.UserContext, id int64) error
}

type Handler struct {
	Service     Service
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(service Service, idempotency middleware.IdempotencyBackend) *Handler {
	return &Handler{Service: service, Idempotency: idempotency}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/gdpr-requests", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.With(middleware.RequireCapability(auth.CapRequestsReadAll)).Get("/", h.handleList)
		r.With(middleware.Idempotent(h.Idempotency, "gdpr_requests.create")).Post("/", h.handleCreate)

		r.Get("/my-requests", h.handleMine)
		r.Get("/my-requests/status/{status}", h.handleMine)
		r.Get("/valid-types", h.handleValidTypes)
		r.Get("/valid-statuses", h.handleValidStatuses)
		r.Get("/validate/type/{type}", h.handleValidateType)
		r.Get("/validate/status/{status}", h.handleValidateStatus)
		r.Get("/statistics", h.handleStatistics)
		r.Get("/recent", h.handleRecent)
		r.Get("/date-range", h.handleDateRange)
		r.Get("/user/{userID}", h.handleByUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(auth.CapRequestsReadAll))
			r.Get("/status/{status}", h.handleByStatus)
			r.Get("/type/{type}", h.handleByType)
			r.Get("/company/{companyID}", h.handleByCompany)
			r.Get("/company/{companyID}/pending", h.handleCompanyPending)
			r.Get("/count/status/{status}", h.handleCountByStatus)
			r.Get("/count/company/{companyID}", h.handleCountByCompany)
		})

		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/history", h.handleHistory)
		r.Get("/{id}/receipt", h.handleReceipt)
		r.With(middleware.RequireCapability(auth.CapRequestsProcess)).Put("/{id}/status", h.handleUpdateStatus)
		r.Put("/{id}/content", h.handleUpdateContent)
		r.Delete("/{id}", h.handleDelete)
	})
}

// fail maps domain errors onto the response envelope.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, gdpr.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		api.Fail(w, http.StatusNotFound, "not_found", gdpr.ErrNotFound.Error(), reqID)
	case errors.Is(err, gdpr.ErrCompanyNotFound):
		api.Fail(w, http.StatusNotFound, "company_not_found", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "user_not_found", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrNotEditable):
		api.Fail(w, http.StatusConflict, "not_editable", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrInvalidType):
		api.Fail(w, http.StatusBadRequest, "invalid_type", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrInvalidContent):
		api.Fail(w, http.StatusBadRequest, "invalid_content", err.Error(), reqID)
	case errors.Is(err, gdpr.ErrInvalidDateRange):
		api.Fail(w, http.StatusBadRequest, "invalid_date_range", err.Error(), reqID)
	default:
		zap.S().Warnw("gdpr request handler failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", reqID)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter gdpr.Filter) {
	user, _ := middleware.GetUser(r.Context())
	items, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleList godoc
// @Summary List GDPR requests
// @Description Admins see every request, managers only their company's.
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Type filter"
// @Success 200 {array} gdpr.Request
// @Failure 403 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := gdpr.Filter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := gdpr.ParseStatus(raw)
		if !ok {
			fail(w, r, gdpr.ErrInvalidStatus)
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		rt, ok := gdpr.ParseRequestType(raw)
		if !ok {
			fail(w, r, gdpr.ErrInvalidType)
			return
		}
		filter.Type = rt
	}
	h.list(w, r, filter)
}

// handleCreate godoc
// @Summary Submit a GDPR request
// @Description Clients submit for themselves; admins may set userId. Send Idempotency-Key to make retries safe.
// @Tags Requests
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated retry key"
// @Param request body gdpr.CreateInput true "Request"
// @Success 201 {object} gdpr.Request
// @Failure 400 {object} api.Envelope
// @Failure 403 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload gdpr.CreateInput
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	req, err := h.Service.Create(r.Context(), user, payload)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

// handleMine godoc
// @Summary List the caller's own requests
// @Tags Requests
// @Produce json
// @Param status path string false "Status"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/my-requests [get]
// @Router /gdpr-requests/my-requests/status/{status} [get]
func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var status gdpr.Status
	if raw := chi.URLParam(r, "status"); raw != "" {
		parsed, ok := gdpr.ParseStatus(raw)
		if !ok {
			fail(w, r, gdpr.ErrInvalidStatus)
			return
		}
		status = parsed
	}
	items, err := h.Service.Mine(r.Context(), user, status)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleGet godoc
// @Summary Get one request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} gdpr.Request
// @Failure 403 {object} api.Envelope
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/{id} [get]
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.Get(r.Context(), user, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

// handleHistory godoc
// @Summary Status history of a request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {array} gdpr.HistoryEntry
// @Security BearerAuth
// @Router /gdpr-requests/{id}/history [get]
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	entries, err := h.Service.History(r.Context(), user, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

// handleReceipt godoc
// @Summary Download a PDF receipt for a request
// @Tags Requests
// @Produce application/pdf
// @Param id path int true "Request ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /gdpr-requests/{id}/receipt [get]
func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.Get(r.Context(), user, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=request-%d.pdf", req.ID))
	if err := listview.WriteReceiptPDF(w, req, time.Now()); err != nil {
		zap.S().Warnw("receipt render failed", "requestId", req.ID, "err", err)
	}
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

// handleUpdateStatus godoc
// @Summary Move a request to a new status
// @Description Illegal transitions, including same-state moves, return 409.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body statusPayload true "Target status"
// @Success 200 {object} gdpr.Request
// @Failure 403 {object} api.Envelope
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/{id}/status [put]
func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload statusPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	req, err := h.Service.UpdateStatus(r.Context(), user, id, payload.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type contentPayload struct {
	RequestContent string `json:"requestContent" validate:"required,max=5000"`
}

// handleUpdateContent godoc
// @Summary Edit the content of a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body contentPayload true "New content"
// @Success 200 {object} gdpr.Request
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/{id}/content [put]
func (h *Handler) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload contentPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	req, err := h.Service.UpdateContent(r.Context(), user, id, payload.RequestContent)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

// handleDelete godoc
// @Summary Delete a request
// @Description Owners may delete while pending; admins always.
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/{id} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), user, id); err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"deleted": id}, middleware.GetRequestID(r.Context()))
}

// handleByUser godoc
// @Summary Requests of one user
// @Tags Requests
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/user/{userID} [get]
func (h *Handler) handleByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.PathID(r, "userID")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", middleware.GetRequestID(r.Context()))
		return
	}
	h.list(w, r, gdpr.Filter{UserID: userID})
}

// handleByStatus godoc
// @Summary Requests in one status
// @Tags Requests
// @Produce json
// @Param status path string true "Status"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/status/{status} [get]
func (h *Handler) handleByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := gdpr.ParseStatus(chi.URLParam(r, "status"))
	if !ok {
		fail(w, r, gdpr.ErrInvalidStatus)
		return
	}
	h.list(w, r, gdpr.Filter{Status: status})
}

// handleByType godoc
// @Summary Requests of one type
// @Tags Requests
// @Produce json
// @Param type path string true "Request type"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/type/{type} [get]
func (h *Handler) handleByType(w http.ResponseWriter, r *http.Request) {
	rt, ok := gdpr.ParseRequestType(chi.URLParam(r, "type"))
	if !ok {
		fail(w, r, gdpr.ErrInvalidType)
		return
	}
	h.list(w, r, gdpr.Filter{Type: rt})
}

// handleByCompany godoc
// @Summary Requests addressed to one company
// @Tags Requests
// @Produce json
// @Param companyID path int true "Company ID"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/company/{companyID} [get]
func (h *Handler) handleByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.PathID(r, "companyID")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	h.list(w, r, gdpr.Filter{CompanyID: companyID})
}

// handleCompanyPending godoc
// @Summary Pending requests of one company
// @Tags Requests
// @Produce json
// @Param companyID path int true "Company ID"
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/company/{companyID}/pending [get]
func (h *Handler) handleCompanyPending(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.PathID(r, "companyID")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	h.list(w, r, gdpr.Filter{CompanyID: companyID, Status: gdpr.StatusPending})
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request, filter gdpr.Filter) {
	user, _ := middleware.GetUser(r.Context())
	n, err := h.Service.Count(r.Context(), user, filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, n, middleware.GetRequestID(r.Context()))
}

// handleCountByStatus godoc
// @Summary Count requests in one status
// @Tags Requests
// @Produce json
// @Param status path string true "Status"
// @Success 200 {integer} int
// @Security BearerAuth
// @Router /gdpr-requests/count/status/{status} [get]
func (h *Handler) handleCountByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := gdpr.ParseStatus(chi.URLParam(r, "status"))
	if !ok {
		fail(w, r, gdpr.ErrInvalidStatus)
		return
	}
	h.count(w, r, gdpr.Filter{Status: status})
}

// handleCountByCompany godoc
// @Summary Count requests of one company
// @Tags Requests
// @Produce json
// @Param companyID path int true "Company ID"
// @Success 200 {integer} int
// @Security BearerAuth
// @Router /gdpr-requests/count/company/{companyID} [get]
func (h *Handler) handleCountByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := shared.PathID(r, "companyID")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	h.count(w, r, gdpr.Filter{CompanyID: companyID})
}

// handleDateRange godoc
// @Summary Requests created between two dates
// @Tags Requests
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD or RFC3339)"
// @Param end query string true "End date (YYYY-MM-DD or RFC3339), inclusive"
// @Success 200 {array} gdpr.Request
// @Failure 400 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/date-range [get]
func (h *Handler) handleDateRange(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	v := shared.NewValidator()
	startRaw := strings.TrimSpace(r.URL.Query().Get("start"))
	endRaw := strings.TrimSpace(r.URL.Query().Get("end"))
	start, _ := v.Date("start", startRaw)
	end, _ := v.Date("end", endRaw)
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if len(endRaw) == len("2006-01-02") {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	items, err := h.Service.DateRange(r.Context(), user, start, end)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleRecent godoc
// @Summary Requests created in the last 30 days
// @Tags Requests
// @Produce json
// @Success 200 {array} gdpr.Request
// @Security BearerAuth
// @Router /gdpr-requests/recent [get]
func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	items, err := h.Service.Recent(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleStatistics godoc
// @Summary Request counters by status and type
// @Tags Requests
// @Produce json
// @Success 200 {object} gdpr.Statistics
// @Failure 403 {object} api.Envelope
// @Security BearerAuth
// @Router /gdpr-requests/statistics [get]
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	stats, err := h.Service.Statistics(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

// handleValidTypes godoc
// @Summary Accepted request types
// @Tags Requests
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /gdpr-requests/valid-types [get]
func (h *Handler) handleValidTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, gdpr.RequestTypes, middleware.GetRequestID(r.Context()))
}

// handleValidStatuses godoc
// @Summary Accepted request statuses
// @Tags Requests
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /gdpr-requests/valid-statuses [get]
func (h *Handler) handleValidStatuses(w http.ResponseWriter, r *http.Request) {
	api.Success(w, gdpr.Statuses, middleware.GetRequestID(r.Context()))
}

// handleValidateType godoc
// @Summary Check a request type
// @Tags Requests
// @Produce json
// @Param type path string true "Request type"
// @Success 200 {boolean} bool
// @Security BearerAuth
// @Router /gdpr-requests/validate/type/{type} [get]
func (h *Handler) handleValidateType(w http.ResponseWriter, r *http.Request) {
	_, ok := gdpr.ParseRequestType(chi.URLParam(r, "type"))
	api.Success(w, ok, middleware.GetRequestID(r.Context()))
}

// handleValidateStatus godoc
// @Summary Check a request status
// @Tags Requests
// @Produce json
// @Param status path string true "Status"
// @Success 200 {boolean} bool
// @Security BearerAuth
// @Router /gdpr-requests/validate/status/{status} [get]
func (h *Handler) handleValidateStatus(w http.ResponseWriter, r *http.Request) {
	_, ok := gdpr.ParseStatus(chi.URLParam(r, "status"))
	api.Success(w, ok, middleware.GetRequestID(r.Context()))
}
