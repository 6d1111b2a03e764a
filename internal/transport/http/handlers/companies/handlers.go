package companyhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/companies"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
	"gdprdesk/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context) ([]companies.Company, error)
	Get(ctx context.Context, id int64) (companies.Company, error)
	GetByEmail(ctx context.Context, email string) (companies.Company, error)
	GetByName(ctx context.Context, name string) (companies.Company, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, actorID int64, in companies.Input) (companies.Company, error)
	Update(ctx context.Context, actorID, id int64, in companies.Input) (companies.Company, error)
	Delete(ctx context.Context, actorID, id int64) error
	SearchByName(ctx context.Context, term string) ([]companies.Company, error)
	SearchByEmail(ctx context.Context, term string) ([]companies.Company, error)
	Page(ctx context.Context, page, size int) (companies.Page, error)
	Names(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (companies.Statistics, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireCapability(auth.CapCompaniesRead))

		r.Get("/", h.handleList)
		r.Get("/paginated", h.handlePage)
		r.Get("/statistics", h.handleStatistics)
		r.Get("/names", h.handleNames)
		r.Get("/search/name", h.handleSearchByName)
		r.Get("/search/email", h.handleSearchByEmail)
		r.Get("/email/{email}", h.handleGetByEmail)
		r.Get("/name/{name}", h.handleGetByName)
		r.Get("/exists/email/{email}", h.handleExistsByEmail)
		r.Get("/exists/name/{name}", h.handleExistsByName)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(auth.CapCompaniesWrite))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, companies.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, companies.ErrCompanyExists):
		api.Fail(w, http.StatusConflict, "company_exists", err.Error(), reqID)
	case errors.Is(err, companies.ErrInvalidName), errors.Is(err, companies.ErrInvalidEmail):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	default:
		zap.S().Warnw("company handler failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", reqID)
	}
}

func respond[T any](w http.ResponseWriter, r *http.Request, value T, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, value, middleware.GetRequestID(r.Context()))
}

// handleList godoc
// @Summary List companies
// @Tags Companies
// @Produce json
// @Success 200 {array} companies.Company
// @Security BearerAuth
// @Router /companies [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	respond(w, r, items, err)
}

// handlePage godoc
// @Summary List companies one page at a time
// @Tags Companies
// @Produce json
// @Param page query int false "Zero based page"
// @Param size query int false "Page size"
// @Success 200 {object} companies.Page
// @Security BearerAuth
// @Router /companies/paginated [get]
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	page, size := shared.ParsePage(r, 10)
	result, err := h.Service.Page(r.Context(), page, size)
	respond(w, r, result, err)
}

// handleStatistics godoc
// @Summary Company totals
// @Tags Companies
// @Produce json
// @Success 200 {object} companies.Statistics
// @Security BearerAuth
// @Router /companies/statistics [get]
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Statistics(r.Context())
	respond(w, r, stats, err)
}

// handleNames godoc
// @Summary Company names for pickers
// @Tags Companies
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /companies/names [get]
func (h *Handler) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.Service.Names(r.Context())
	respond(w, r, names, err)
}

// handleSearchByName godoc
// @Summary Search companies by name
// @Tags Companies
// @Produce json
// @Param name query string true "Name fragment"
// @Success 200 {array} companies.Company
// @Security BearerAuth
// @Router /companies/search/name [get]
func (h *Handler) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.SearchByName(r.Context(), r.URL.Query().Get("name"))
	respond(w, r, items, err)
}

// handleSearchByEmail godoc
// @Summary Search companies by email
// @Tags Companies
// @Produce json
// @Param email query string true "Email fragment"
// @Success 200 {array} companies.Company
// @Security BearerAuth
// @Router /companies/search/email [get]
func (h *Handler) handleSearchByEmail(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.SearchByEmail(r.Context(), r.URL.Query().Get("email"))
	respond(w, r, items, err)
}

// handleGetByEmail godoc
// @Summary Find a company by email
// @Tags Companies
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} companies.Company
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /companies/email/{email} [get]
func (h *Handler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	company, err := h.Service.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	respond(w, r, company, err)
}

// handleGetByName godoc
// @Summary Find a company by name
// @Tags Companies
// @Produce json
// @Param name path string true "Name"
// @Success 200 {object} companies.Company
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /companies/name/{name} [get]
func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	company, err := h.Service.GetByName(r.Context(), chi.URLParam(r, "name"))
	respond(w, r, company, err)
}

// handleExistsByEmail godoc
// @Summary Check whether a company email is taken
// @Tags Companies
// @Produce json
// @Param email path string true "Email"
// @Success 200 {boolean} boolean
// @Security BearerAuth
// @Router /companies/exists/email/{email} [get]
func (h *Handler) handleExistsByEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.ExistsByEmail(r.Context(), chi.URLParam(r, "email"))
	respond(w, r, ok, err)
}

// handleExistsByName godoc
// @Summary Check whether a company name is taken
// @Tags Companies
// @Produce json
// @Param name path string true "Name"
// @Success 200 {boolean} boolean
// @Security BearerAuth
// @Router /companies/exists/name/{name} [get]
func (h *Handler) handleExistsByName(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Service.ExistsByName(r.Context(), chi.URLParam(r, "name"))
	respond(w, r, ok, err)
}

// handleGet godoc
// @Summary Get a company
// @Tags Companies
// @Produce json
// @Param id path int true "Company id"
// @Success 200 {object} companies.Company
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /companies/{id} [get]
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	company, err := h.Service.Get(r.Context(), id)
	respond(w, r, company, err)
}

// handleCreate godoc
// @Summary Create a company
// @Tags Companies
// @Accept json
// @Produce json
// @Param request body companies.Input true "Company"
// @Success 201 {object} companies.Company
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /companies [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload companies.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	created, err := h.Service.Create(r.Context(), user.UserID, trim(payload))
	if err != nil {
		fail(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// handleUpdate godoc
// @Summary Update a company
// @Tags Companies
// @Accept json
// @Produce json
// @Param id path int true "Company id"
// @Param request body companies.Input true "Company"
// @Success 200 {object} companies.Company
// @Failure 404 {object} api.Envelope
// @Failure 409 {object} api.Envelope
// @Security BearerAuth
// @Router /companies/{id} [put]
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload companies.Input
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.Service.Update(r.Context(), user.UserID, id, trim(payload))
	respond(w, r, updated, err)
}

// handleDelete godoc
// @Summary Delete a company
// @Tags Companies
// @Produce json
// @Param id path int true "Company id"
// @Success 200 {object} api.Envelope
// @Failure 404 {object} api.Envelope
// @Security BearerAuth
// @Router /companies/{id} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid company id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), user.UserID, id); err != nil {
		fail(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func trim(in companies.Input) companies.Input {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Email = strings.TrimSpace(in.Email)
	return in
}
