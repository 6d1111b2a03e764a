package requesthandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/gdpr"
	"gdprdesk/internal/transport/http/middleware"
)

type fakeService struct {
	requests   map[int64]gdpr.Request
	lastFilter gdpr.Filter
	lastRange  [2]time.Time
	created    int
}

func newFakeService() *fakeService {
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	return &fakeService{requests: map[int64]gdpr.Request{
		1: {ID: 1, RequestType: gdpr.TypeAccess, RequestContent: "send me my data", Status: gdpr.StatusPending, UserID: 10, CompanyID: 1, CreatedAt: now,
			User: gdpr.UserRef{ID: 10, Firstname: "Ada", Lastname: "Client", Email: "ada@example.com"}, Company: gdpr.CompanyRef{ID: 1, Name: "Google LLC"}},
		2: {ID: 2, RequestType: gdpr.TypeDeletion, RequestContent: "erase", Status: gdpr.StatusProcessed, UserID: 10, CompanyID: 1, CreatedAt: now},
	}}
}

func (f *fakeService) Create(_ context.Context, user auth.UserContext, in gdpr.CreateInput) (gdpr.Request, error) {
	rt, ok := gdpr.ParseRequestType(in.RequestType)
	if !ok {
		return gdpr.Request{}, gdpr.ErrInvalidType
	}
	f.created++
	req := gdpr.Request{ID: int64(100 + f.created), RequestType: rt, RequestContent: in.RequestContent, Status: gdpr.StatusPending, UserID: user.UserID, CompanyID: 1}
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeService) Get(_ context.Context, user auth.UserContext, id int64) (gdpr.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return gdpr.Request{}, gdpr.ErrNotFound
	}
	if !gdpr.CanAccess(user, req) {
		return gdpr.Request{}, gdpr.ErrForbidden
	}
	return req, nil
}

func (f *fakeService) History(ctx context.Context, user auth.UserContext, id int64) ([]gdpr.HistoryEntry, error) {
	if _, err := f.Get(ctx, user, id); err != nil {
		return nil, err
	}
	return []gdpr.HistoryEntry{}, nil
}

func (f *fakeService) List(_ context.Context, _ auth.UserContext, filter gdpr.Filter) ([]gdpr.Request, error) {
	f.lastFilter = filter
	out := []gdpr.Request{}
	for _, req := range f.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeService) Count(ctx context.Context, user auth.UserContext, filter gdpr.Filter) (int64, error) {
	items, err := f.List(ctx, user, filter)
	return int64(len(items)), err
}

func (f *fakeService) Mine(ctx context.Context, user auth.UserContext, status gdpr.Status) ([]gdpr.Request, error) {
	return f.List(ctx, user, gdpr.Filter{UserID: user.UserID, Status: status})
}

func (f *fakeService) DateRange(_ context.Context, _ auth.UserContext, start, end time.Time) ([]gdpr.Request, error) {
	f.lastRange = [2]time.Time{start, end}
	return []gdpr.Request{}, nil
}

func (f *fakeService) Recent(context.Context, auth.UserContext) ([]gdpr.Request, error) {
	return []gdpr.Request{}, nil
}

func (f *fakeService) Statistics(_ context.Context, user auth.UserContext) (gdpr.Statistics, error) {
	if user.Role == auth.RoleClient {
		return gdpr.Statistics{}, gdpr.ErrForbidden
	}
	return gdpr.Statistics{TotalRequests: 2, PendingRequests: 1, ProcessedRequests: 1}, nil
}

func (f *fakeService) UpdateStatus(_ context.Context, user auth.UserContext, id int64, raw string) (gdpr.Request, error) {
	to, ok := gdpr.ParseStatus(raw)
	if !ok {
		return gdpr.Request{}, gdpr.ErrInvalidStatus
	}
	req, ok := f.requests[id]
	if !ok {
		return gdpr.Request{}, gdpr.ErrNotFound
	}
	if !gdpr.CanChangeStatus(user.Role, req.Status, to) {
		return gdpr.Request{}, gdpr.ErrInvalidTransition
	}
	req.Status = to
	f.requests[id] = req
	return req, nil
}

func (f *fakeService) UpdateContent(_ context.Context, user auth.UserContext, id int64, content string) (gdpr.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return gdpr.Request{}, gdpr.ErrNotFound
	}
	if req.Status != gdpr.StatusPending {
		return gdpr.Request{}, gdpr.ErrNotEditable
	}
	req.RequestContent = content
	f.requests[id] = req
	return req, nil
}

func (f *fakeService) Delete(_ context.Context, _ auth.UserContext, id int64) error {
	if _, ok := f.requests[id]; !ok {
		return gdpr.ErrNotFound
	}
	delete(f.requests, id)
	return nil
}

var (
	client  = auth.UserContext{UserID: 10, Role: auth.RoleClient, CompanyID: 1}
	manager = auth.UserContext{UserID: 20, Role: auth.RoleManager, CompanyID: 1}
)

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, user *auth.UserContext, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRequiresAuthentication(t *testing.T) {
	rec := do(t, newRouter(newFakeService()), nil, http.MethodGet, "/gdpr-requests/my-requests", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListRequiresReadAll(t *testing.T) {
	h := newRouter(newFakeService())
	assert.Equal(t, http.StatusForbidden, do(t, h, &client, http.MethodGet, "/gdpr-requests", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, &client, http.MethodGet, "/gdpr-requests/status/PENDING", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, &manager, http.MethodGet, "/gdpr-requests", "").Code)
}

func TestCreate(t *testing.T) {
	svc := newFakeService()
	h := newRouter(svc)

	rec := do(t, h, &client, http.MethodPost, "/gdpr-requests", `{"requestType":"DATA_ACCESS","requestContent":"please"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var env struct {
		Data gdpr.Request `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, gdpr.TypeAccess, env.Data.RequestType)
	assert.Equal(t, gdpr.StatusPending, env.Data.Status)

	rec = do(t, h, &client, http.MethodPost, "/gdpr-requests", `{"requestType":"TELEPORT","requestContent":"please"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_type", errorCode(t, rec))

	rec = do(t, h, &client, http.MethodPost, "/gdpr-requests", `{"requestType":"ACCESS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestUpdateStatus(t *testing.T) {
	h := newRouter(newFakeService())

	rec := do(t, h, &client, http.MethodPut, "/gdpr-requests/1/status", `{"status":"PROCESSED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, &manager, http.MethodPut, "/gdpr-requests/1/status", `{"status":"en_cours"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"IN_PROGRESS"`)

	rec = do(t, h, &manager, http.MethodPut, "/gdpr-requests/1/status", `{"status":"IN_PROGRESS"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, rec))

	rec = do(t, h, &manager, http.MethodPut, "/gdpr-requests/2/status", `{"status":"PENDING"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, &manager, http.MethodPut, "/gdpr-requests/99/status", `{"status":"REJECTED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, &manager, http.MethodPut, "/gdpr-requests/1/status", `{"status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateContentOnlyWhilePending(t *testing.T) {
	h := newRouter(newFakeService())
	assert.Equal(t, http.StatusOK, do(t, h, &client, http.MethodPut, "/gdpr-requests/1/content", `{"requestContent":"updated"}`).Code)

	rec := do(t, h, &client, http.MethodPut, "/gdpr-requests/2/content", `{"requestContent":"updated"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_editable", errorCode(t, rec))
}

func TestDateRange(t *testing.T) {
	svc := newFakeService()
	h := newRouter(svc)

	rec := do(t, h, &manager, http.MethodGet, "/gdpr-requests/date-range?start=2024-05-10&end=2024-05-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = do(t, h, &manager, http.MethodGet, "/gdpr-requests/date-range?start=2024-05-01&end=2024-05-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), svc.lastRange[0])
	assert.Equal(t, 23, svc.lastRange[1].Hour())
}

func TestStaticLookups(t *testing.T) {
	h := newRouter(newFakeService())

	rec := do(t, h, &client, http.MethodGet, "/gdpr-requests/valid-types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `["ACCESS","DELETION","PORTABILITY","MODIFICATION","RECTIFICATION"]`)

	rec = do(t, h, &client, http.MethodGet, "/gdpr-requests/validate/status/approved", "")
	assert.Contains(t, rec.Body.String(), `"data":true`)

	rec = do(t, h, &client, http.MethodGet, "/gdpr-requests/validate/type/nonsense", "")
	assert.Contains(t, rec.Body.String(), `"data":false`)
}

func TestStatisticsForbiddenForClients(t *testing.T) {
	h := newRouter(newFakeService())
	assert.Equal(t, http.StatusForbidden, do(t, h, &client, http.MethodGet, "/gdpr-requests/statistics", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, &manager, http.MethodGet, "/gdpr-requests/statistics", "").Code)
}

func TestCompanyPendingFilter(t *testing.T) {
	svc := newFakeService()
	h := newRouter(svc)
	rec := do(t, h, &manager, http.MethodGet, "/gdpr-requests/company/1/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gdpr.Filter{CompanyID: 1, Status: gdpr.StatusPending}, svc.lastFilter)
}

func TestReceipt(t *testing.T) {
	h := newRouter(newFakeService())
	rec := do(t, h, &client, http.MethodGet, "/gdpr-requests/1/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}
