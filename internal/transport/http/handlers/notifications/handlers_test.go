package notificationshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/notifications"
	"gdprdesk/internal/transport/http/middleware"
)

type fakeService struct {
	items      []notifications.Notification
	lastLimit  int
	lastOffset int
}

func (f *fakeService) visible(userID int64, unreadOnly bool) []notifications.Notification {
	out := []notifications.Notification{}
	for _, n := range f.items {
		if n.UserID == userID && (!unreadOnly || !n.Read()) {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeService) List(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notifications.Notification, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.visible(userID, unreadOnly), nil
}

func (f *fakeService) Count(_ context.Context, userID int64, unreadOnly bool) (int, error) {
	return len(f.visible(userID, unreadOnly)), nil
}

func (f *fakeService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return f.Count(ctx, userID, true)
}

func (f *fakeService) MarkRead(_ context.Context, userID, id int64) error {
	for i, n := range f.items {
		if n.ID == id && n.UserID == userID {
			now := time.Now()
			f.items[i].ReadAt = &now
			return nil
		}
	}
	return notifications.ErrNotFound
}

func (f *fakeService) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].Read() {
			now := time.Now()
			f.items[i].ReadAt = &now
			n++
		}
	}
	return n, nil
}

func newFake() *fakeService {
	return &fakeService{items: []notifications.Notification{
		{ID: 1, UserID: 10, Type: "REQUEST_STATUS", Title: "Request #1 is now PROCESSED"},
		{ID: 2, UserID: 10, Type: "REQUEST_STATUS", Title: "Request #2 is now REJECTED"},
		{ID: 3, UserID: 20, Type: "REQUEST_CREATED", Title: "New request"},
	}}
}

func do(svc Service, user *auth.UserContext, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	req := httptest.NewRequest(method, path, nil)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNotifications(t *testing.T) {
	svc := newFake()
	user := auth.UserContext{UserID: 10, Role: auth.RoleClient}

	assert.Equal(t, http.StatusUnauthorized, do(svc, nil, http.MethodGet, "/notifications").Code)

	rec := do(svc, &user, http.MethodGet, "/notifications?limit=1000&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, 500, svc.lastLimit)
	assert.Equal(t, 5, svc.lastOffset)

	rec = do(svc, &user, http.MethodGet, "/notifications/unread-count")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, string(dataOf(t, rec)))

	assert.Equal(t, http.StatusOK, do(svc, &user, http.MethodPost, "/notifications/1/read").Code)
	assert.Equal(t, http.StatusNotFound, do(svc, &user, http.MethodPost, "/notifications/3/read").Code)
	assert.Equal(t, http.StatusBadRequest, do(svc, &user, http.MethodPost, "/notifications/x/read").Code)

	rec = do(svc, &user, http.MethodGet, "/notifications?unread=true")
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec = do(svc, &user, http.MethodPost, "/notifications/read-all")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, string(dataOf(t, rec)))
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}
