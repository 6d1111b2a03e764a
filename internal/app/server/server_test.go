package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/platform/config"
	"gdprdesk/internal/platform/metrics"
	"gdprdesk/internal/transport/http/api"
	"gdprdesk/internal/transport/http/middleware"
)

const testSecret = "router-test-secret"

type whoami struct{}

func (whoami) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		api.Success(w, map[string]any{"id": user.UserID, "role": user.Role}, middleware.GetRequestID(r.Context()))
	})
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>bundle</html>"), 0o644))
	return config.Config{
		JWTSecret:          testSecret,
		FrontendDir:        dir,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 60,
		SwaggerEnabled:     true,
	}
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProbes(t *testing.T) {
	var readyErr error
	h := NewRouter(testConfig(t), nil, nil, func(context.Context) error { return readyErr })

	assert.Equal(t, http.StatusOK, get(h, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(h, "/readyz", "").Code)

	readyErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/readyz", "").Code)
}

func TestAPIRoutesAndAuth(t *testing.T) {
	collector := metrics.New()
	h := NewRouter(testConfig(t), collector, nil, nil, whoami{})

	rec := get(h, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: 7, Email: "admin@gdpr.com", Role: auth.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	rec = get(h, "/api/whoami", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)

	rec = get(h, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)

	assert.Equal(t, uint64(3), collector.Snapshot().RequestsTotal)
}

func TestForwardedForTrustedOnlyBehindProxy(t *testing.T) {
	login := func(h http.Handler, fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fwd)
		req.Header.Set("X-Real-IP", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	cfg := testConfig(t)
	cfg.RateLimitPerMinute = 4
	direct := NewRouter(cfg, nil, nil, nil)
	assert.NotEqual(t, http.StatusTooManyRequests, login(direct, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, login(direct, "10.0.0.2"))

	cfg.TrustProxy = true
	proxied := NewRouter(cfg, nil, nil, nil)
	assert.NotEqual(t, http.StatusTooManyRequests, login(proxied, "10.0.0.1"))
	assert.NotEqual(t, http.StatusTooManyRequests, login(proxied, "10.0.0.2"))
}

func TestBundleFallback(t *testing.T) {
	h := NewRouter(testConfig(t), nil, nil, nil)

	rec := get(h, "/requests/manage", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>bundle</html>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests/manage", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwaggerToggle(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, http.StatusOK, get(NewRouter(cfg, nil, nil, nil), "/swagger/index.html", "").Code)

	cfg.SwaggerEnabled = false
	rec := get(NewRouter(cfg, nil, nil, nil), "/swagger/index.html", "")
	assert.Equal(t, "<html>bundle</html>", rec.Body.String())
}
