package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gdprdesk/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func jsonPost(path, body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	user := auth.UserContext{UserID: 42, Role: auth.RoleManager}

	first := httptest.NewRequest(http.MethodPut, "/api/gdpr-requests/9/status", nil)
	first = first.WithContext(WithUser(first.Context(), user))
	first.RemoteAddr = "198.51.100.11:2222"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	second := httptest.NewRequest(http.MethodPut, "/api/gdpr-requests/9/status", nil)
	second = second.WithContext(WithUser(second.Context(), user))
	second.RemoteAddr = "198.51.100.12:3333"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "second request should be throttled by user key")
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/forgot-password", `{"email":"a@example.com"}`, "203.0.113.10:4444"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/forgot-password", `{"email":"b@example.com"}`, "203.0.113.10:5555"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitIgnoresForwardedForHeader(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i, fwd := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := jsonPost("/api/auth/login", `{}`, "203.0.113.77:1000")
		req.Header.Set("X-Forwarded-For", fwd+", 203.0.113.77")
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusNoContent, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, "rotating X-Forwarded-For must not reset the bucket")
		}
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"a@example.com"}`, "192.0.2.20:1111"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"a@example.com"}`, "192.0.2.20:1111"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	time.Sleep(50 * time.Millisecond)

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"a@example.com"}`, "192.0.2.20:1111"))
	assert.Equal(t, http.StatusNoContent, rec.Code, "request after window reset should pass")
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	limited.ServeHTTP(httptest.NewRecorder(), jsonPost("/api/auth/login", `{"email":"a@example.com"}`, "192.0.2.30:1234"))
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"a@example.com"}`, "192.0.2.30:1234"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Contains(t, rec.Body.String(), `"rate_limited"`)
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/gdpr-requests/statistics", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, "read request %d should bypass sensitive limits", i+1)
	}

	user := auth.UserContext{UserID: 5, Role: auth.RoleAdmin}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/retention/run", nil)
		req = req.WithContext(WithUser(req.Context(), user))
		req.RemoteAddr = "198.51.100.41:9999"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i < 2 {
			assert.Equal(t, http.StatusNoContent, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestSensitiveAuthLimitedPerEmail(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"Admin@gdpr.com"}`, "192.0.2.50:1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Different IP, same account.
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, jsonPost("/api/auth/login", `{"email":"admin@gdpr.com"}`, "192.0.2.51:1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSensitiveRateScopePaths(t *testing.T) {
	tests := []struct {
		method, path string
		want         sensitiveScope
	}{
		{http.MethodPost, "/api/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/auth/register/", sensitiveScopeAuth},
		{http.MethodPost, "/api/auth/mfa/enable", sensitiveScopeAuth},
		{http.MethodPost, "/api/auth/reset-password", sensitiveScopeAuth},
		{http.MethodPost, "/api/gdpr-requests", sensitiveScopeActor},
		{http.MethodPut, "/api/gdpr-requests/12/status", sensitiveScopeActor},
		{http.MethodPut, "/api/users/4/password", sensitiveScopeActor},
		{http.MethodGet, "/api/auth/login", sensitiveScopeNone},
		{http.MethodPut, "/api/gdpr-requests/12/content", sensitiveScopeNone},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		assert.Equal(t, tt.want, sensitiveRateScope(req), "%s %s", tt.method, tt.path)
	}
}
