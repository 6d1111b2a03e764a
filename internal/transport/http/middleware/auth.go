package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/transport/http/api"
)

// SessionChecker reports whether the session embedded in a token is still
// live. Logout and refresh revoke sessions before the JWT expires.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID int64, sessionHash string) (bool, error)
}

// Auth attaches the caller to the context when a valid bearer token is
// present. It never rejects; RequireAuth does that.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.SessionValid(r.Context(), claims.UserID, auth.HashToken(claims.SessionID))
				if err != nil {
					zap.S().Warnw("session lookup failed", "userId", claims.UserID, "err", err)
				}
				if err != nil || !valid {
					next.ServeHTTP(w, r)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserContext())))
		})
	}
}

func BearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
