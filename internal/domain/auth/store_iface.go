package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (Credentials, error)
	FindActiveUserByID(ctx context.Context, userID int64) (Credentials, error)
	CreateSession(ctx context.Context, userID int64, sessionHash string, expires time.Time) error
	SessionValid(ctx context.Context, userID int64, sessionHash string) (bool, error)
	RotateSession(ctx context.Context, userID int64, oldHash, newHash string, expires time.Time) error
	RevokeSession(ctx context.Context, userID int64, sessionHash string) error
	RevokeAllSessions(ctx context.Context, userID int64) error
	UpdateLastLogin(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	CreatePasswordReset(ctx context.Context, userID int64, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (int64, error)
	UpdateMFASecret(ctx context.Context, userID int64, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID int64, enabled bool) error
}
