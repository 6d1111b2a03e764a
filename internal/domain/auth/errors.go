package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires an encryption key")
	ErrMFANotSetUp        = errors.New("mfa setup required")
	ErrSessionExpired     = errors.New("session expired")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters with upper, lower, digit and special characters")
)
