package gdpr

import "errors"

var (
	ErrNotFound          = errors.New("gdpr request not found")
	ErrForbidden         = errors.New("not allowed to access this request")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNotEditable       = errors.New("only pending requests can be changed")
	ErrInvalidType       = errors.New("invalid request type")
	ErrInvalidStatus     = errors.New("invalid request status")
	ErrInvalidContent    = errors.New("request content must be between 1 and 5000 characters")
	ErrInvalidDateRange  = errors.New("start date cannot be after end date")
	ErrCompanyNotFound   = errors.New("company not found")
	ErrUserNotFound      = errors.New("user not found")
)
