package users

import (
	"errors"
	"time"

	"gdprdesk/internal/domain/auth"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("user already exists")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidEmail = errors.New("invalid email")
	ErrSelfAction   = errors.New("administrators cannot deactivate or delete their own account")
)

type User struct {
	ID        int64      `json:"id"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	Email     string     `json:"email"`
	Role      auth.Role  `json:"role"`
	RoleID    int64      `json:"idRole"`
	CompanyID *int64     `json:"companyId,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type CreateInput struct {
	Firstname string `json:"firstname" validate:"required,max=100"`
	Lastname  string `json:"lastname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,gdpr_email"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	RoleID    int64  `json:"id_role"`
	CompanyID *int64 `json:"companyId"`
	Active    *bool  `json:"active"`
}

// UpdateInput only changes the fields that are set.
type UpdateInput struct {
	Firstname *string `json:"firstname" validate:"omitempty,max=100"`
	Lastname  *string `json:"lastname" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,gdpr_email"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
	RoleID    *int64  `json:"id_role"`
	CompanyID *int64  `json:"companyId"`
	Active    *bool   `json:"active"`
}

// NewUser is what the store persists on create.
type NewUser struct {
	Firstname    string
	Lastname     string
	Email        string
	PasswordHash string
	RoleID       int64
	CompanyID    *int64
	Active       bool
}
