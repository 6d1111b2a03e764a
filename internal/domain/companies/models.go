package companies

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("company not found")
	ErrCompanyExists = errors.New("company already exists")
	ErrInvalidName   = errors.New("company name must be between 2 and 100 characters")
	ErrInvalidEmail  = errors.New("invalid company email")
)

type Company struct {
	ID          int64     `json:"idCompany"`
	CompanyName string    `json:"companyName"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Input struct {
	CompanyName string `json:"companyName" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,gdpr_email"`
}

type Statistics struct {
	TotalCompanies        int64 `json:"totalCompanies"`
	CompaniesWithRequests int64 `json:"companiesWithRequests"`
	PendingRequests       int64 `json:"pendingRequests"`
}

// Page mirrors the paginated listing shape the front-end expects.
type Page struct {
	Content       []Company `json:"content"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}
