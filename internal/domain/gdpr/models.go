package gdpr

import (
	"fmt"
	"strings"
	"time"
)

const MaxContentLength = 5000

type UserRef struct {
	ID        int64  `json:"idUser"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// DisplayName falls back to "User #<id>" when no name is recorded.
func (u UserRef) DisplayName() string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return fmt.Sprintf("User #%d", u.ID)
	}
	return name
}

type CompanyRef struct {
	ID    int64  `json:"idCompany"`
	Name  string `json:"name"`
	Email string `json:"-"`
}

func (c CompanyRef) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Sprintf("Company #%d", c.ID)
	}
	return c.Name
}

type Request struct {
	ID             int64       `json:"id"`
	RequestType    RequestType `json:"requestType"`
	RequestContent string      `json:"requestContent"`
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	ProcessedAt    *time.Time  `json:"processedAt,omitempty"`
	UserID         int64       `json:"userId"`
	CompanyID      int64       `json:"companyId"`
	User           UserRef     `json:"user"`
	Company        CompanyRef  `json:"company"`
}

type Statistics struct {
	TotalRequests         int64 `json:"totalRequests"`
	PendingRequests       int64 `json:"pendingRequests"`
	InProgressRequests    int64 `json:"inProgressRequests"`
	ProcessedRequests     int64 `json:"processedRequests"`
	RejectedRequests      int64 `json:"rejectedRequests"`
	AccessRequests        int64 `json:"accessRequests"`
	DeletionRequests      int64 `json:"deletionRequests"`
	PortabilityRequests   int64 `json:"portabilityRequests"`
	ModificationRequests  int64 `json:"modificationRequests"`
	RectificationRequests int64 `json:"rectificationRequests"`
}

// Filter narrows store listings. Zero values mean "any".
type Filter struct {
	UserID    int64
	CompanyID int64
	Status    Status
	Type      RequestType
	From      *time.Time
	To        *time.Time
}

type CreateInput struct {
	RequestType    string `json:"requestType" validate:"required"`
	RequestContent string `json:"requestContent" validate:"required,max=5000"`
	CompanyID      int64  `json:"companyId"`
	UserID         int64  `json:"userId"`
}

type HistoryEntry struct {
	RequestID int64     `json:"requestId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ActorID   int64     `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}
