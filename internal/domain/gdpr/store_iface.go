package gdpr

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, userID, companyID int64, requestType RequestType, content string) (int64, error)
	Get(ctx context.Context, id int64) (Request, error)
	List(ctx context.Context, filter Filter) ([]Request, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status, actorID int64) error
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context, companyID int64) (Statistics, error)
	History(ctx context.Context, id int64) ([]HistoryEntry, error)
	UserRef(ctx context.Context, userID int64) (UserRef, error)
	CompanyRef(ctx context.Context, companyID int64) (CompanyRef, error)
	CompanyManagers(ctx context.Context, companyID int64) ([]int64, error)
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
