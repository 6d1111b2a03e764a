package companies

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	GetByEmail(ctx context.Context, email string) (Company, error)
	GetByName(ctx context.Context, name string) (Company, error)
	Create(ctx context.Context, name, email string) (Company, error)
	Update(ctx context.Context, id int64, name, email string) (Company, error)
	Delete(ctx context.Context, id int64) error
	SearchByName(ctx context.Context, term string) ([]Company, error)
	SearchByEmail(ctx context.Context, term string) ([]Company, error)
	Page(ctx context.Context, limit, offset int) ([]Company, int64, error)
	Names(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (Statistics, error)
}
