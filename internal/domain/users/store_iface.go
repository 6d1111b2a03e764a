package users

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, in NewUser) (User, error)
	Save(ctx context.Context, u User) (User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) (User, error)
	RevokeSessions(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	ListByRole(ctx context.Context, roleID int64) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
}
