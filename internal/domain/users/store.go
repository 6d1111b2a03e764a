package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gdprdesk/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const userSelect = `
    SELECT u.id, u.firstname, u.lastname, u.email, r.name, u.role_id, u.company_id, u.active, u.created_at, u.last_login
    FROM users u
    JOIN roles r ON r.id = u.role_id
`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.Role, &u.RoleID, &u.CompanyID, &u.Active, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...any) ([]User, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, userSelect+" ORDER BY u.id")
}

func (s *Store) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, userSelect+" WHERE u.id = $1", id))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, userSelect+" WHERE u.email = lower($1)", email))
}

func (s *Store) Create(ctx context.Context, in NewUser) (User, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (firstname, lastname, email, password_hash, role_id, company_id, active)
    VALUES ($1,$2,lower($3),$4,$5,$6,$7)
    RETURNING id
  `, in.Firstname, in.Lastname, in.Email, in.PasswordHash, in.RoleID, in.CompanyID, in.Active).Scan(&id)
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Save(ctx context.Context, u User) (User, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET firstname = $2, lastname = $3, email = lower($4), role_id = $5, company_id = $6, active = $7, updated_at = now()
    WHERE id = $1
  `, u.ID, u.Firstname, u.Lastname, u.Email, u.RoleID, u.CompanyID, u.Active)
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return s.Get(ctx, u.ID)
}

func (s *Store) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1", id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET active = $2, updated_at = now() WHERE id = $1", id, active)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) RevokeSessions(ctx context.Context, id int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", id)
	return err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListByRole(ctx context.Context, roleID int64) ([]User, error) {
	return s.queryUsers(ctx, userSelect+" WHERE u.role_id = $1 ORDER BY u.id", roleID)
}

func (s *Store) ListActive(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, userSelect+" WHERE u.active ORDER BY u.id")
}
