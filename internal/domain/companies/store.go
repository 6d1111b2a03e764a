package companies

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

const companySelect = "SELECT id, company_name, email, created_at, updated_at FROM companies"

func (s *Store) queryCompanies(ctx context.Context, sql string, args ...any) ([]Company, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Company{}
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.CompanyName, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) queryOne(ctx context.Context, sql string, args ...any) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CompanyName, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return c, err
}

func (s *Store) List(ctx context.Context) ([]Company, error) {
	return s.queryCompanies(ctx, companySelect+" ORDER BY company_name")
}

func (s *Store) Get(ctx context.Context, id int64) (Company, error) {
	return s.queryOne(ctx, companySelect+" WHERE id = $1", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Company, error) {
	return s.queryOne(ctx, companySelect+" WHERE lower(email) = lower($1)", email)
}

func (s *Store) GetByName(ctx context.Context, name string) (Company, error) {
	return s.queryOne(ctx, companySelect+" WHERE lower(company_name) = lower($1)", name)
}

func (s *Store) Create(ctx context.Context, name, email string) (Company, error) {
	c, err := s.queryOne(ctx, `
    INSERT INTO companies (company_name, email) VALUES ($1, $2)
    RETURNING id, company_name, email, created_at, updated_at
  `, name, email)
	if db.IsUniqueViolation(err) {
		return Company{}, ErrCompanyExists
	}
	return c, err
}

func (s *Store) Update(ctx context.Context, id int64, name, email string) (Company, error) {
	c, err := s.queryOne(ctx, `
    UPDATE companies SET company_name = $2, email = $3, updated_at = now()
    WHERE id = $1
    RETURNING id, company_name, email, created_at, updated_at
  `, id, name, email)
	if db.IsUniqueViolation(err) {
		return Company{}, ErrCompanyExists
	}
	return c, err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM companies WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SearchByName(ctx context.Context, term string) ([]Company, error) {
	return s.queryCompanies(ctx, companySelect+" WHERE company_name ILIKE '%' || $1 || '%' ORDER BY company_name", term)
}

func (s *Store) SearchByEmail(ctx context.Context, term string) ([]Company, error) {
	return s.queryCompanies(ctx, companySelect+" WHERE email ILIKE '%' || $1 || '%' ORDER BY company_name", term)
}

func (s *Store) Page(ctx context.Context, limit, offset int) ([]Company, int64, error) {
	var total int64
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM companies").Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := s.queryCompanies(ctx, companySelect+" ORDER BY id LIMIT $1 OFFSET $2", limit, offset)
	return items, total, err
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT company_name FROM companies ORDER BY company_name")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := s.DB.QueryRow(ctx, `
    SELECT (SELECT COUNT(1) FROM companies),
           (SELECT COUNT(DISTINCT company_id) FROM gdpr_requests),
           (SELECT COUNT(1) FROM gdpr_requests WHERE status = 'PENDING')
  `).Scan(&stats.TotalCompanies, &stats.CompaniesWithRequests, &stats.PendingRequests)
	return stats, err
}
