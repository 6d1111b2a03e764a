package gdpr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const requestSelect = `
    SELECT r.id, r.request_type, r.request_content, r.status, r.created_at, r.updated_at, r.processed_at,
           r.user_id, r.company_id, u.firstname, u.lastname, u.email, c.company_name, c.email
    FROM gdpr_requests r
    JOIN users u ON u.id = r.user_id
    JOIN companies c ON c.id = r.company_id
`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.RequestType, &req.RequestContent, &req.Status, &req.CreatedAt, &req.UpdatedAt, &req.ProcessedAt,
		&req.UserID, &req.CompanyID, &req.User.Firstname, &req.User.Lastname, &req.User.Email, &req.Company.Name, &req.Company.Email,
	)
	req.User.ID = req.UserID
	req.Company.ID = req.CompanyID
	return req, err
}

func (s *Store) Create(ctx context.Context, userID, companyID int64, requestType RequestType, content string) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO gdpr_requests (request_type, request_content, status, user_id, company_id)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, requestType, content, StatusPending, userID, companyID).Scan(&id)
	return id, err
}

func (s *Store) Get(ctx context.Context, id int64) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, requestSelect+" WHERE r.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func buildWhere(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND r.user_id = $%d", len(args))
	}
	if filter.CompanyID != 0 {
		args = append(args, filter.CompanyID)
		where += fmt.Sprintf(" AND r.company_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND r.request_type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND r.created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND r.created_at <= $%d", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Request, error) {
	where, args := buildWhere(filter)
	rows, err := s.DB.Query(ctx, requestSelect+where+" ORDER BY r.created_at DESC, r.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhere(filter)
	var total int64
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM gdpr_requests r"+where, args...).Scan(&total)
	return total, err
}

// UpdateStatus moves a request only if it is still in the expected state, so
// two reviewers acting at once cannot both succeed.
func (s *Store) UpdateStatus(ctx context.Context, id int64, from, to Status, actorID int64) error {
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
      UPDATE gdpr_requests
      SET status = $3,
          updated_at = now(),
          processed_at = CASE WHEN $3 IN ('PROCESSED', 'REJECTED') THEN now() ELSE processed_at END
      WHERE id = $1 AND status = $2
    `, id, from, to)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInvalidTransition
		}
		var actor any
		if actorID != 0 {
			actor = actorID
		}
		_, err = tx.Exec(ctx, `
      INSERT INTO gdpr_request_history (request_id, from_status, to_status, actor_user_id)
      VALUES ($1,$2,$3,$4)
    `, id, from, to, actor)
		return err
	})
}

func (s *Store) UpdateContent(ctx context.Context, id int64, content string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE gdpr_requests SET request_content = $2, updated_at = now()
    WHERE id = $1 AND status = 'PENDING'
  `, id, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotEditable
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM gdpr_requests WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Statistics(ctx context.Context, companyID int64) (Statistics, error) {
	var stats Statistics
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1),
           COUNT(1) FILTER (WHERE status = 'PENDING'),
           COUNT(1) FILTER (WHERE status = 'IN_PROGRESS'),
           COUNT(1) FILTER (WHERE status = 'PROCESSED'),
           COUNT(1) FILTER (WHERE status = 'REJECTED'),
           COUNT(1) FILTER (WHERE request_type = 'ACCESS'),
           COUNT(1) FILTER (WHERE request_type = 'DELETION'),
           COUNT(1) FILTER (WHERE request_type = 'PORTABILITY'),
           COUNT(1) FILTER (WHERE request_type = 'MODIFICATION'),
           COUNT(1) FILTER (WHERE request_type = 'RECTIFICATION')
    FROM gdpr_requests
    WHERE ($1 = 0 OR company_id = $1)
  `, companyID).Scan(
		&stats.TotalRequests, &stats.PendingRequests, &stats.InProgressRequests, &stats.ProcessedRequests, &stats.RejectedRequests,
		&stats.AccessRequests, &stats.DeletionRequests, &stats.PortabilityRequests, &stats.ModificationRequests, &stats.RectificationRequests,
	)
	return stats, err
}

func (s *Store) History(ctx context.Context, id int64) ([]HistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT request_id, from_status, to_status, COALESCE(actor_user_id, 0), created_at
    FROM gdpr_request_history
    WHERE request_id = $1
    ORDER BY created_at, id
  `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.RequestID, &h.From, &h.To, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UserRef(ctx context.Context, userID int64) (UserRef, error) {
	ref := UserRef{ID: userID}
	err := s.DB.QueryRow(ctx, "SELECT firstname, lastname, email FROM users WHERE id = $1 AND active", userID).
		Scan(&ref.Firstname, &ref.Lastname, &ref.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRef{}, ErrUserNotFound
	}
	return ref, err
}

func (s *Store) CompanyRef(ctx context.Context, companyID int64) (CompanyRef, error) {
	ref := CompanyRef{ID: companyID}
	err := s.DB.QueryRow(ctx, "SELECT company_name, email FROM companies WHERE id = $1", companyID).Scan(&ref.Name, &ref.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return CompanyRef{}, ErrCompanyNotFound
	}
	return ref, err
}

func (s *Store) CompanyManagers(ctx context.Context, companyID int64) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id FROM users u JOIN roles r ON r.id = u.role_id
    WHERE u.company_id = $1 AND u.active AND r.name = 'GERANT'
  `, companyID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// DeleteClosedBefore removes processed and rejected requests whose last
// change is older than cutoff.
func (s *Store) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM gdpr_requests
    WHERE status IN ('PROCESSED', 'REJECTED') AND updated_at < $1
  `, cutoff)
	return tag.RowsAffected(), err
}
