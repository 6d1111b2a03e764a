package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const credentialsQuery = `
    SELECT u.id, u.email, u.firstname, u.lastname, r.name, u.company_id, u.active, u.last_login,
           u.password_hash, u.mfa_enabled, u.mfa_secret_enc
    FROM users u
    JOIN roles r ON u.role_id = r.id
`

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (Credentials, error) {
	var out Credentials
	err := s.DB.QueryRow(ctx, credentialsQuery+" WHERE u.email = lower($1) AND u.active", email).Scan(
		&out.ID, &out.Email, &out.Firstname, &out.Lastname, &out.Role, &out.CompanyID, &out.Active, &out.LastLogin,
		&out.PasswordHash, &out.MFAEnabled, &out.MFASecretEnc,
	)
	return out, err
}

func (s *Store) FindActiveUserByID(ctx context.Context, userID int64) (Credentials, error) {
	var out Credentials
	err := s.DB.QueryRow(ctx, credentialsQuery+" WHERE u.id = $1 AND u.active", userID).Scan(
		&out.ID, &out.Email, &out.Firstname, &out.Lastname, &out.Role, &out.CompanyID, &out.Active, &out.LastLogin,
		&out.PasswordHash, &out.MFAEnabled, &out.MFASecretEnc,
	)
	return out, err
}

func (s *Store) CreateSession(ctx context.Context, userID int64, sessionHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, session_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, sessionHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID int64, sessionHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND session_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, sessionHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID int64, oldHash, newHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET session_hash = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND session_hash = $4 AND revoked_at IS NULL
  `, newHash, expires, userID, oldHash)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID int64, sessionHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND session_hash = $2", userID, sessionHash)
	return err
}

func (s *Store) RevokeAllSessions(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID int64, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

// ConsumePasswordReset marks an unexpired, unused token as used and returns
// its user. A second call with the same token finds no row.
func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string) (int64, error) {
	var userID int64
	err := s.DB.QueryRow(ctx, `
    UPDATE password_resets
    SET used_at = now()
    WHERE token = $1 AND expires_at > now() AND used_at IS NULL
    RETURNING user_id
  `, tokenHash).Scan(&userID)
	return userID, err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID int64, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}
