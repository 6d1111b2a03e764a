package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	cryptoutil "gdprdesk/internal/platform/crypto"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store  StoreAPI
	secret string
	ttl    time.Duration
	sealer *cryptoutil.Sealer
	mailer Mailer
	from   string
	now    func() time.Time
}

func NewService(store StoreAPI, secret string, ttl time.Duration, sealer *cryptoutil.Sealer, mailer Mailer, from string) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, sealer: sealer, mailer: mailer, from: from, now: time.Now}
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	creds, err := s.store.FindActiveUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(creds.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if creds.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.sealer.OpenString(creds.MFASecretEnc)
		if err != nil || !totp.Validate(mfaCode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	token, err := s.issue(ctx, creds.Profile)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, creds.ID); err != nil {
		zap.S().Warnw("update last_login failed", "userId", creds.ID, "err", err)
	}
	return LoginResult{Token: token, Type: "Bearer", Profile: creds.Profile}, nil
}

func (s *Service) issue(ctx context.Context, p Profile) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateSession(ctx, p.ID, HashToken(sessionID), s.now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return GenerateToken(s.secret, Claims{
		UserID:    p.ID,
		Email:     p.Email,
		Role:      p.Role,
		CompanyID: p.CompanyRef(),
		SessionID: sessionID,
	}, s.ttl)
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// Refresh rotates the session behind a still valid token and returns a new
// token carrying the rotated session id.
func (s *Service) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return "", ErrSessionExpired
	}
	ok, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionExpired
	}
	creds, err := s.store.FindActiveUserByID(ctx, claims.UserID)
	if err != nil {
		return "", ErrSessionExpired
	}

	newSessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}
	if err := s.store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(newSessionID), s.now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return GenerateToken(s.secret, Claims{
		UserID:    creds.ID,
		Email:     creds.Email,
		Role:      creds.Role,
		CompanyID: creds.CompanyRef(),
		SessionID: newSessionID,
	}, s.ttl)
}

// Validate checks the token signature, expiry and session and returns the
// current profile, so role or activation changes are picked up.
func (s *Service) Validate(ctx context.Context, token string) (Profile, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return Profile{}, ErrSessionExpired
	}
	if claims.SessionID != "" {
		ok, err := s.store.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
		if err != nil {
			return Profile{}, err
		}
		if !ok {
			return Profile{}, ErrSessionExpired
		}
	}
	creds, err := s.store.FindActiveUserByID(ctx, claims.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrSessionExpired
	}
	if err != nil {
		return Profile{}, err
	}
	return creds.Profile, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	creds, err := s.store.FindActiveUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(creds.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if !IsStrongPassword(newPassword) {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

const passwordResetTTL = 2 * time.Hour

// ForgotPassword mails a single-use reset token to an active account. The
// current password stays valid until the token is redeemed. Unknown
// addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	creds, err := s.store.FindActiveUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := generateSessionID()
	if err != nil {
		return err
	}
	if err := s.store.CreatePasswordReset(ctx, creds.ID, HashToken(token), s.now().Add(passwordResetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if s.mailer == nil {
		return nil
	}
	body := fmt.Sprintf("Hello %s,\n\nUse this code to choose a new password: %s\nIt expires in 2 hours. If you did not ask for a reset, ignore this email; your password is unchanged.\n", creds.Firstname, token)
	if err := s.mailer.Send(ctx, s.from, creds.Email, "Password reset", body); err != nil {
		zap.S().Warnw("password reset email failed", "userId", creds.ID, "err", err)
	}
	return nil
}

// ResetPassword redeems a reset token, sets the new password and revokes
// every session of the account. It returns the account id for auditing.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (int64, error) {
	if strings.TrimSpace(token) == "" {
		return 0, ErrResetTokenInvalid
	}
	if !IsStrongPassword(newPassword) {
		return 0, ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return 0, err
	}
	userID, err := s.store.ConsumePasswordReset(ctx, HashToken(token))
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrResetTokenInvalid
	}
	if err != nil {
		return 0, err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return 0, err
	}
	if err := s.store.RevokeAllSessions(ctx, userID); err != nil {
		zap.S().Warnw("revoke sessions after reset failed", "userId", userID, "err", err)
	}
	return userID, nil
}

func (s *Service) SetupMFA(ctx context.Context, user UserContext) (MFASetup, error) {
	if !s.sealer.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "gdprdesk",
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	sealed, err := s.sealer.SealString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.store.UpdateMFASecret(ctx, user.UserID, sealed); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, user UserContext, code string) error {
	return s.toggleMFA(ctx, user, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, user UserContext, code string) error {
	return s.toggleMFA(ctx, user, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, user UserContext, code string, enabled bool) error {
	if !s.sealer.Configured() {
		return ErrMFAUnavailable
	}
	creds, err := s.store.FindActiveUserByID(ctx, user.UserID)
	if err != nil {
		return err
	}
	if len(creds.MFASecretEnc) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.sealer.OpenString(creds.MFASecretEnc)
	if err != nil || !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, user.UserID, enabled)
}

func generateSessionID() (string, error) {
	buff := make([]byte, 32)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
