package users

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/platform/validate"
)

const generatedPasswordLength = 12

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Auditor interface {
	Record(ctx context.Context, meta audit.Meta, action, entityType string, entityID int64, before, after any) error
}

type Service struct {
	store   StoreAPI
	auditor Auditor
	mailer  Mailer
	from    string
}

func NewService(store StoreAPI, auditor Auditor, mailer Mailer, from string) *Service {
	return &Service{store: store, auditor: auditor, mailer: mailer, from: from}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.store.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) ListByRole(ctx context.Context, roleID int64) ([]User, error) {
	if _, ok := auth.RoleByID(roleID); !ok {
		return nil, ErrInvalidRole
	}
	return s.store.ListByRole(ctx, roleID)
}

func (s *Service) ListActive(ctx context.Context) ([]User, error) {
	return s.store.ListActive(ctx)
}

// Register is the public sign-up path: the account is always a CLIENT.
func (s *Service) Register(ctx context.Context, in CreateInput) (User, error) {
	in.RoleID = auth.RoleClient.RoleID()
	in.Active = nil
	if strings.TrimSpace(in.Password) == "" {
		return User{}, auth.ErrWeakPassword
	}
	return s.create(ctx, 0, in)
}

// Create is the administrator path. A missing password is generated and
// mailed to the new user.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	return s.create(ctx, actorID, in)
}

func (s *Service) create(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validate.IsValidEmail(email) {
		return User{}, ErrInvalidEmail
	}
	roleID := in.RoleID
	if roleID == 0 {
		roleID = auth.RoleClient.RoleID()
	}
	if _, ok := auth.RoleByID(roleID); !ok {
		return User{}, ErrInvalidRole
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	}

	password := in.Password
	generated := false
	if strings.TrimSpace(password) == "" {
		var err error
		if password, err = auth.GenerateRandomPassword(generatedPasswordLength); err != nil {
			return User{}, err
		}
		generated = true
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	created, err := s.store.Create(ctx, NewUser{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		CompanyID:    in.CompanyID,
		Active:       active,
	})
	if err != nil {
		return User{}, err
	}

	s.record(ctx, actorID, audit.ActionUserCreate, created.ID, nil, created)
	if generated {
		s.mail(ctx, created.Email, "Your GDPR Desk account",
			fmt.Sprintf("Hello %s,\n\nAn account was created for you.\nEmail: %s\nTemporary password: %s\n\nPlease change it after signing in.\n",
				created.Firstname, created.Email, password))
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (User, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	next := existing
	if in.Firstname != nil {
		next.Firstname = strings.TrimSpace(*in.Firstname)
	}
	if in.Lastname != nil {
		next.Lastname = strings.TrimSpace(*in.Lastname)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validate.IsValidEmail(email) {
			return User{}, ErrInvalidEmail
		}
		if email != existing.Email {
			if other, err := s.store.GetByEmail(ctx, email); err == nil && other.ID != id {
				return User{}, ErrEmailTaken
			}
		}
		next.Email = email
	}
	if in.RoleID != nil {
		role, ok := auth.RoleByID(*in.RoleID)
		if !ok {
			return User{}, ErrInvalidRole
		}
		next.RoleID, next.Role = *in.RoleID, role
	}
	if in.CompanyID != nil {
		if *in.CompanyID == 0 {
			next.CompanyID = nil
		} else {
			next.CompanyID = in.CompanyID
		}
	}
	if in.Active != nil {
		if !*in.Active && id == actorID {
			return User{}, ErrSelfAction
		}
		next.Active = *in.Active
	}

	updated, err := s.store.Save(ctx, next)
	if err != nil {
		return User{}, err
	}
	if accessChanged(existing, updated) {
		if err := s.store.RevokeSessions(ctx, id); err != nil {
			return User{}, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	if in.Password != nil && *in.Password != "" {
		if err := s.SetPassword(ctx, actorID, id, *in.Password); err != nil {
			return User{}, err
		}
	}
	s.record(ctx, actorID, audit.ActionUserUpdate, id, existing, updated)
	return updated, nil
}

func (s *Service) Activate(ctx context.Context, actorID, id int64) (User, error) {
	u, err := s.store.SetActive(ctx, id, true)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, audit.ActionUserActivate, id, nil, nil)
	return u, nil
}

func (s *Service) Deactivate(ctx context.Context, actorID, id int64) (User, error) {
	if id == actorID {
		return User{}, ErrSelfAction
	}
	u, err := s.store.SetActive(ctx, id, false)
	if err != nil {
		return User{}, err
	}
	if err := s.store.RevokeSessions(ctx, id); err != nil {
		return User{}, fmt.Errorf("revoke sessions: %w", err)
	}
	s.record(ctx, actorID, audit.ActionUserDeactivate, id, nil, nil)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return ErrSelfAction
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, audit.ActionUserDelete, id, existing, nil)
	return nil
}

// SetPassword is the administrator reset; it does not require the old
// password and signs the user out everywhere.
func (s *Service) SetPassword(ctx context.Context, actorID, id int64, password string) error {
	if len(password) < 8 {
		return auth.ErrWeakPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.SetPasswordHash(ctx, id, hash); err != nil {
		return err
	}
	if err := s.store.RevokeSessions(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.record(ctx, actorID, audit.ActionUserPasswordReset, id, nil, nil)
	return nil
}

// accessChanged reports whether tokens issued before the update carry stale
// authorization: the role and company live in the token claims.
func accessChanged(before, after User) bool {
	if before.RoleID != after.RoleID || (before.Active && !after.Active) {
		return true
	}
	if (before.CompanyID == nil) != (after.CompanyID == nil) {
		return true
	}
	return before.CompanyID != nil && *before.CompanyID != *after.CompanyID
}

func (s *Service) mail(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, s.from, to, subject, body); err != nil {
		zap.S().Warnw("user email failed", "to", to, "err", err)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, before, after any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, audit.MetaFromContext(ctx, actorID), action, "user", id, before, after); err != nil {
		zap.S().Warnw("audit record failed", "action", action, "userId", id, "err", err)
	}
}
