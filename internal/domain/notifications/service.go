package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Service stores in-app notifications and mirrors them by email when a
// mailer is configured. Email failures are logged and never returned.
type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@gdprdesk.local"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from}
}

func (s *Service) Create(ctx context.Context, userID int64, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}

	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		zap.S().Warnw("notification email lookup failed", "userId", userID, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		zap.S().Warnw("notification email send failed", "userId", userID, "err", err)
	}
	return nil
}

// SendEmail delivers a message to an address that has no account, such as a
// company contact mailbox.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) {
	if s.Mailer == nil || to == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, to, subject, body); err != nil {
		zap.S().Warnw("email send failed", "to", to, "err", err)
	}
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	return s.store.CountNotifications(ctx, userID, unreadOnly)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.CountNotifications(ctx, userID, true)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	ok, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteOlderThan(ctx, cutoff)
}
