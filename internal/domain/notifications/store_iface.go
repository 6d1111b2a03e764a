package notifications

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateNotification(ctx context.Context, userID int64, ntype, title, body string) error
	UserEmail(ctx context.Context, userID int64) (string, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, userID int64, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
