package client

import (
	"context"
	"net/http"
	"net/url"

	"gdprdesk/internal/domain/notifications"
)

type NotificationClient struct {
	t *transport
}

func (c *NotificationClient) List(ctx context.Context, unreadOnly bool) ([]notifications.Notification, error) {
	var query url.Values
	if unreadOnly {
		query = url.Values{"unread": {"true"}}
	}
	var out []notifications.Notification
	err := c.t.do(ctx, call{method: http.MethodGet, path: "/notifications", query: query, out: &out, messages: notificationMessages})
	return out, err
}

func (c *NotificationClient) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.t.do(ctx, call{method: http.MethodGet, path: "/notifications/unread-count", out: &out, messages: notificationMessages})
	return out.Count, err
}

func (c *NotificationClient) MarkRead(ctx context.Context, id int64) error {
	return c.t.do(ctx, call{method: http.MethodPost, path: pathf("/notifications/%d/read", id), messages: notificationMessages})
}

func (c *NotificationClient) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.t.do(ctx, call{method: http.MethodPost, path: "/notifications/read-all", out: &out, messages: notificationMessages})
	return out.Updated, err
}
