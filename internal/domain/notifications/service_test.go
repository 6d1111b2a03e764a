package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items  []Notification
	emails map[int64]string
}

func (m *memStore) CreateNotification(_ context.Context, userID int64, ntype, title, body string) error {
	m.items = append(m.items, Notification{ID: int64(len(m.items) + 1), UserID: userID, Type: ntype, Title: title, Body: body, CreatedAt: time.Now()})
	return nil
}

func (m *memStore) UserEmail(_ context.Context, userID int64) (string, error) {
	email, ok := m.emails[userID]
	if !ok {
		return "", errors.New("no rows")
	}
	return email, nil
}

func (m *memStore) ListNotifications(_ context.Context, userID int64, unreadOnly bool, _, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read()) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) CountNotifications(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	items, _ := m.ListNotifications(ctx, userID, unreadOnly, 0, 0)
	return len(items), nil
}

func (m *memStore) MarkRead(_ context.Context, userID, id int64) (bool, error) {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			now := time.Now()
			m.items[i].ReadAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read() {
			now := time.Now()
			m.items[i].ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type failingMailer struct{ calls int }

func (f *failingMailer) Send(context.Context, string, string, string, string) error {
	f.calls++
	return errors.New("smtp down")
}

func TestCreateIgnoresMailFailures(t *testing.T) {
	store := &memStore{emails: map[int64]string{7: "client@gdpr.com"}}
	mailer := &failingMailer{}
	svc := New(store, mailer, "")

	require.NoError(t, svc.Create(context.Background(), 7, TypeRequestCreated, "Request received", "body"))
	require.NoError(t, svc.Create(context.Background(), 8, TypeRequestCreated, "Request received", "body"))

	assert.Len(t, store.items, 2)
	assert.Equal(t, 1, mailer.calls)
}

func TestReadState(t *testing.T) {
	store := &memStore{}
	svc := New(store, nil, "")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Create(ctx, 1, TypeRequestStatusChanged, "t", "b"))
	}
	require.NoError(t, svc.Create(ctx, 2, TypeRequestStatusChanged, "t", "b"))

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.MarkRead(ctx, 1, 1))
	assert.ErrorIs(t, svc.MarkRead(ctx, 1, 4), ErrNotFound)

	count, _ = svc.UnreadCount(ctx, 1)
	assert.Equal(t, 2, count)

	n, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, _ = svc.UnreadCount(ctx, 2)
	assert.Equal(t, 1, count)
}
