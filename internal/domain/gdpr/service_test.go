package gdpr

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
)

type memStore struct {
	nextID    int64
	requests  map[int64]Request
	users     map[int64]UserRef
	companies map[int64]CompanyRef
	managers  map[int64][]int64
	history   []HistoryEntry
}

func newMemStore() *memStore {
	return &memStore{
		requests:  map[int64]Request{},
		users:     map[int64]UserRef{},
		companies: map[int64]CompanyRef{},
		managers:  map[int64][]int64{},
	}
}

func (m *memStore) Create(_ context.Context, userID, companyID int64, rt RequestType, content string) (int64, error) {
	m.nextID++
	now := time.Now()
	m.requests[m.nextID] = Request{
		ID: m.nextID, RequestType: rt, RequestContent: content, Status: StatusPending,
		CreatedAt: now, UpdatedAt: now, UserID: userID, CompanyID: companyID,
		User: m.users[userID], Company: m.companies[companyID],
	}
	return m.nextID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]Request, error) {
	out := []Request{}
	for _, r := range m.requests {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if f.CompanyID != 0 && r.CompanyID != f.CompanyID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.RequestType != f.Type {
			continue
		}
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Count(ctx context.Context, f Filter) (int64, error) {
	list, _ := m.List(ctx, f)
	return int64(len(list)), nil
}

func (m *memStore) UpdateStatus(_ context.Context, id int64, from, to Status, actorID int64) error {
	req := m.requests[id]
	if req.Status != from {
		return ErrInvalidTransition
	}
	req.Status = to
	m.requests[id] = req
	m.history = append(m.history, HistoryEntry{RequestID: id, From: from, To: to, ActorID: actorID})
	return nil
}

func (m *memStore) UpdateContent(_ context.Context, id int64, content string) error {
	req := m.requests[id]
	req.RequestContent = content
	m.requests[id] = req
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	delete(m.requests, id)
	return nil
}

func (m *memStore) Statistics(context.Context, int64) (Statistics, error) {
	return Statistics{TotalRequests: int64(len(m.requests))}, nil
}

func (m *memStore) History(_ context.Context, id int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range m.history {
		if h.RequestID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) UserRef(_ context.Context, id int64) (UserRef, error) {
	u, ok := m.users[id]
	if !ok {
		return UserRef{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) CompanyRef(_ context.Context, id int64) (CompanyRef, error) {
	c, ok := m.companies[id]
	if !ok {
		return CompanyRef{}, ErrCompanyNotFound
	}
	return c, nil
}

func (m *memStore) CompanyManagers(_ context.Context, id int64) ([]int64, error) {
	return m.managers[id], nil
}

func (m *memStore) DeleteClosedBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type sentNotification struct {
	userID int64
	ntype  string
}

type fakeNotifier struct {
	created []sentNotification
	emails  []string
}

func (f *fakeNotifier) Create(_ context.Context, userID int64, ntype, _, _ string) error {
	f.created = append(f.created, sentNotification{userID, ntype})
	return nil
}

func (f *fakeNotifier) SendEmail(_ context.Context, to, _, _ string) {
	f.emails = append(f.emails, to)
}

type fakeAuditor struct{ actions []string }

func (f *fakeAuditor) Record(_ context.Context, _ audit.Meta, action, _ string, _ int64, _, _ any) error {
	f.actions = append(f.actions, action)
	return nil
}

var (
	client      = auth.UserContext{UserID: 10, Role: auth.RoleClient, CompanyID: 1}
	otherClient = auth.UserContext{UserID: 11, Role: auth.RoleClient, CompanyID: 1}
	manager     = auth.UserContext{UserID: 20, Role: auth.RoleManager, CompanyID: 1}
	foreignMgr  = auth.UserContext{UserID: 21, Role: auth.RoleManager, CompanyID: 2}
	admin       = auth.UserContext{UserID: 1, Role: auth.RoleAdmin}
)

func newTestService() (*Service, *memStore, *fakeNotifier, *fakeAuditor) {
	store := newMemStore()
	store.users[10] = UserRef{ID: 10, Firstname: "Cara", Lastname: "Client", Email: "cara@example.com"}
	store.users[11] = UserRef{ID: 11, Email: "other@example.com"}
	store.companies[1] = CompanyRef{ID: 1, Name: "Acme", Email: "privacy@acme.test"}
	store.companies[2] = CompanyRef{ID: 2, Name: "Globex", Email: "dpo@globex.test"}
	store.managers[1] = []int64{20}
	notifier := &fakeNotifier{}
	auditor := &fakeAuditor{}
	return NewService(store, notifier, auditor), store, notifier, auditor
}

func TestCreate(t *testing.T) {
	svc, _, notifier, auditor := newTestService()
	ctx := context.Background()

	req, err := svc.Create(ctx, client, CreateInput{RequestType: "data-access", RequestContent: "  send me my data  "})
	require.NoError(t, err)
	assert.Equal(t, TypeAccess, req.RequestType)
	assert.Equal(t, "send me my data", req.RequestContent)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, int64(1), req.CompanyID)

	assert.Equal(t, []sentNotification{{10, "request_created"}, {20, "request_created"}}, notifier.created)
	assert.Equal(t, []string{"privacy@acme.test"}, notifier.emails)
	assert.Equal(t, []string{audit.ActionRequestCreate}, auditor.actions)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, client, CreateInput{RequestType: "OBJECTION", RequestContent: "x"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: "   "})
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: strings.Repeat("a", MaxContentLength+1)})
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: "x", CompanyID: 99})
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	_, err = svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: "x", UserID: 11})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, manager, CreateInput{RequestType: "ACCESS", RequestContent: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	req, err := svc.Create(ctx, admin, CreateInput{RequestType: "ACCESS", RequestContent: "x", UserID: 11, CompanyID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(11), req.UserID)
}

func TestAccessRules(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	req, err := svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: "x"})
	require.NoError(t, err)

	for _, user := range []auth.UserContext{client, manager, admin} {
		_, err := svc.Get(ctx, user, req.ID)
		assert.NoError(t, err, user.Role)
	}
	_, err = svc.Get(ctx, otherClient, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, foreignMgr, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	svc, store, notifier, _ := newTestService()
	ctx := context.Background()
	req, err := svc.Create(ctx, client, CreateInput{RequestType: "DELETION", RequestContent: "erase me"})
	require.NoError(t, err)
	notifier.created = nil

	_, err = svc.UpdateStatus(ctx, client, req.ID, "PROCESSED")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateStatus(ctx, foreignMgr, req.ID, "PROCESSED")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateStatus(ctx, manager, req.ID, "ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, manager, req.ID, "EN_ATTENTE")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := svc.UpdateStatus(ctx, manager, req.ID, "en_cours")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	updated, err = svc.UpdateStatus(ctx, admin, req.ID, "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)

	_, err = svc.UpdateStatus(ctx, admin, req.ID, "PROCESSED")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	history, err := svc.History(ctx, client, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusInProgress, history[0].To)
	assert.Equal(t, int64(20), store.history[0].ActorID)

	assert.Equal(t, []sentNotification{{10, "request_status_changed"}, {10, "request_status_changed"}}, notifier.created)
}

func TestUpdateContentAndDelete(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	req, err := svc.Create(ctx, client, CreateInput{RequestType: "MODIFICATION", RequestContent: "old"})
	require.NoError(t, err)

	_, err = svc.UpdateContent(ctx, otherClient, req.ID, "new")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateContent(ctx, client, req.ID, " new ")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.RequestContent)

	_, err = svc.UpdateStatus(ctx, manager, req.ID, "PROCESSED")
	require.NoError(t, err)

	_, err = svc.UpdateContent(ctx, client, req.ID, "again")
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, svc.Delete(ctx, client, req.ID), ErrNotEditable)
	assert.ErrorIs(t, svc.Delete(ctx, manager, req.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, req.ID))

	_, err = svc.Get(ctx, admin, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScoping(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, client, CreateInput{RequestType: "ACCESS", RequestContent: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, otherClient, CreateInput{RequestType: "ACCESS", RequestContent: "b"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateInput{RequestType: "ACCESS", RequestContent: "c", UserID: 11, CompanyID: 2})
	require.NoError(t, err)

	all, err := svc.List(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := svc.List(ctx, manager, Filter{})
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	_, err = svc.List(ctx, manager, Filter{CompanyID: 2})
	assert.ErrorIs(t, err, ErrForbidden)

	own, err := svc.List(ctx, client, Filter{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	count, err := svc.Count(ctx, admin, Filter{CompanyID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.Statistics(ctx, client)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDateRange(t *testing.T) {
	svc, _, _, _ := newTestService()
	now := time.Now()
	_, err := svc.DateRange(context.Background(), admin, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.Create(context.Background(), client, CreateInput{RequestType: "ACCESS", RequestContent: "a"})
	require.NoError(t, err)
	list, err := svc.DateRange(context.Background(), admin, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	recent, err := svc.Recent(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
