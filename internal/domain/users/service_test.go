package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/auth"
)

type memStore struct {
	nextID  int64
	users   map[int64]User
	hashes  map[int64]string
	revoked map[int64]int
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]User{}, hashes: map[int64]string{}, revoked: map[int64]int{}}
}

func (m *memStore) List(context.Context) ([]User, error) {
	out := []User{}
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) Create(_ context.Context, in NewUser) (User, error) {
	m.nextID++
	role, _ := auth.RoleByID(in.RoleID)
	u := User{ID: m.nextID, Firstname: in.Firstname, Lastname: in.Lastname, Email: in.Email, Role: role, RoleID: in.RoleID, CompanyID: in.CompanyID, Active: in.Active}
	m.users[u.ID] = u
	m.hashes[u.ID] = in.PasswordHash
	return u, nil
}

func (m *memStore) Save(_ context.Context, u User) (User, error) {
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) SetPasswordHash(_ context.Context, id int64, hash string) error {
	m.hashes[id] = hash
	return nil
}

func (m *memStore) SetActive(_ context.Context, id int64, active bool) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Active = active
	m.users[id] = u
	return u, nil
}

func (m *memStore) RevokeSessions(_ context.Context, id int64) error {
	m.revoked[id]++
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	delete(m.users, id)
	return nil
}

func (m *memStore) ListByRole(ctx context.Context, roleID int64) ([]User, error) {
	all, _ := m.List(ctx)
	var out []User
	for _, u := range all {
		if u.RoleID == roleID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) ListActive(ctx context.Context) ([]User, error) {
	all, _ := m.List(ctx)
	var out []User
	for _, u := range all {
		if u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

type captureMailer struct {
	to, body string
}

func (c *captureMailer) Send(_ context.Context, _, to, _, body string) error {
	c.to, c.body = to, body
	return nil
}

func TestRegisterForcesClientRole(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, "")

	u, err := svc.Register(context.Background(), CreateInput{
		Firstname: "Cara", Lastname: "Client", Email: "Cara@Example.com", Password: "Secret!123", RoleID: auth.RoleAdmin.RoleID(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleClient, u.Role)
	assert.Equal(t, "cara@example.com", u.Email)
	assert.True(t, u.Active)
	require.NoError(t, auth.CheckPassword(store.hashes[u.ID], "Secret!123"))

	_, err = svc.Register(context.Background(), CreateInput{Email: "cara@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(context.Background(), CreateInput{Email: "other@example.com"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestCreateGeneratesPassword(t *testing.T) {
	store := newMemStore()
	mailer := &captureMailer{}
	svc := NewService(store, nil, mailer, "no-reply@gdpr.com")

	u, err := svc.Create(context.Background(), 1, CreateInput{
		Firstname: "Greta", Lastname: "Gerant", Email: "greta@acme.com", RoleID: auth.RoleManager.RoleID(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, u.Role)
	assert.Equal(t, "greta@acme.com", mailer.to)

	idx := strings.Index(mailer.body, "Temporary password: ")
	require.GreaterOrEqual(t, idx, 0)
	password := strings.SplitN(mailer.body[idx+len("Temporary password: "):], "\n", 2)[0]
	assert.Len(t, password, generatedPasswordLength)
	assert.NoError(t, auth.CheckPassword(store.hashes[u.ID], password))

	_, err = svc.Create(context.Background(), 1, CreateInput{Email: "x@acme.com", RoleID: 9})
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = svc.Create(context.Background(), 1, CreateInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestUpdateAndLifecycle(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, "")
	ctx := context.Background()

	admin, err := svc.Create(ctx, 0, CreateInput{Firstname: "Ada", Email: "admin@gdpr.com", Password: "admin123", RoleID: 1})
	require.NoError(t, err)
	other, err := svc.Create(ctx, admin.ID, CreateInput{Firstname: "Bo", Email: "bo@gdpr.com", Password: "password1"})
	require.NoError(t, err)

	newName := "Bob"
	company := int64(3)
	updated, err := svc.Update(ctx, admin.ID, other.ID, UpdateInput{Firstname: &newName, CompanyID: &company})
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.Firstname)
	assert.Equal(t, int64(3), *updated.CompanyID)

	taken := "admin@gdpr.com"
	_, err = svc.Update(ctx, admin.ID, other.ID, UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Deactivate(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrSelfAction)
	assert.ErrorIs(t, svc.Delete(ctx, admin.ID, admin.ID), ErrSelfAction)

	u, err := svc.Deactivate(ctx, admin.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, u.Active)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	clients, err := svc.ListByRole(ctx, auth.RoleClient.RoleID())
	require.NoError(t, err)
	assert.Len(t, clients, 1)
	_, err = svc.ListByRole(ctx, 7)
	assert.ErrorIs(t, err, ErrInvalidRole)

	assert.ErrorIs(t, svc.SetPassword(ctx, admin.ID, other.ID, "short"), auth.ErrWeakPassword)
	require.NoError(t, svc.SetPassword(ctx, admin.ID, other.ID, "longer-password"))
	assert.NoError(t, auth.CheckPassword(store.hashes[other.ID], "longer-password"))

	require.NoError(t, svc.Delete(ctx, admin.ID, other.ID))
	_, err = svc.Get(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRevokesSessionsWhenAccessChanges(t *testing.T) {
	ctx := context.Background()
	company := int64(3)
	otherCompany := int64(4)
	noCompany := int64(0)
	clientRole := auth.RoleClient.RoleID()
	inactive := false
	active := true
	name := "Renamed"

	tests := []struct {
		name   string
		in     UpdateInput
		revoke bool
	}{
		{name: "rename keeps sessions", in: UpdateInput{Firstname: &name}},
		{name: "same company keeps sessions", in: UpdateInput{CompanyID: &company}},
		{name: "staying active keeps sessions", in: UpdateInput{Active: &active}},
		{name: "demotion", in: UpdateInput{RoleID: &clientRole}, revoke: true},
		{name: "company move", in: UpdateInput{CompanyID: &otherCompany}, revoke: true},
		{name: "company cleared", in: UpdateInput{CompanyID: &noCompany}, revoke: true},
		{name: "deactivation", in: UpdateInput{Active: &inactive}, revoke: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewService(store, nil, nil, "")
			admin, err := svc.Create(ctx, 0, CreateInput{Email: "admin@gdpr.com", Password: "admin123", RoleID: 1})
			require.NoError(t, err)
			manager, err := svc.Create(ctx, admin.ID, CreateInput{Email: "m@gdpr.com", Password: "password1", RoleID: 3, CompanyID: &company})
			require.NoError(t, err)

			_, err = svc.Update(ctx, admin.ID, manager.ID, tt.in)
			require.NoError(t, err)
			if tt.revoke {
				assert.Equal(t, 1, store.revoked[manager.ID])
			} else {
				assert.Zero(t, store.revoked[manager.ID])
			}
		})
	}
}

func TestAdminPasswordAndDeactivateRevokeSessions(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, "")
	ctx := context.Background()

	admin, err := svc.Create(ctx, 0, CreateInput{Email: "admin@gdpr.com", Password: "admin123", RoleID: 1})
	require.NoError(t, err)
	other, err := svc.Create(ctx, admin.ID, CreateInput{Email: "bo@gdpr.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, admin.ID, other.ID, "longer-password"))
	assert.Equal(t, 1, store.revoked[other.ID])

	_, err = svc.Deactivate(ctx, admin.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.revoked[other.ID])
}
