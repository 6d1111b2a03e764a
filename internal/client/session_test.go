package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdprdesk/internal/domain/auth"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "future exp", token: signedToken(t, jwt.MapClaims{"exp": now.Unix() + 1}), want: false},
		{name: "exp equals now", token: signedToken(t, jwt.MapClaims{"exp": now.Unix()}), want: true},
		{name: "past exp", token: signedToken(t, jwt.MapClaims{"exp": now.Unix() - 60}), want: true},
		{name: "missing exp", token: signedToken(t, jwt.MapClaims{"sub": "1"}), want: true},
		{name: "malformed", token: "not-a-jwt", want: true},
		{name: "empty", token: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenExpired(tt.token, now))
		})
	}
}

func TestSessionPublishesChanges(t *testing.T) {
	session := NewSession(NewMemoryStorage())

	var seen []*User
	cancel := session.Subscribe(func(u *User) { seen = append(seen, u) })
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	require.NoError(t, session.Set("tok", User{ID: 1, Email: "admin@gdpr.com", Role: auth.RoleAdmin}))
	require.Len(t, seen, 2)
	assert.Equal(t, auth.RoleAdmin, seen[1].Role)
	assert.True(t, session.IsAdmin())
	assert.False(t, session.IsManager())
	assert.True(t, session.Can(auth.CapUsersManage))

	session.Clear()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
	assert.Empty(t, session.Token())
	assert.False(t, session.Can(auth.CapRequestsCreate))

	cancel()
	require.NoError(t, session.Set("tok", User{ID: 2, Role: auth.RoleClient}))
	assert.Len(t, seen, 3)
}

func TestSessionSubscribersRunInOrder(t *testing.T) {
	session := NewSession(nil)
	var order []string
	session.Subscribe(func(*User) { order = append(order, "first") })
	session.Subscribe(func(*User) { order = append(order, "second") })
	order = nil

	require.NoError(t, session.Set("tok", User{ID: 3, Role: auth.RoleManager}))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, session.IsManager())
	assert.True(t, session.HasRole(auth.RoleAdmin, auth.RoleManager))
}

func TestSessionIsAuthenticated(t *testing.T) {
	session := NewSession(NewMemoryStorage())
	assert.False(t, session.IsAuthenticated())

	require.NoError(t, session.Set(signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), User{ID: 1}))
	assert.True(t, session.IsAuthenticated())

	require.NoError(t, session.SetToken(signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})))
	assert.False(t, session.IsAuthenticated())
}

func TestSessionRestoresFromStorage(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(TokenKey, "stored-token"))
	require.NoError(t, storage.Set(UserKey, `{"id":9,"email":"c@example.com","role":"CLIENT"}`))

	session := NewSession(storage)
	assert.Equal(t, "stored-token", session.Token())
	require.NotNil(t, session.User())
	assert.True(t, session.IsClient())

	require.NoError(t, storage.Set(UserKey, "{broken"))
	session = NewSession(storage)
	assert.Equal(t, "stored-token", session.Token())
	assert.Nil(t, session.User())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)

	_, ok := storage.Get(TokenKey)
	assert.False(t, ok)

	require.NoError(t, storage.Set(TokenKey, "abc"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)
	value, ok := reopened.Get(TokenKey)
	require.True(t, ok)
	assert.Equal(t, "abc", value)

	require.NoError(t, reopened.Delete(TokenKey))
	reopened, err = NewFileStorage(path)
	require.NoError(t, err)
	_, ok = reopened.Get(TokenKey)
	assert.False(t, ok)
}

func TestFileStorageIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	storage, err := NewFileStorage(path)
	require.NoError(t, err)
	_, ok := storage.Get(TokenKey)
	assert.False(t, ok)
}
