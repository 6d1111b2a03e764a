package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
)

// Storage keys shared with the browser bundle.
const (
	TokenKey = "gdpr_auth_token"
	UserKey  = "gdpr_user_info"
)

// User is the signed-in account as returned by login and validate.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Role      auth.Role `json:"role"`
	CompanyID *int64    `json:"companyId,omitempty"`
}

func (u User) CompanyRef() int64 {
	if u.CompanyID == nil {
		return 0
	}
	return *u.CompanyID
}

type subscriber struct {
	id int
	fn func(*User)
}

// Session holds the bearer token and current user, mirrors them into
// Storage and publishes user changes to subscribers.
type Session struct {
	mu      sync.RWMutex
	storage Storage
	token   string
	user    *User
	subs    []subscriber
	nextID  int
	now     func() time.Time
}

// NewSession restores any token and user saved in storage. A user entry
// that does not decode is treated as absent.
func NewSession(storage Storage) *Session {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Session{storage: storage, now: time.Now}
	if token, ok := storage.Get(TokenKey); ok {
		s.token = token
	}
	if raw, ok := storage.Get(UserKey); ok {
		var user User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			zap.S().Warnw("discarding unreadable stored user", "err", err)
		} else {
			s.user = &user
		}
	}
	return s
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil when signed out.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Set stores a new token and user and notifies subscribers.
func (s *Session) Set(token string, user User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	if err := s.storage.Set(TokenKey, token); err != nil {
		return err
	}
	if err := s.storage.Set(UserKey, string(raw)); err != nil {
		return err
	}
	s.publish()
	return nil
}

// SetToken replaces the token and keeps the user, as after a refresh.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.storage.Set(TokenKey, token)
}

// Clear forgets the token and user and publishes nil.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.storage.Delete(TokenKey); err != nil {
		zap.S().Warnw("clear stored token failed", "err", err)
	}
	if err := s.storage.Delete(UserKey); err != nil {
		zap.S().Warnw("clear stored user failed", "err", err)
	}
	s.publish()
}

// Subscribe calls fn with the current user right away and then on every
// change until cancel is called.
func (s *Session) Subscribe(fn func(*User)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	current := copyUser(s.user)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Session) publish() {
	s.mu.RLock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	user := s.user
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(copyUser(user))
	}
}

// IsAuthenticated is true when a token is held and its exp claim is still
// in the future. The signature is not checked here.
func (s *Session) IsAuthenticated() bool {
	token := s.Token()
	if token == "" {
		return false
	}
	return !TokenExpired(token, s.now())
}

func (s *Session) HasRole(roles ...auth.Role) bool {
	user := s.User()
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

func (s *Session) IsAdmin() bool   { return s.HasRole(auth.RoleAdmin) }
func (s *Session) IsManager() bool { return s.HasRole(auth.RoleManager) }
func (s *Session) IsClient() bool  { return s.HasRole(auth.RoleClient) }

// Can reports whether the current user's role grants a capability.
func (s *Session) Can(capability auth.Capability) bool {
	user := s.User()
	return user != nil && auth.Can(user.Role, capability)
}

// TokenExpired decodes the exp claim without verifying the signature.
// Malformed tokens and tokens without exp count as expired.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !now.Before(exp.Time)
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
