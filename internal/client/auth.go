package client

import (
	"context"
	"net/http"
	"time"

	"gdprdesk/internal/domain/users"
)

type AuthClient struct {
	t *transport
}

type loginResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
	User
}

type tokenResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

// Login signs in and publishes the user. mfaCode may be empty for accounts
// without MFA.
func (a *AuthClient) Login(ctx context.Context, email, password, mfaCode string) (*User, error) {
	var resp loginResponse
	err := a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     map[string]string{"email": email, "password": password, "mfaCode": mfaCode},
		out:      &resp,
		messages: authMessages,
	})
	if err != nil {
		return nil, err
	}
	if err := a.t.session.Set(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return a.t.session.User(), nil
}

// Register creates an account. It does not sign in.
func (a *AuthClient) Register(ctx context.Context, input users.CreateInput) (users.User, error) {
	var created users.User
	err := a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     input,
		out:      &created,
		messages: authMessages,
	})
	return created, err
}

// Logout revokes the server session and always clears the local one. The
// server error, if any, is returned after clearing.
func (a *AuthClient) Logout(ctx context.Context) error {
	var err error
	if a.t.session.Token() != "" {
		err = a.t.do(ctx, call{method: http.MethodPost, path: "/auth/logout", messages: authMessages})
	}
	a.t.session.Clear()
	return err
}

func (a *AuthClient) LogoutLocal() {
	a.t.session.Clear()
}

// Refresh swaps the current token for a new one and keeps the user.
func (a *AuthClient) Refresh(ctx context.Context) (string, error) {
	token := a.t.session.Token()
	if token == "" {
		return "", ErrNotAuthenticated
	}
	var resp tokenResponse
	err := a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/refresh",
		body:     map[string]string{"token": token},
		out:      &resp,
		messages: authMessages,
	})
	if err != nil {
		return "", err
	}
	if err := a.t.session.SetToken(resp.Token); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Validate asks the server who the token belongs to and republishes the
// user.
func (a *AuthClient) Validate(ctx context.Context) (*User, error) {
	token := a.t.session.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	var user User
	err := a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/validate",
		body:     map[string]string{"token": token},
		out:      &user,
		messages: authMessages,
	})
	if err != nil {
		return nil, err
	}
	if err := a.t.session.Set(token, user); err != nil {
		return nil, err
	}
	return a.t.session.User(), nil
}

func (a *AuthClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/change-password",
		body:     map[string]string{"oldPassword": oldPassword, "newPassword": newPassword},
		messages: authMessages,
	})
}

func (a *AuthClient) ForgotPassword(ctx context.Context, email string) error {
	return a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/forgot-password",
		body:     map[string]string{"email": email},
		messages: authMessages,
	})
}

// ResetPassword redeems the token mailed by ForgotPassword.
func (a *AuthClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return a.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/reset-password",
		body:     map[string]string{"token": token, "newPassword": newPassword},
		messages: authMessages,
	})
}

// Restore revalidates a stored session at startup. Expired tokens are
// dropped without a server call; a failed validation clears the session.
// A nil user with a nil error means there was nothing to restore.
func (a *AuthClient) Restore(ctx context.Context) (*User, error) {
	token := a.t.session.Token()
	if token == "" {
		return nil, nil
	}
	if TokenExpired(token, time.Now()) {
		a.t.session.Clear()
		return nil, nil
	}
	user, err := a.Validate(ctx)
	if err != nil {
		a.t.session.Clear()
		return nil, err
	}
	return user, nil
}
