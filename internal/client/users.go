package client

import (
	"context"
	"net/http"

	"gdprdesk/internal/domain/users"
)

type UserClient struct {
	t *transport
}

func (c *UserClient) do(ctx context.Context, method, path string, body, out any) error {
	return c.t.do(ctx, call{method: method, path: path, body: body, out: out, messages: userMessages})
}

func (c *UserClient) List(ctx context.Context) ([]users.User, error) {
	var out []users.User
	err := c.do(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

func (c *UserClient) Get(ctx context.Context, id int64) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodGet, pathf("/users/%d", id), nil, &out)
	return out, err
}

func (c *UserClient) ByEmail(ctx context.Context, email string) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodGet, pathf("/users/email/%s", email), nil, &out)
	return out, err
}

// Create adds an account. Without a password the server generates one and
// emails it to the user.
func (c *UserClient) Create(ctx context.Context, input users.CreateInput) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodPost, "/users", input, &out)
	return out, err
}

func (c *UserClient) Update(ctx context.Context, id int64, input users.UpdateInput) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodPut, pathf("/users/%d", id), input, &out)
	return out, err
}

func (c *UserClient) Activate(ctx context.Context, id int64) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodPut, pathf("/users/%d/activate", id), nil, &out)
	return out, err
}

func (c *UserClient) Deactivate(ctx context.Context, id int64) (users.User, error) {
	var out users.User
	err := c.do(ctx, http.MethodPut, pathf("/users/%d/deactivate", id), nil, &out)
	return out, err
}

func (c *UserClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, pathf("/users/%d", id), nil, nil)
}

func (c *UserClient) ByRole(ctx context.Context, roleID int64) ([]users.User, error) {
	var out []users.User
	err := c.do(ctx, http.MethodGet, pathf("/users/role/%d", roleID), nil, &out)
	return out, err
}

func (c *UserClient) Active(ctx context.Context) ([]users.User, error) {
	var out []users.User
	err := c.do(ctx, http.MethodGet, "/users/active", nil, &out)
	return out, err
}

// ChangePassword sets another user's password as an administrator.
func (c *UserClient) ChangePassword(ctx context.Context, id int64, password string) error {
	return c.do(ctx, http.MethodPut, pathf("/users/%d/password", id), map[string]string{"password": password}, nil)
}
