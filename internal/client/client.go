// Package client is a Go SDK for the gdprdesk REST API. It keeps the
// caller's session and exposes one method per endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	maxResponseBytes  = 10 << 20
	unexpectedMessage = "An unexpected error occurred"
)

// APIError is returned for every non-2xx response. Error() is the message
// meant for people.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client bundles the domain clients over one base URL and session.
type Client struct {
	Auth          *AuthClient
	Requests      *RequestClient
	Companies     *CompanyClient
	Users         *UserClient
	Notifications *NotificationClient

	transport *transport
}

type Option func(*transport)

func WithHTTPClient(hc *http.Client) Option {
	return func(t *transport) {
		t.http = hc
	}
}

// New builds a client for baseURL, e.g. http://localhost:8080. The /api
// prefix is added per call.
func New(baseURL string, session *Session, opts ...Option) *Client {
	t := &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
	}
	for _, opt := range opts {
		opt(t)
	}
	return &Client{
		Auth:          &AuthClient{t: t},
		Requests:      &RequestClient{t: t},
		Companies:     &CompanyClient{t: t},
		Users:         &UserClient{t: t},
		Notifications: &NotificationClient{t: t},
		transport:     t,
	}
}

func (c *Client) Session() *Session {
	return c.transport.session
}

func (c *Client) BaseURL() string {
	return c.transport.baseURL
}

type transport struct {
	baseURL string
	http    *http.Client
	session *Session
}

type call struct {
	method   string
	path     string
	query    url.Values
	body     any
	header   http.Header
	out      any
	messages map[int]string
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (t *transport) do(ctx context.Context, c call) error {
	endpoint := t.baseURL + "/api" + c.path
	if len(c.query) > 0 {
		endpoint += "?" + c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", c.method, c.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if t.session != nil {
		if token := t.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", c.method, c.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && t.session != nil {
			t.session.Clear()
		}
		return newAPIError(resp.StatusCode, raw, c.messages)
	}
	if c.out == nil {
		return nil
	}
	return decodeBody(raw, c.out)
}

// decodeBody accepts the {success, data} envelope or a bare JSON value.
func decodeBody(raw []byte, out any) error {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return nil
	}
	if payload[0] == '{' {
		var env envelope
		if err := json.Unmarshal(payload, &env); err == nil && env.Success != nil {
			payload = env.Data
		}
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, raw []byte, messages map[int]string) *APIError {
	apiErr := &APIError{Status: status, Message: unexpectedMessage}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		switch {
		case env.Error != nil:
			apiErr.Code = env.Error.Code
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
		case env.Message != "":
			apiErr.Message = env.Message
		}
	}
	if canned, ok := messages[status]; ok {
		apiErr.Message = canned
	}
	return apiErr
}

func pathf(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			escaped[i] = url.PathEscape(s)
			continue
		}
		escaped[i] = arg
	}
	return fmt.Sprintf(format, escaped...)
}
