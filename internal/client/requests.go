package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gdprdesk/internal/domain/gdpr"
)

type RequestClient struct {
	t *transport
}

func (c *RequestClient) list(ctx context.Context, path string, query url.Values) ([]gdpr.Request, error) {
	var out []gdpr.Request
	err := c.t.do(ctx, call{method: http.MethodGet, path: path, query: query, out: &out, messages: requestMessages})
	return out, err
}

func (c *RequestClient) get(ctx context.Context, path string, out any) error {
	return c.t.do(ctx, call{method: http.MethodGet, path: path, out: out, messages: requestMessages})
}

func (c *RequestClient) Mine(ctx context.Context) ([]gdpr.Request, error) {
	return c.list(ctx, "/gdpr-requests/my-requests", nil)
}

func (c *RequestClient) MineByStatus(ctx context.Context, status gdpr.Status) ([]gdpr.Request, error) {
	return c.list(ctx, pathf("/gdpr-requests/my-requests/status/%s", string(status)), nil)
}

func (c *RequestClient) Get(ctx context.Context, id int64) (gdpr.Request, error) {
	var req gdpr.Request
	err := c.get(ctx, pathf("/gdpr-requests/%d", id), &req)
	return req, err
}

// Create submits a request. Each call carries a fresh Idempotency-Key so a
// transport-level retry cannot create a duplicate.
func (c *RequestClient) Create(ctx context.Context, input gdpr.CreateInput) (gdpr.Request, error) {
	var created gdpr.Request
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())
	err := c.t.do(ctx, call{
		method:   http.MethodPost,
		path:     "/gdpr-requests",
		body:     input,
		header:   header,
		out:      &created,
		messages: requestMessages,
	})
	return created, err
}

func (c *RequestClient) UpdateContent(ctx context.Context, id int64, content string) (gdpr.Request, error) {
	var updated gdpr.Request
	err := c.t.do(ctx, call{
		method:   http.MethodPut,
		path:     pathf("/gdpr-requests/%d/content", id),
		body:     map[string]string{"requestContent": content},
		out:      &updated,
		messages: requestMessages,
	})
	return updated, err
}

func (c *RequestClient) Delete(ctx context.Context, id int64) error {
	return c.t.do(ctx, call{method: http.MethodDelete, path: pathf("/gdpr-requests/%d", id), messages: requestMessages})
}

func (c *RequestClient) ValidTypes(ctx context.Context) ([]gdpr.RequestType, error) {
	var out []gdpr.RequestType
	err := c.get(ctx, "/gdpr-requests/valid-types", &out)
	return out, err
}

func (c *RequestClient) ValidStatuses(ctx context.Context) ([]gdpr.Status, error) {
	var out []gdpr.Status
	err := c.get(ctx, "/gdpr-requests/valid-statuses", &out)
	return out, err
}

func (c *RequestClient) ValidateType(ctx context.Context, requestType string) (bool, error) {
	var ok bool
	err := c.get(ctx, pathf("/gdpr-requests/validate/type/%s", requestType), &ok)
	return ok, err
}

// All lists every request the caller may review. Managers get their own
// company's requests only.
func (c *RequestClient) All(ctx context.Context) ([]gdpr.Request, error) {
	return c.list(ctx, "/gdpr-requests", nil)
}

func (c *RequestClient) ByStatus(ctx context.Context, status gdpr.Status) ([]gdpr.Request, error) {
	return c.list(ctx, pathf("/gdpr-requests/status/%s", string(status)), nil)
}

func (c *RequestClient) ByType(ctx context.Context, requestType gdpr.RequestType) ([]gdpr.Request, error) {
	return c.list(ctx, pathf("/gdpr-requests/type/%s", string(requestType)), nil)
}

func (c *RequestClient) ByCompany(ctx context.Context, companyID int64) ([]gdpr.Request, error) {
	return c.list(ctx, pathf("/gdpr-requests/company/%d", companyID), nil)
}

func (c *RequestClient) CompanyPending(ctx context.Context, companyID int64) ([]gdpr.Request, error) {
	return c.list(ctx, pathf("/gdpr-requests/company/%d/pending", companyID), nil)
}

// DateRange lists requests created between two calendar days, inclusive.
func (c *RequestClient) DateRange(ctx context.Context, start, end time.Time) ([]gdpr.Request, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.DateOnly))
	query.Set("end", end.Format(time.DateOnly))
	return c.list(ctx, "/gdpr-requests/date-range", query)
}

func (c *RequestClient) Recent(ctx context.Context) ([]gdpr.Request, error) {
	return c.list(ctx, "/gdpr-requests/recent", nil)
}

func (c *RequestClient) Statistics(ctx context.Context) (gdpr.Statistics, error) {
	var stats gdpr.Statistics
	err := c.get(ctx, "/gdpr-requests/statistics", &stats)
	return stats, err
}

func (c *RequestClient) UpdateStatus(ctx context.Context, id int64, status gdpr.Status) (gdpr.Request, error) {
	var updated gdpr.Request
	err := c.t.do(ctx, call{
		method:   http.MethodPut,
		path:     pathf("/gdpr-requests/%d/status", id),
		body:     map[string]string{"status": string(status)},
		out:      &updated,
		messages: requestMessages,
	})
	return updated, err
}

// BulkUpdateStatus moves every id to status concurrently. The first failure
// cancels the calls still in flight and is the only error reported.
func (c *RequestClient) BulkUpdateStatus(ctx context.Context, ids []int64, status gdpr.Status) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, err := c.UpdateStatus(gctx, id, status)
			return err
		})
	}
	return g.Wait()
}
