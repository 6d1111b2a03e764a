package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"gdprdesk/internal/domain/companies"
)

type CompanyClient struct {
	t *transport
}

func (c *CompanyClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.t.do(ctx, call{method: http.MethodGet, path: path, query: query, out: out, messages: companyMessages})
}

func (c *CompanyClient) List(ctx context.Context) ([]companies.Company, error) {
	var out []companies.Company
	err := c.get(ctx, "/companies", nil, &out)
	return out, err
}

func (c *CompanyClient) Get(ctx context.Context, id int64) (companies.Company, error) {
	var out companies.Company
	err := c.get(ctx, pathf("/companies/%d", id), nil, &out)
	return out, err
}

func (c *CompanyClient) ByEmail(ctx context.Context, email string) (companies.Company, error) {
	var out companies.Company
	err := c.get(ctx, pathf("/companies/email/%s", email), nil, &out)
	return out, err
}

func (c *CompanyClient) ByName(ctx context.Context, name string) (companies.Company, error) {
	var out companies.Company
	err := c.get(ctx, pathf("/companies/name/%s", name), nil, &out)
	return out, err
}

func (c *CompanyClient) Create(ctx context.Context, input companies.Input) (companies.Company, error) {
	var out companies.Company
	err := c.t.do(ctx, call{method: http.MethodPost, path: "/companies", body: input, out: &out, messages: companyMessages})
	return out, err
}

func (c *CompanyClient) Update(ctx context.Context, id int64, input companies.Input) (companies.Company, error) {
	var out companies.Company
	err := c.t.do(ctx, call{method: http.MethodPut, path: pathf("/companies/%d", id), body: input, out: &out, messages: companyMessages})
	return out, err
}

func (c *CompanyClient) Delete(ctx context.Context, id int64) error {
	return c.t.do(ctx, call{method: http.MethodDelete, path: pathf("/companies/%d", id), messages: companyMessages})
}

func (c *CompanyClient) SearchByName(ctx context.Context, name string) ([]companies.Company, error) {
	var out []companies.Company
	err := c.get(ctx, "/companies/search/name", url.Values{"name": {name}}, &out)
	return out, err
}

func (c *CompanyClient) SearchByEmail(ctx context.Context, email string) ([]companies.Company, error) {
	var out []companies.Company
	err := c.get(ctx, "/companies/search/email", url.Values{"email": {email}}, &out)
	return out, err
}

// Page fetches one zero-based page of companies.
func (c *CompanyClient) Page(ctx context.Context, page, size int) (companies.Page, error) {
	var out companies.Page
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	err := c.get(ctx, "/companies/paginated", query, &out)
	return out, err
}

func (c *CompanyClient) Statistics(ctx context.Context) (companies.Statistics, error) {
	var out companies.Statistics
	err := c.get(ctx, "/companies/statistics", nil, &out)
	return out, err
}

func (c *CompanyClient) Names(ctx context.Context) ([]string, error) {
	var out []string
	err := c.get(ctx, "/companies/names", nil, &out)
	return out, err
}

func (c *CompanyClient) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var out bool
	err := c.get(ctx, pathf("/companies/exists/email/%s", email), nil, &out)
	return out, err
}

func (c *CompanyClient) ExistsByName(ctx context.Context, name string) (bool, error) {
	var out bool
	err := c.get(ctx, pathf("/companies/exists/name/%s", name), nil, &out)
	return out, err
}
