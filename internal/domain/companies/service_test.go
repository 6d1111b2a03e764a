package companies

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	nextID int64
	items  map[int64]Company
}

func newMemStore() *memStore {
	return &memStore{items: map[int64]Company{}}
}

func (m *memStore) sorted() []Company {
	out := []Company{}
	for _, c := range m.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) find(match func(Company) bool) (Company, error) {
	for _, c := range m.sorted() {
		if match(c) {
			return c, nil
		}
	}
	return Company{}, ErrNotFound
}

func (m *memStore) List(context.Context) ([]Company, error) { return m.sorted(), nil }

func (m *memStore) Get(_ context.Context, id int64) (Company, error) {
	return m.find(func(c Company) bool { return c.ID == id })
}

func (m *memStore) GetByEmail(_ context.Context, email string) (Company, error) {
	return m.find(func(c Company) bool { return strings.EqualFold(c.Email, email) })
}

func (m *memStore) GetByName(_ context.Context, name string) (Company, error) {
	return m.find(func(c Company) bool { return strings.EqualFold(c.CompanyName, name) })
}

func (m *memStore) Create(_ context.Context, name, email string) (Company, error) {
	m.nextID++
	c := Company{ID: m.nextID, CompanyName: name, Email: email}
	m.items[c.ID] = c
	return c, nil
}

func (m *memStore) Update(_ context.Context, id int64, name, email string) (Company, error) {
	c := Company{ID: id, CompanyName: name, Email: email}
	m.items[id] = c
	return c, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memStore) SearchByName(_ context.Context, term string) ([]Company, error) {
	var out []Company
	for _, c := range m.sorted() {
		if strings.Contains(strings.ToLower(c.CompanyName), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) SearchByEmail(context.Context, string) ([]Company, error) { return nil, nil }

func (m *memStore) Page(_ context.Context, limit, offset int) ([]Company, int64, error) {
	all := m.sorted()
	end := min(offset+limit, len(all))
	if offset > len(all) {
		offset = len(all)
	}
	return all[offset:end], int64(len(all)), nil
}

func (m *memStore) Names(context.Context) ([]string, error) { return nil, nil }

func (m *memStore) Statistics(context.Context) (Statistics, error) {
	return Statistics{TotalCompanies: int64(len(m.items))}, nil
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, Input{CompanyName: "  Acme  ", Email: " Privacy@Acme.COM "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.CompanyName)
	assert.Equal(t, "privacy@acme.com", c.Email)

	_, err = svc.Create(ctx, 1, Input{CompanyName: "Other", Email: "privacy@acme.com"})
	assert.ErrorIs(t, err, ErrCompanyExists)
	_, err = svc.Create(ctx, 1, Input{CompanyName: "ACME", Email: "new@acme.com"})
	assert.ErrorIs(t, err, ErrCompanyExists)

	_, err = svc.Create(ctx, 1, Input{CompanyName: "A", Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = svc.Create(ctx, 1, Input{CompanyName: "Valid", Email: "no-at-sign"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	ok, err := svc.ExistsByName(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.ExistsByEmail(ctx, "missing@acme.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateKeepsOwnNameAndEmail(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, 1, Input{CompanyName: "Acme", Email: "a@acme.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, Input{CompanyName: "Globex", Email: "g@globex.com"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 1, a.ID, Input{CompanyName: "Acme", Email: "dpo@acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "dpo@acme.com", updated.Email)

	_, err = svc.Update(ctx, 1, a.ID, Input{CompanyName: "Globex", Email: "dpo@acme.com"})
	assert.ErrorIs(t, err, ErrCompanyExists)

	_, err = svc.Update(ctx, 1, 42, Input{CompanyName: "Nope", Email: "n@nope.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPage(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		_, err := svc.Create(ctx, 1, Input{CompanyName: name, Email: strings.ToLower(name) + "@corp.com"})
		require.NoError(t, err)
	}

	page, err := svc.Page(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Charlie", page.Content[0].CompanyName)

	page, err = svc.Page(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Content)

	page, err = svc.Page(ctx, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 10, page.Size)
}
