package companies

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/platform/validate"
)

type Auditor interface {
	Record(ctx context.Context, meta audit.Meta, action, entityType string, entityID int64, before, after any) error
}

type Service struct {
	store   StoreAPI
	auditor Auditor
}

func NewService(store StoreAPI, auditor Auditor) *Service {
	return &Service{store: store, auditor: auditor}
}

func normalize(in Input) (string, string, error) {
	name := strings.TrimSpace(in.CompanyName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return "", "", ErrInvalidName
	}
	if !validate.IsValidEmail(email) {
		return "", "", ErrInvalidEmail
	}
	return name, email, nil
}

func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (Company, error) {
	return s.store.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) GetByName(ctx context.Context, name string) (Company, error) {
	return s.store.GetByName(ctx, strings.TrimSpace(name))
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(s.GetByEmail(ctx, email))
}

func (s *Service) ExistsByName(ctx context.Context, name string) (bool, error) {
	return exists(s.GetByName(ctx, name))
}

func exists(_ Company, err error) (bool, error) {
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Create(ctx context.Context, actorID int64, in Input) (Company, error) {
	name, email, err := normalize(in)
	if err != nil {
		return Company{}, err
	}
	taken, err := s.taken(ctx, 0, name, email)
	if err != nil {
		return Company{}, err
	}
	if taken {
		return Company{}, ErrCompanyExists
	}
	created, err := s.store.Create(ctx, name, email)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, actorID, audit.ActionCompanyCreate, created.ID, nil, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, actorID, id int64, in Input) (Company, error) {
	name, email, err := normalize(in)
	if err != nil {
		return Company{}, err
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	taken, err := s.taken(ctx, id, name, email)
	if err != nil {
		return Company{}, err
	}
	if taken {
		return Company{}, ErrCompanyExists
	}
	updated, err := s.store.Update(ctx, id, name, email)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, actorID, audit.ActionCompanyUpdate, id, existing, updated)
	return updated, nil
}

// taken reports whether another company already uses name or email.
func (s *Service) taken(ctx context.Context, selfID int64, name, email string) (bool, error) {
	for _, lookup := range []func() (Company, error){
		func() (Company, error) { return s.store.GetByEmail(ctx, email) },
		func() (Company, error) { return s.store.GetByName(ctx, name) },
	} {
		c, err := lookup()
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if c.ID != selfID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, audit.ActionCompanyDelete, id, existing, nil)
	return nil
}

func (s *Service) SearchByName(ctx context.Context, term string) ([]Company, error) {
	return s.store.SearchByName(ctx, strings.TrimSpace(term))
}

func (s *Service) SearchByEmail(ctx context.Context, term string) ([]Company, error) {
	return s.store.SearchByEmail(ctx, strings.TrimSpace(term))
}

// Page is zero based, matching the listing API.
func (s *Service) Page(ctx context.Context, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	items, total, err := s.store.Page(ctx, size, page*size)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Content:       items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
	}, nil
}

func (s *Service) Names(ctx context.Context) ([]string, error) {
	return s.store.Names(ctx)
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	return s.store.Statistics(ctx)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, before, after any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, audit.MetaFromContext(ctx, actorID), action, "company", id, before, after); err != nil {
		zap.S().Warnw("audit record failed", "action", action, "companyId", id, "err", err)
	}
}
