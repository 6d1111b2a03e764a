package gdpr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gdprdesk/internal/domain/audit"
	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/domain/notifications"
)

const RecentWindow = 30 * 24 * time.Hour

type Notifier interface {
	Create(ctx context.Context, userID int64, ntype, title, body string) error
	SendEmail(ctx context.Context, to, subject, body string)
}

type Auditor interface {
	Record(ctx context.Context, meta audit.Meta, action, entityType string, entityID int64, before, after any) error
}

type Service struct {
	store    StoreAPI
	notifier Notifier
	auditor  Auditor
	now      func() time.Time
}

func NewService(store StoreAPI, notifier Notifier, auditor Auditor) *Service {
	return &Service{store: store, notifier: notifier, auditor: auditor, now: time.Now}
}

// CanAccess reports whether user may read req: owners, admins and managers of
// the request's company.
func CanAccess(user auth.UserContext, req Request) bool {
	switch {
	case req.UserID == user.UserID:
		return true
	case user.Role == auth.RoleAdmin:
		return true
	case user.Role == auth.RoleManager:
		return user.CompanyID != 0 && user.CompanyID == req.CompanyID
	default:
		return false
	}
}

func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" || len([]rune(content)) > MaxContentLength {
		return "", ErrInvalidContent
	}
	return content, nil
}

func (s *Service) Create(ctx context.Context, user auth.UserContext, in CreateInput) (Request, error) {
	if !auth.Can(user.Role, auth.CapRequestsCreate) {
		return Request{}, ErrForbidden
	}
	requestType, ok := ParseRequestType(in.RequestType)
	if !ok {
		return Request{}, ErrInvalidType
	}
	content, err := normalizeContent(in.RequestContent)
	if err != nil {
		return Request{}, err
	}

	ownerID := user.UserID
	if in.UserID != 0 && in.UserID != user.UserID {
		if user.Role != auth.RoleAdmin {
			return Request{}, ErrForbidden
		}
		ownerID = in.UserID
	}
	companyID := in.CompanyID
	if companyID == 0 {
		companyID = user.CompanyID
	}
	if companyID == 0 {
		return Request{}, ErrCompanyNotFound
	}

	owner, err := s.store.UserRef(ctx, ownerID)
	if err != nil {
		return Request{}, err
	}
	company, err := s.store.CompanyRef(ctx, companyID)
	if err != nil {
		return Request{}, err
	}

	id, err := s.store.Create(ctx, ownerID, companyID, requestType, content)
	if err != nil {
		return Request{}, fmt.Errorf("create gdpr request: %w", err)
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}

	s.record(ctx, user.UserID, audit.ActionRequestCreate, id, nil, req)
	s.notifyCreated(ctx, owner, company, req)
	return req, nil
}

func (s *Service) notifyCreated(ctx context.Context, owner UserRef, company CompanyRef, req Request) {
	if s.notifier == nil {
		return
	}
	title := fmt.Sprintf("GDPR request #%d received", req.ID)
	body := fmt.Sprintf("Hello %s,\n\nYour %s request to %s has been registered and is pending review.\n",
		owner.DisplayName(), req.RequestType.Label(), company.DisplayName())
	if err := s.notifier.Create(ctx, owner.ID, notifications.TypeRequestCreated, title, body); err != nil {
		zap.S().Warnw("request created notification failed", "requestId", req.ID, "err", err)
	}

	companyBody := fmt.Sprintf("A new %s request (#%d) was submitted by %s <%s>.\n\n%s\n",
		req.RequestType.Label(), req.ID, owner.DisplayName(), owner.Email, req.RequestContent)
	s.notifier.SendEmail(ctx, company.Email, "New GDPR request "+fmt.Sprint(req.ID), companyBody)

	managers, err := s.store.CompanyManagers(ctx, company.ID)
	if err != nil {
		zap.S().Warnw("company managers lookup failed", "companyId", company.ID, "err", err)
		return
	}
	for _, managerID := range managers {
		if err := s.notifier.Create(ctx, managerID, notifications.TypeRequestCreated, title, companyBody); err != nil {
			zap.S().Warnw("manager notification failed", "userId", managerID, "err", err)
		}
	}
}

func (s *Service) Get(ctx context.Context, user auth.UserContext, id int64) (Request, error) {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !CanAccess(user, req) {
		return Request{}, ErrForbidden
	}
	return req, nil
}

func (s *Service) History(ctx context.Context, user auth.UserContext, id int64) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, user, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

// List returns requests visible to user narrowed by filter. Managers are
// always pinned to their own company; clients to their own requests.
func (s *Service) List(ctx context.Context, user auth.UserContext, filter Filter) ([]Request, error) {
	scoped, err := scopeFilter(user, filter)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, scoped)
}

func (s *Service) Count(ctx context.Context, user auth.UserContext, filter Filter) (int64, error) {
	scoped, err := scopeFilter(user, filter)
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, scoped)
}

func scopeFilter(user auth.UserContext, filter Filter) (Filter, error) {
	switch {
	case user.Role == auth.RoleAdmin:
		return filter, nil
	case auth.Can(user.Role, auth.CapRequestsReadAll):
		if user.CompanyID == 0 {
			return Filter{}, ErrForbidden
		}
		if filter.CompanyID != 0 && filter.CompanyID != user.CompanyID {
			return Filter{}, ErrForbidden
		}
		filter.CompanyID = user.CompanyID
		return filter, nil
	default:
		if filter.UserID != 0 && filter.UserID != user.UserID {
			return Filter{}, ErrForbidden
		}
		filter.UserID = user.UserID
		return filter, nil
	}
}

func (s *Service) Mine(ctx context.Context, user auth.UserContext, status Status) ([]Request, error) {
	return s.store.List(ctx, Filter{UserID: user.UserID, Status: status})
}

func (s *Service) DateRange(ctx context.Context, user auth.UserContext, start, end time.Time) ([]Request, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	return s.List(ctx, user, Filter{From: &start, To: &end})
}

func (s *Service) Recent(ctx context.Context, user auth.UserContext) ([]Request, error) {
	from := s.now().Add(-RecentWindow)
	return s.List(ctx, user, Filter{From: &from})
}

func (s *Service) Statistics(ctx context.Context, user auth.UserContext) (Statistics, error) {
	switch {
	case user.Role == auth.RoleAdmin:
		return s.store.Statistics(ctx, 0)
	case auth.Can(user.Role, auth.CapRequestsReadAll) && user.CompanyID != 0:
		return s.store.Statistics(ctx, user.CompanyID)
	default:
		return Statistics{}, ErrForbidden
	}
}

func (s *Service) UpdateStatus(ctx context.Context, user auth.UserContext, id int64, rawStatus string) (Request, error) {
	to, ok := ParseStatus(rawStatus)
	if !ok {
		return Request{}, ErrInvalidStatus
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !auth.Can(user.Role, auth.CapRequestsProcess) {
		return Request{}, ErrForbidden
	}
	if user.Role == auth.RoleManager && (user.CompanyID == 0 || user.CompanyID != req.CompanyID) {
		return Request{}, ErrForbidden
	}
	if !CanChangeStatus(user.Role, req.Status, to) {
		return Request{}, ErrInvalidTransition
	}
	if err := s.store.UpdateStatus(ctx, id, req.Status, to, user.UserID); err != nil {
		return Request{}, err
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, user.UserID, audit.ActionRequestStatus, id, map[string]Status{"status": req.Status}, map[string]Status{"status": to})
	s.notifyStatus(ctx, updated, req.Status)
	return updated, nil
}

func (s *Service) notifyStatus(ctx context.Context, req Request, from Status) {
	if s.notifier == nil {
		return
	}
	title := fmt.Sprintf("GDPR request #%d is now %s", req.ID, req.Status.Label())
	body := fmt.Sprintf("Hello %s,\n\nThe status of your %s request changed from %s to %s.\n",
		req.User.DisplayName(), req.RequestType.Label(), from.Label(), req.Status.Label())
	if err := s.notifier.Create(ctx, req.UserID, notifications.TypeRequestStatusChanged, title, body); err != nil {
		zap.S().Warnw("status notification failed", "requestId", req.ID, "err", err)
	}
}

// UpdateContent lets the owner edit a request while it is still pending.
func (s *Service) UpdateContent(ctx context.Context, user auth.UserContext, id int64, rawContent string) (Request, error) {
	content, err := normalizeContent(rawContent)
	if err != nil {
		return Request{}, err
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.UserID != user.UserID {
		return Request{}, ErrForbidden
	}
	if req.Status != StatusPending {
		return Request{}, ErrNotEditable
	}
	if err := s.store.UpdateContent(ctx, id, content); err != nil {
		return Request{}, err
	}
	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, user.UserID, audit.ActionRequestContent, id, map[string]string{"requestContent": req.RequestContent}, map[string]string{"requestContent": content})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, user auth.UserContext, id int64) error {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case auth.Can(user.Role, auth.CapRequestsDeleteAny):
	case req.UserID == user.UserID:
		if req.Status != StatusPending {
			return ErrNotEditable
		}
	default:
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, user.UserID, audit.ActionRequestDelete, id, req, nil)
	return nil
}

// PurgeClosed deletes processed and rejected requests untouched since cutoff.
func (s *Service) PurgeClosed(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.store.DeleteClosedBefore(ctx, cutoff)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, before, after any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, audit.MetaFromContext(ctx, actorID), action, "gdpr_request", id, before, after); err != nil {
		zap.S().Warnw("audit record failed", "action", action, "requestId", id, "err", err)
	}
}
