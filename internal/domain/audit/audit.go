package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gdprdesk/internal/platform/requestctx"
)

const (
	ActionRequestCreate      = "gdpr_request.create"
	ActionRequestStatus      = "gdpr_request.status"
	ActionRequestContent     = "gdpr_request.content"
	ActionRequestDelete      = "gdpr_request.delete"
	ActionCompanyCreate      = "company.create"
	ActionCompanyUpdate      = "company.update"
	ActionCompanyDelete      = "company.delete"
	ActionUserCreate         = "user.create"
	ActionUserUpdate         = "user.update"
	ActionUserDelete         = "user.delete"
	ActionUserActivate       = "user.activate"
	ActionUserDeactivate     = "user.deactivate"
	ActionUserPasswordReset  = "user.password_reset"
	ActionRetentionRun       = "retention.run"
	ActionAuthPasswordChange = "auth.password_change"
	ActionAuthPasswordReset  = "auth.password_reset"
	ActionAuthMFAEnable      = "auth.mfa_enable"
	ActionAuthMFADisable     = "auth.mfa_disable"
)

type Event struct {
	ID         int64           `json:"id"`
	ActorID    *int64          `json:"actorId,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    int64
}

// Meta carries the request scoped fields of an event.
type Meta struct {
	ActorID   int64
	RequestID string
	IP        string
}

func MetaFromContext(ctx context.Context, actorID int64) Meta {
	return Meta{
		ActorID:   actorID,
		RequestID: requestctx.GetRequestID(ctx),
		IP:        requestctx.GetClientIP(ctx),
	}
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, meta Meta, action, entityType string, entityID int64, before, after any) error {
	beforeJSON, err := marshalSnapshot(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return err
	}

	var actor any
	if meta.ActorID != 0 {
		actor = meta.ActorID
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, actor, action, entityType, strconv.FormatInt(entityID, 10), beforeJSON, afterJSON, meta.RequestID, meta.IP)
	return err
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	selectCols := "id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		selectCols += ", before_json, after_json"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includeDetails {
			dest = append(dest, &evt.Before, &evt.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Service) ListExport(ctx context.Context) ([]Event, error) {
	return s.List(ctx, Filter{}, false, 100000, 0)
}

func (s *Service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM audit_events WHERE created_at < $1", cutoff)
	return tag.RowsAffected(), err
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.ActorID != 0 {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_user_id = $%d", len(args))
	}
	return query, args
}
