package gdpr

import (
	"strings"

	"gdprdesk/internal/domain/auth"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusProcessed  Status = "PROCESSED"
	StatusRejected   Status = "REJECTED"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusProcessed, StatusRejected}

// Older clients and imports use French and workflow-engine vocabulary.
var statusAliases = map[string]Status{
	"PENDING":     StatusPending,
	"EN_ATTENTE":  StatusPending,
	"IN_PROGRESS": StatusInProgress,
	"EN_COURS":    StatusInProgress,
	"PROCESSING":  StatusInProgress,
	"PROCESSED":   StatusProcessed,
	"COMPLETED":   StatusProcessed,
	"APPROVED":    StatusProcessed,
	"TERMINE":     StatusProcessed,
	"REJECTED":    StatusRejected,
	"REFUSE":      StatusRejected,
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusProcessed, StatusRejected},
	StatusInProgress: {StatusProcessed, StatusRejected},
	StatusProcessed:  nil,
	StatusRejected:   nil,
}

func ParseStatus(raw string) (Status, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	status, ok := statusAliases[key]
	return status, ok
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) Label() string {
	return StatusLabel(string(s))
}

func (s Status) Icon() string {
	return StatusIcon(string(s))
}

// StatusLabel never fails: unknown values come back as-is, or "Unknown" when empty.
func StatusLabel(raw string) string {
	status, ok := ParseStatus(raw)
	if !ok {
		if strings.TrimSpace(raw) == "" {
			return "Unknown"
		}
		return raw
	}
	switch status {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusProcessed:
		return "Processed"
	default:
		return "Rejected"
	}
}

func StatusIcon(raw string) string {
	status, ok := ParseStatus(raw)
	if !ok {
		return "help"
	}
	switch status {
	case StatusPending:
		return "schedule"
	case StatusInProgress:
		return "autorenew"
	case StatusProcessed:
		return "check_circle"
	default:
		return "cancel"
	}
}

func AllowedTransitions(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanChangeStatus combines the role capability with the transition table.
// Company scoping for managers is checked by the service, which knows the
// request's company.
func CanChangeStatus(role auth.Role, from, to Status) bool {
	return auth.Can(role, auth.CapRequestsProcess) && CanTransition(from, to)
}

func CanValidate(role auth.Role, from Status) bool {
	return CanChangeStatus(role, from, StatusProcessed)
}

func CanReject(role auth.Role, from Status) bool {
	return CanChangeStatus(role, from, StatusRejected)
}
