package gdpr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gdprdesk/internal/domain/auth"
)

func TestParseStatusAliases(t *testing.T) {
	tests := map[string]Status{
		"PENDING":     StatusPending,
		"en_attente":  StatusPending,
		"En-Cours":    StatusInProgress,
		"processing":  StatusInProgress,
		"in progress": StatusInProgress,
		"COMPLETED":   StatusProcessed,
		"approved":    StatusProcessed,
		"TERMINE":     StatusProcessed,
		"refuse":      StatusRejected,
		" REJECTED ":  StatusRejected,
	}
	for raw, want := range tests {
		got, ok := ParseStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseStatus("ARCHIVED")
	assert.False(t, ok)
}

func TestStatusLabelsAndIcons(t *testing.T) {
	tests := []struct {
		raw, label, icon string
	}{
		{"PENDING", "Pending", "schedule"},
		{"IN_PROGRESS", "In Progress", "autorenew"},
		{"PROCESSED", "Processed", "check_circle"},
		{"REJECTED", "Rejected", "cancel"},
		{"EN_ATTENTE", "Pending", "schedule"},
		{"ARCHIVED", "ARCHIVED", "help"},
		{"", "Unknown", "help"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, StatusLabel(tt.raw), tt.raw)
		assert.Equal(t, tt.icon, StatusIcon(tt.raw), tt.raw)
	}
}

func TestTransitionTable(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusInProgress}:   true,
		{StatusPending, StatusProcessed}:    true,
		{StatusPending, StatusRejected}:     true,
		{StatusInProgress, StatusProcessed}: true,
		{StatusInProgress, StatusRejected}:  true,
	}
	for _, from := range Statuses {
		for _, to := range Statuses {
			assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusProcessed.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, Status("BOGUS").Terminal())
	assert.Empty(t, AllowedTransitions(StatusRejected))
	assert.Equal(t, []Status{StatusProcessed, StatusRejected}, AllowedTransitions(StatusInProgress))
}

func TestCanChangeStatusByRole(t *testing.T) {
	assert.True(t, CanChangeStatus(auth.RoleAdmin, StatusPending, StatusProcessed))
	assert.True(t, CanChangeStatus(auth.RoleManager, StatusInProgress, StatusRejected))
	assert.False(t, CanChangeStatus(auth.RoleClient, StatusPending, StatusProcessed))
	assert.False(t, CanChangeStatus(auth.RoleAdmin, StatusProcessed, StatusPending))

	assert.True(t, CanValidate(auth.RoleManager, StatusPending))
	assert.False(t, CanValidate(auth.RoleManager, StatusRejected))
	assert.True(t, CanReject(auth.RoleAdmin, StatusInProgress))
	assert.False(t, CanReject(auth.RoleClient, StatusInProgress))
}
