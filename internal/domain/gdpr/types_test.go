package gdpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeLabelsAndIcons(t *testing.T) {
	tests := []struct {
		raw, label, icon string
	}{
		{"ACCESS", "Data Access", "visibility"},
		{"data-access", "Data Access", "visibility"},
		{"DELETION", "Data Deletion", "delete"},
		{"data-deletion", "Data Deletion", "delete"},
		{"PORTABILITY", "Data Portability", "import_export"},
		{"MODIFICATION", "Data Modification", "edit"},
		{"RECTIFICATION", "Data Correction", "edit"},
		{"data-correction", "Data Correction", "edit"},
		{"OBJECTION", "OBJECTION", "assignment"},
		{"", "Unknown", "assignment"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, TypeLabel(tt.raw), tt.raw)
		assert.Equal(t, tt.icon, TypeIcon(tt.raw), tt.raw)
	}
}

func TestParseRequestType(t *testing.T) {
	for _, rt := range RequestTypes {
		got, ok := ParseRequestType(string(rt))
		assert.True(t, ok)
		assert.Equal(t, rt, got)
		assert.True(t, got.Valid())
	}
	_, ok := ParseRequestType("objection")
	assert.False(t, ok)
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "Jane Doe", UserRef{ID: 3, Firstname: "Jane", Lastname: "Doe"}.DisplayName())
	assert.Equal(t, "User #3", UserRef{ID: 3}.DisplayName())
	assert.Equal(t, "Acme", CompanyRef{ID: 9, Name: "Acme"}.DisplayName())
	assert.Equal(t, "Company #9", CompanyRef{ID: 9}.DisplayName())
}
