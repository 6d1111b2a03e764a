package gdpr

import "strings"

type RequestType string

const (
	TypeAccess        RequestType = "ACCESS"
	TypeDeletion      RequestType = "DELETION"
	TypePortability   RequestType = "PORTABILITY"
	TypeModification  RequestType = "MODIFICATION"
	TypeRectification RequestType = "RECTIFICATION"
)

var RequestTypes = []RequestType{TypeAccess, TypeDeletion, TypePortability, TypeModification, TypeRectification}

var typeAliases = map[string]RequestType{
	"ACCESS":            TypeAccess,
	"DATA_ACCESS":       TypeAccess,
	"DELETION":          TypeDeletion,
	"DATA_DELETION":     TypeDeletion,
	"PORTABILITY":       TypePortability,
	"DATA_PORTABILITY":  TypePortability,
	"MODIFICATION":      TypeModification,
	"DATA_MODIFICATION": TypeModification,
	"RECTIFICATION":     TypeRectification,
	"DATA_CORRECTION":   TypeRectification,
	"CORRECTION":        TypeRectification,
}

var typeLabels = map[RequestType]string{
	TypeAccess:        "Data Access",
	TypeDeletion:      "Data Deletion",
	TypePortability:   "Data Portability",
	TypeModification:  "Data Modification",
	TypeRectification: "Data Correction",
}

var typeIcons = map[RequestType]string{
	TypeAccess:        "visibility",
	TypeDeletion:      "delete",
	TypePortability:   "import_export",
	TypeModification:  "edit",
	TypeRectification: "edit",
}

func ParseRequestType(raw string) (RequestType, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	t, ok := typeAliases[key]
	return t, ok
}

func (t RequestType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

func (t RequestType) Label() string {
	return TypeLabel(string(t))
}

func (t RequestType) Icon() string {
	return TypeIcon(string(t))
}

func TypeLabel(raw string) string {
	if t, ok := ParseRequestType(raw); ok {
		return typeLabels[t]
	}
	if strings.TrimSpace(raw) == "" {
		return "Unknown"
	}
	return raw
}

func TypeIcon(raw string) string {
	if t, ok := ParseRequestType(raw); ok {
		return typeIcons[t]
	}
	return "assignment"
}
