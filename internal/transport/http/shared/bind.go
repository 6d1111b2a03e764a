package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"gdprdesk/internal/platform/requestctx"
	"gdprdesk/internal/platform/validate"
	"gdprdesk/internal/transport/http/api"
)

var payloadValidator = validate.New()

// DecodeJSON reads the body into dst and runs struct validation. It writes
// the 400 response itself and reports false when the handler should stop.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	reqID := requestctx.GetRequestID(r.Context())
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return false
	}
	if issues := Issues(payloadValidator.Validate(dst)); len(issues) > 0 {
		FailValidation(w, reqID, issues)
		return false
	}
	return true
}

// Issues converts validator errors into field issues. Non-validation
// errors come back as a single issue on the empty field.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationIssue{{Reason: err.Error()}}
	}
	v := NewValidator()
	for _, fe := range fieldErrs {
		v.Add(fe.Field(), reasonFor(fe))
	}
	return v.Issues()
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "gdpr_email", "email":
		return "must be a valid email address"
	case "password_strength":
		return "must contain upper, lower, digit and special characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

// PathID parses a positive int64 URL parameter.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
