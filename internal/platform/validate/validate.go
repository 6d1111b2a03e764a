package validate

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"gdprdesk/internal/domain/auth"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// Custom validators
	_ = v.RegisterValidation("gdpr_email", validateEmail)
	_ = v.RegisterValidation("password_strength", validatePasswordStrength)
	_ = v.RegisterValidation("notblank", validateNotBlank)

	// Report json names so field errors match the payload.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// IsValidEmail accepts local@domain.tld with a TLD of at least two letters.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailPattern.MatchString(email)
}

func validateEmail(fl validator.FieldLevel) bool {
	return IsValidEmail(fl.Field().String())
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	return auth.IsStrongPassword(fl.Field().String())
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
