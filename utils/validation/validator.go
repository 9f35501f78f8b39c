package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			field := strings.ToLower(e.Field())
			switch e.Tag() {
			case "required":
				errs[field] = fmt.Sprintf("%s is required", e.Field())
			case "email":
				errs[field] = "Invalid email format"
			case "min":
				errs[field] = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
			case "max":
				errs[field] = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
			case "gte":
				errs[field] = fmt.Sprintf("%s must be greater than or equal to %s", e.Field(), e.Param())
			case "lte":
				errs[field] = fmt.Sprintf("%s must be less than or equal to %s", e.Field(), e.Param())
			case "oneof":
				errs[field] = fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
			default:
				errs[field] = fmt.Sprintf("%s is invalid", e.Field())
			}
		}
	}

	return errs
}

// Summary joins the formatted errors into one stable, sorted line
func Summary(err error) string {
	formatted := FormatValidationErrors(err)
	if len(formatted) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(formatted))
	for _, m := range formatted {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
