package wizard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"onboarding-forms-api/internal/domain"
)

const (
	MsgInvalidEmail = "Please enter a valid email address"
	dateLayout      = "2006-01-02"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// plain decimal with optional exponent; no hex, NaN or Inf
	numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// CheckboxSeparator joins the selected option values of a checkbox field
const CheckboxSeparator = ","

// ValidatorFunc checks a non-empty value of a field and returns an error message, or "" when valid
type ValidatorFunc func(f domain.Field, value string) string

// DefaultValidators are the per-type shape checks run after the required check
func DefaultValidators() map[domain.FieldType]ValidatorFunc {
	return map[domain.FieldType]ValidatorFunc{
		domain.FieldTypeEmail:    validateEmail,
		domain.FieldTypeNumber:   validateNumber,
		domain.FieldTypeDate:     validateDate,
		domain.FieldTypeRadio:    validateChoice,
		domain.FieldTypeDropdown: validateChoice,
		domain.FieldTypeSelect:   validateChoice,
		domain.FieldTypeCheckbox: validateCheckbox,
	}
}

// IsEmail reports whether v has the shape local@domain.tld
func IsEmail(v string) bool {
	return emailPattern.MatchString(v)
}

func validateEmail(_ domain.Field, v string) string {
	if !IsEmail(v) {
		return MsgInvalidEmail
	}
	return ""
}

func validateNumber(f domain.Field, v string) string {
	v = strings.TrimSpace(v)
	if !numberPattern.MatchString(v) {
		return fmt.Sprintf("%s must be a number", f.Label)
	}
	// out of float64 range
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return fmt.Sprintf("%s must be a number", f.Label)
	}
	return ""
}

func validateDate(f domain.Field, v string) string {
	if _, err := time.Parse(dateLayout, strings.TrimSpace(v)); err != nil {
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", f.Label)
	}
	return ""
}

func validateChoice(f domain.Field, v string) string {
	if len(f.Options) == 0 || f.HasOption(v) {
		return ""
	}
	return fmt.Sprintf("%s must be one of the listed options", f.Label)
}

// SplitCheckbox returns the selected values of a checkbox value, dropping blanks
func SplitCheckbox(v string) []string {
	var out []string
	for _, part := range strings.Split(v, CheckboxSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateCheckbox accepts any value for a single option-less checkbox;
// otherwise every selected value must be one of the options
func validateCheckbox(f domain.Field, v string) string {
	if len(f.Options) == 0 {
		return ""
	}
	for _, sel := range SplitCheckbox(v) {
		if !f.HasOption(sel) {
			return fmt.Sprintf("%s must only contain listed options", f.Label)
		}
	}
	return ""
}

// RequiredMessage is the error shown for an empty required field
func RequiredMessage(f domain.Field) string {
	return fmt.Sprintf("%s is required", f.Label)
}

// checkField returns the first validation message for value, or ""
func checkField(f domain.Field, value string, present bool, validators map[domain.FieldType]ValidatorFunc) string {
	empty := !present || strings.TrimSpace(value) == ""
	if f.Type == domain.FieldTypeCheckbox && len(f.Options) > 0 {
		empty = len(SplitCheckbox(value)) == 0
	}
	if empty {
		if f.Required {
			return RequiredMessage(f)
		}
		return ""
	}
	if v, ok := validators[f.Type]; ok {
		return v(f, value)
	}
	return ""
}

// CheckValues validates values keyed by field id against every field of schema,
// the way a wizard would after visiting all steps
func CheckValues(schema domain.Schema, values map[string]string) []FieldError {
	validators := DefaultValidators()
	var out []FieldError
	for _, f := range schema.Flatten() {
		v, present := values[f.ID]
		if msg := checkField(f, v, present, validators); msg != "" {
			out = append(out, FieldError{FieldID: f.ID, Label: f.Label, Message: msg})
		}
	}
	return out
}
