package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid is shorthand for a field-level ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RequireText trims value and checks it is non-empty and at most max runes.
func RequireText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", Invalid(field, "%s is required", field)
	}
	if max > 0 && utf8.RuneCountInString(value) > max {
		return "", Invalid(field, "%s must be at most %d characters", field, max)
	}
	return value, nil
}

// OptionalText trims value and enforces the length limit when present.
func OptionalText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if max > 0 && utf8.RuneCountInString(value) > max {
		return "", Invalid(field, "%s must be at most %d characters", field, max)
	}
	return value, nil
}

// InRange checks min <= v <= max.
func InRange(field string, v, min, max float64) error {
	if v < min || v > max {
		return Invalid(field, "%s must be between %g and %g", field, min, max)
	}
	return nil
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
