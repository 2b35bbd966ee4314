package config

import (
	"errors"
	"strings"
)

// MissingFieldError reports required configuration values that are absent.
// It is returned before any remote call that depends on the missing values.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	if len(e.Fields) == 0 {
		return "missing required configuration"
	}
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}

// Missing returns a MissingFieldError naming a single field.
func Missing(field string) error {
	return &MissingFieldError{Fields: []string{field}}
}

// IsMissing reports whether err (or anything it wraps) is a MissingFieldError.
func IsMissing(err error) bool {
	var target *MissingFieldError
	return errors.As(err, &target)
}
