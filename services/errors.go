package services

import (
	"errors"

	"gorm.io/gorm"
)

// ValidationError is a broken domain rule: surfaced to the caller with the
// violated rule, nothing mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErr(reason string) error { return &ValidationError{Reason: reason} }

// IsValidation reports whether err is a domain-rule violation (HTTP 400).
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNotFound marks missing entities so handlers can map them to a 404.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err denotes a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
