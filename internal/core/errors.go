package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound is returned when a referenced transaction, payment,
	// template or catalog entry does not exist (or was soft-deleted).
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the caller lacks the capability
	// an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError reports bad input with field-level detail so forms can be
// redisplayed with the offending field highlighted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExternalServiceError wraps a failure from a collaborator outside the
// application (database, blob store, mail endpoint, spreadsheet).
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
