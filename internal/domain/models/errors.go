package models

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a value that cannot be computed for lack of history.
// Engines represent it as an absent value; it only surfaces as an error at the top level
// when nothing at all can be produced.
var ErrInsufficientData = errors.New("insufficient data")

// ErrNotFound is returned by catalogs and stores for unknown keys.
var ErrNotFound = errors.New("not found")

// InvalidInputError fails a single computation and names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// Invalid builds an InvalidInputError.
func Invalid(field, format string, a ...interface{}) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// ExternalServiceError wraps a failure of a data or sentiment collaborator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError unless it is nil.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// IsInvalidInput reports whether err is, or wraps, an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}
