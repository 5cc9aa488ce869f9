/*
errors.go - Centralized error types for the engine

PURPOSE:
  Sentinel errors shared by the domain package and the stores. Domain
  packages wrap these with context; callers test with errors.Is.

ERROR CATEGORIES:
  1. Lookup errors - referenced employee/record does not exist
  2. Input errors - malformed periods, dates or statuses

SEE ALSO:
  - leave/validator.go: validation codes (a closed set, not sentinels)
  - api/handlers.go: maps these to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntityNotFound is returned when a referenced employee doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrRecordNotFound is returned when a referenced leave record doesn't exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for malformed client input other than periods.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing object.
type NotFoundError struct {
	Kind string // "employee", "record"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "record" {
		return ErrRecordNotFound
	}
	return ErrEntityNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) || errors.Is(err, ErrRecordNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrInvalidInput)
}
