/*
errors.go - Centralized error types for the leave ledger

PURPOSE:
  All error values in one place. Handlers map these onto the HTTP error
  taxonomy: validation errors reject before any mutation (400), not-found
  errors reject with no mutation (404), anything else is a persistence
  failure surfaced as a generic internal error (500) after rollback.

USAGE:
  Callers classify with the helpers:

    if ledger.IsValidation(err) { ... 400 ... }
    if ledger.IsNotFound(err)   { ... 404 ... }

SEE ALSO:
  - engine.go: returns these from AddLeave/DeleteLeave
  - api/handlers.go: maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCategory is returned for a category outside the closed
	// enumeration, or a payload whose category does not match its shape.
	ErrInvalidCategory = errors.New("invalid leave category")

	// ErrMissingFields is returned when a required payload field is absent.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidTimeRange is returned when a short leave's from-time is
	// after its to-time.
	ErrInvalidTimeRange = errors.New("invalid time range: from after to")

	// ErrInvalidDateRange is returned when a range request's from-date is
	// after its to-date.
	ErrInvalidDateRange = errors.New("invalid date range: from after to")

	// ErrInvalidHalfDayType is returned for a half-day flag outside
	// {before_noon, after_noon}.
	ErrInvalidHalfDayType = errors.New("invalid half day type")

	// ErrInvalidGrantAmount is returned when a grant adjustment is not a
	// positive number.
	ErrInvalidGrantAmount = errors.New("grant amount must be positive")

	// ErrFacultyNotFound is returned when the referenced faculty member
	// does not exist.
	ErrFacultyNotFound = errors.New("faculty not found")

	// ErrLeaveNotFound is returned when the referenced leave event does
	// not exist.
	ErrLeaveNotFound = errors.New("leave record not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DriftError reports a mismatch between the stored denormalized totals
// and what the event log implies. Returned by Engine.Reconcile when the
// projection has drifted and repair was not requested.
type DriftError struct {
	FacultyID      FacultyID
	StoredTotal    decimal.Decimal
	ComputedTotal  decimal.Decimal
	StoredRemain   decimal.Decimal
	ComputedRemain decimal.Decimal
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("balance drift for faculty %s: stored total %s, computed %s",
		e.FacultyID, e.StoredTotal, e.ComputedTotal)
}

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsValidation reports whether the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidHalfDayType) ||
		errors.Is(err, ErrInvalidGrantAmount)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFacultyNotFound) ||
		errors.Is(err, ErrLeaveNotFound)
}
