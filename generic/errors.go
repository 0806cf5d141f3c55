/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Resolution errors - No record effective as of a date
  2. History errors - Malformed effective-dated histories

USAGE:
  Domain packages can test generic errors:

    if errors.Is(err, generic.ErrNoEffectiveRecord) {
        report.RateGap(...)
    }

SEE ALSO:
  - history.go: Uses these errors
  - billing/rates.go: Wraps these errors with domain context
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
	// ErrNoEffectiveRecord is returned when a history holds no record for a
	// key with an effective date at or before the as-of date. Callers must
	// treat this as a gap requiring explicit handling, never as an implicit
	// zero.
	ErrNoEffectiveRecord = errors.New("no record effective as of date")

	// ErrUnknownKey is returned when a history holds no records at all for
	// the requested key.
	ErrUnknownKey = errors.New("key not present in history")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports a failed effective-dated resolution. It distinguishes
// a key that is entirely absent from one whose records all post-date the
// as-of date, because operators fix those two problems differently.
type NotFoundError struct {
	Key       string
	AsOf      TimePoint
	KeyExists bool // true if records exist, all with later effective dates
}

func (e *NotFoundError) Error() string {
	if e.KeyExists {
		return fmt.Sprintf("no record for %q effective on or before %s", e.Key, e.AsOf)
	}
	return fmt.Sprintf("no records for %q in history", e.Key)
}

func (e *NotFoundError) Unwrap() error {
	if e.KeyExists {
		return ErrNoEffectiveRecord
	}
	return ErrUnknownKey
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a failed resolution,
// regardless of whether the key was missing or merely not yet effective.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoEffectiveRecord) ||
		errors.Is(err, ErrUnknownKey)
}
