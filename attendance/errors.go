/*
errors.go - Error types for the attendance engine

PURPOSE:
  The engine itself never fails: missing clock times mean "not worked".
  These errors are raised at the boundary where strings become engine
  values (record edits, imports, query parameters).

USAGE:

    t, err := attendance.ParseClock(raw)
    if errors.Is(err, attendance.ErrInvalidClockTime) {
        // 400
    }

SEE ALSO:
  - store/store.go: persistence errors
  - api/handlers.go: maps both onto HTTP status codes
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidClockTime is returned for anything that is not a strict HH:MM.
	ErrInvalidClockTime = errors.New("invalid clock time, expected HH:MM")

	// ErrInvalidSegment is returned for an unknown punch tag.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrInvalidBreak is returned when a break is not 0, 0.5 or 1 hour.
	ErrInvalidBreak = errors.New("invalid break, expected 0, 0.5 or 1")

	// ErrInvalidMonth is returned for a malformed YYYY-MM.
	ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

	// ErrInvalidDate is returned for a malformed YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ParseError records which field failed to parse and the offending input.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidClockTime) ||
		errors.Is(err, ErrInvalidSegment) ||
		errors.Is(err, ErrInvalidBreak) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDate)
}
