/*
Package store defines the persistence contract for employees, punches and
holidays.

PURPOSE:
  The engine reads PunchEvents and never writes. Everything that reaches
  the database goes through Store: kiosk punches, administrator edits,
  employee imports and the holiday calendar.

KEY INVARIANT:
  At most one punch per (employee, work date, segment). AddPunch rejects a
  second one with ErrDuplicatePunch; SavePunch overwrites it (record edit).

IMPLEMENTATIONS:
  - store/sqlite:   default, single file
  - store/postgres: when DATABASE_URL is set
  - store/memory:   tests and demos

GETTERS:
  Single-row getters return (nil, nil) when the row does not exist.
  Delete and update calls return ErrNotFound.

SEE ALSO:
  - attendance/types.go: PunchEvent, the stored event
  - report/report.go: the main reader
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/punchclock/attendance"
)

// =============================================================================
// RECORDS
// =============================================================================

// Employee is a registered worker.
type Employee struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Area         string          `json:"area"`
	DefaultBreak decimal.Decimal `json:"default_break"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Profile returns the engine view of the employee.
func (e Employee) Profile() attendance.EmployeeProfile {
	return attendance.EmployeeProfile{
		ID:           e.ID,
		Name:         e.Name,
		Area:         e.Area,
		DefaultBreak: e.DefaultBreak,
	}
}

// Validate checks the fields the database does not.
func (e Employee) Validate() error {
	if e.ID <= 0 {
		return &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	if e.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if err := attendance.ValidateBreak(e.DefaultBreak); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store persists employees, punches and holidays.
// Implementations are safe for concurrent use.
type Store interface {
	// Employees
	CreateEmployee(ctx context.Context, e Employee) error
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id int) (*Employee, error)
	// ListEmployees returns employees ordered by area, then id.
	// An empty area returns all employees.
	ListEmployees(ctx context.Context, area string) ([]Employee, error)
	ListAreas(ctx context.Context) ([]string, error)
	// DeleteEmployee removes the employee and all their punches.
	DeleteEmployee(ctx context.Context, id int) error

	// Punches
	AddPunch(ctx context.Context, p attendance.PunchEvent) error
	SavePunch(ctx context.Context, p attendance.PunchEvent) error
	GetPunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) (*attendance.PunchEvent, error)
	DeletePunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) error
	// ListPunches returns the employee's punches with from <= WorkDate <= to,
	// ordered by work date, then segment.
	ListPunches(ctx context.Context, employeeID int, from, to attendance.Date) ([]attendance.PunchEvent, error)
	ListAllPunches(ctx context.Context, from, to attendance.Date) ([]attendance.PunchEvent, error)

	// Holidays
	SaveHoliday(ctx context.Context, h attendance.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	// ListHolidays returns the holidays dated in year plus every recurring one.
	ListHolidays(ctx context.Context, year int) ([]attendance.Holiday, error)

	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when updating or deleting a missing row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmployee is returned when the employee id is taken.
	ErrDuplicateEmployee = errors.New("employee id already exists")

	// ErrDuplicatePunch is returned when the slot is already punched.
	ErrDuplicatePunch = errors.New("already punched")
)

// ValidationError reports an invalid record field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmployee) || errors.Is(err, ErrDuplicatePunch)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || attendance.IsClientError(err)
}
