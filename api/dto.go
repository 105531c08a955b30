/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the kiosk and admin API. Engine and store
  types never go on the wire directly: hours become float64, dates and
  clock times become strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Kiosk:     PunchRequest, PunchResponse, PunchCardDTO, SegmentDTO
  Auth:      LoginRequest, LoginResponse
  Employees: EmployeeDTO, EmployeeRequest
  Records:   RecordDTO, RecordRequest, MonthReportDTO, DayDTO, TotalsDTO
  Holidays:  HolidayDTO, HolidayRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go, kiosk.go, auth.go: Use these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// =============================================================================
// KIOSK
// =============================================================================

// PunchRequest is the kiosk punch body (JSON or form fields).
type PunchRequest struct {
	EmployeeID string `json:"employee_id"`
	Segment    string `json:"segment"`
}

// Punch outcomes.
const (
	PunchSuccess = "success"
	PunchWarn    = "warn"
	PunchError   = "error"
)

// PunchResponse reports the outcome of a kiosk punch.
type PunchResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	EmployeeID int    `json:"employee_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Segment    string `json:"segment,omitempty"`
	WorkDate   string `json:"work_date,omitempty"`
	Clock      string `json:"clock,omitempty"`
}

// SegmentDTO is one punchable slot.
type SegmentDTO struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// PunchCardDTO is an employee's month of clock slots.
type PunchCardDTO struct {
	EmployeeID int            `json:"employee_id"`
	Name       string         `json:"name"`
	Area       string         `json:"area"`
	Month      string         `json:"month"`
	Days       []PunchCardDay `json:"days"`
}

// PunchCardDay holds the clock slots of one day keyed by segment tag.
type PunchCardDay struct {
	Date  string            `json:"date"`
	Slots map[string]string `json:"slots"`
	Note  string            `json:"note,omitempty"`
}

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the admin login body.
type LoginRequest struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

// LoginResponse carries a bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Area         string  `json:"area"`
	DefaultBreak float64 `json:"default_break"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// EmployeeRequest creates or updates an employee. ID is ignored on update.
type EmployeeRequest struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Area         string           `json:"area"`
	DefaultBreak *decimal.Decimal `json:"default_break"`
}

func toEmployeeDTO(e store.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Area:         e.Area,
		DefaultBreak: e.DefaultBreak.InexactFloat64(),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// RECORDS
// =============================================================================

// RecordDTO is one stored punch.
type RecordDTO struct {
	EmployeeID int    `json:"employee_id"`
	Date       string `json:"date"`
	Segment    string `json:"segment"`
	Clock      string `json:"clock,omitempty"`
	Note       string `json:"note,omitempty"`
	RecordedAt string `json:"recorded_at,omitempty"`
}

// RecordRequest edits one slot. Clock segments need Clock as HH:MM; the
// leave segment needs a non-empty Note.
type RecordRequest struct {
	Clock string `json:"clock"`
	Note  string `json:"note"`
}

func toRecordDTO(p attendance.PunchEvent) RecordDTO {
	dto := RecordDTO{
		EmployeeID: p.EmployeeID,
		Date:       p.WorkDate.String(),
		Segment:    p.Segment.String(),
		Clock:      p.Clock.String(),
		Note:       p.Note,
	}
	if !p.RecordedAt.IsZero() {
		dto.RecordedAt = p.RecordedAt.Format(time.RFC3339)
	}
	return dto
}

// TotalsDTO is a month's hour totals.
type TotalsDTO struct {
	Regular        float64        `json:"regular"`
	OTTier1        float64        `json:"ot_tier1"`
	OTTier2        float64        `json:"ot_tier2"`
	Holiday        float64        `json:"holiday"`
	AttendanceDays int            `json:"attendance_days"`
	Notes          map[int]string `json:"notes"`
}

// DayDTO is one day of a monthly report.
type DayDTO struct {
	Date      string            `json:"date"`
	Slots     map[string]string `json:"slots"`
	StoredOn  map[string]string `json:"stored_on,omitempty"` // slot -> record date, for night-shift clock-outs
	Note      string            `json:"note,omitempty"`
	Remarks   string            `json:"remarks,omitempty"`
	Regular   float64           `json:"regular"`
	OTTier1   float64           `json:"ot_tier1"`
	OTTier2   float64           `json:"ot_tier2"`
	Holiday   float64           `json:"holiday"`
	IsHoliday bool              `json:"is_holiday"`
	Attended  bool              `json:"attended"`
}

// MonthReportDTO is one employee's computed month.
type MonthReportDTO struct {
	Employee EmployeeDTO `json:"employee"`
	Month    string      `json:"month"`
	Days     []DayDTO    `json:"days"`
	Totals   TotalsDTO   `json:"totals"`
}

// RecordsResponse wraps the reports of a records query.
type RecordsResponse struct {
	Month   string           `json:"month"`
	Reports []MonthReportDTO `json:"reports"`
}

func slotsOf(seg attendance.DaySegments) map[string]string {
	slots := make(map[string]string, len(attendance.ClockSegments))
	for _, s := range attendance.ClockSegments {
		slots[s.String()] = seg.Get(s).String()
	}
	return slots
}

// storedOn maps the moved slots of a day to the date of their record.
func storedOn(moved map[attendance.SegmentType]attendance.Date) map[string]string {
	if len(moved) == 0 {
		return nil
	}
	out := make(map[string]string, len(moved))
	for seg, d := range moved {
		out[seg.String()] = d.String()
	}
	return out
}

func toMonthReportDTO(r attendance.MonthReport) MonthReportDTO {
	days := make([]DayDTO, len(r.Days))
	for i, d := range r.Days {
		a := d.Allocation
		days[i] = DayDTO{
			Date:      d.Date.String(),
			Slots:     slotsOf(d.Segments),
			StoredOn:  storedOn(d.Moved),
			Note:      d.Note,
			Remarks:   d.Remarks,
			Regular:   a.Regular.InexactFloat64(),
			OTTier1:   a.OTTier1.InexactFloat64(),
			OTTier2:   a.OTTier2.InexactFloat64(),
			Holiday:   a.Holiday.InexactFloat64(),
			IsHoliday: a.IsHoliday,
			Attended:  a.Attended,
		}
	}
	t := r.Totals
	notes := t.Notes
	if notes == nil {
		notes = map[int]string{}
	}
	return MonthReportDTO{
		Employee: EmployeeDTO{
			ID:           r.Employee.ID,
			Name:         r.Employee.Name,
			Area:         r.Employee.Area,
			DefaultBreak: r.Employee.DefaultBreak.InexactFloat64(),
		},
		Month: r.Month.String(),
		Days:  days,
		Totals: TotalsDTO{
			Regular:        t.Regular.InexactFloat64(),
			OTTier1:        t.OTTier1.InexactFloat64(),
			OTTier2:        t.OTTier2.InexactFloat64(),
			Holiday:        t.Holiday.InexactFloat64(),
			AttendanceDays: t.AttendanceDays,
			Notes:          notes,
		},
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a calendar holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// HolidayRequest creates a holiday.
type HolidayRequest struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
