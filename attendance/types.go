/*
Package attendance implements the time-accounting engine.

PURPOSE:
  Turns raw clock events for one employee into hours for payroll. Every
  function in this package is pure: no I/O, no clocks, no globals. The
  policy (night cutoff, lunch point, daily caps) is passed in explicitly.

PIPELINE (leaves first):
  1. Round         clock.go      clock time -> half-hour value
  2. Calc          duration.go   one in/out pair -> regular / tier-1 / tier-2
  3. Reassign      night.go      early-morning clock-outs -> previous day
  4. Allocate      allocator.go  up to three segments -> one DayAllocation
  5. Aggregate     month.go      DayAllocations -> MonthTotals

  ComputeMonth (compute.go) runs 3 -> 4 -> 5 for one employee and month.

KEY CONCEPTS IN THIS FILE (types.go):
  - SegmentType: the six clock tags plus leave
  - PunchEvent: one stored clock event
  - DaySegments: morning / afternoon / overtime pairs for one day
  - DayAllocation, MonthTotals: output value objects

SEE ALSO:
  - calendar.go: Date, Month, HolidayCalendar
  - errors.go: validation errors raised at the edit boundary
*/
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEGMENT TYPE - closed set of punch tags
// =============================================================================

// SegmentType identifies which slot of the day a punch fills.
type SegmentType string

const (
	SegmentAMIn   SegmentType = "am-in"
	SegmentAMOut  SegmentType = "am-out"
	SegmentPMIn   SegmentType = "pm-in"
	SegmentPMOut  SegmentType = "pm-out"
	SegmentOTIn   SegmentType = "ot-in"
	SegmentOTOut  SegmentType = "ot-out"
	SegmentLeave  SegmentType = "leave"
	legacyLeaveTag            = "lv"
)

// ClockSegments lists the six clock slots in display order.
var ClockSegments = []SegmentType{
	SegmentAMIn, SegmentAMOut,
	SegmentPMIn, SegmentPMOut,
	SegmentOTIn, SegmentOTOut,
}

var segmentLabels = map[SegmentType]string{
	SegmentAMIn:  "AM in",
	SegmentAMOut: "AM out",
	SegmentPMIn:  "PM in",
	SegmentPMOut: "PM out",
	SegmentOTIn:  "OT in",
	SegmentOTOut: "OT out",
	SegmentLeave: "Leave / note",
}

// ParseSegmentType accepts the six clock tags, "leave" and the legacy "lv".
func ParseSegmentType(s string) (SegmentType, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if tag == legacyLeaveTag {
		return SegmentLeave, nil
	}
	st := SegmentType(tag)
	if st == SegmentLeave {
		return st, nil
	}
	for _, c := range ClockSegments {
		if st == c {
			return st, nil
		}
	}
	return "", &ParseError{Field: "segment", Input: s, Err: ErrInvalidSegment}
}

// IsOut reports whether the segment closes a shift.
func (s SegmentType) IsOut() bool {
	return s == SegmentAMOut || s == SegmentPMOut || s == SegmentOTOut
}

// IsClock reports whether the segment carries a clock time.
func (s SegmentType) IsClock() bool {
	return s != SegmentLeave && s != ""
}

// Label returns a short human-readable name.
func (s SegmentType) Label() string {
	if l, ok := segmentLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s SegmentType) String() string { return string(s) }

// =============================================================================
// PUNCH EVENT
// =============================================================================

// PunchEvent is one clock event as recorded by the kiosk or an administrator.
// Leave events carry Note and no Clock.
type PunchEvent struct {
	EmployeeID int
	WorkDate   Date
	Segment    SegmentType
	Clock      ClockTime
	Note       string
	RecordedAt time.Time

	// Reassigned is set by the night-shift reassigner once WorkDate has been
	// moved to the previous day. StoredDate then keeps the date the event is
	// recorded under. Neither is persisted.
	Reassigned bool
	StoredDate Date
}

// =============================================================================
// DAY SEGMENTS
// =============================================================================

// Pair is one optional clock-in / clock-out pair.
type Pair struct {
	In  ClockTime
	Out ClockTime
}

// Complete reports whether both ends are present.
func (p Pair) Complete() bool { return p.In.Valid && p.Out.Valid }

// DaySegments holds the three shifts of one employee-day.
type DaySegments struct {
	Morning   Pair
	Afternoon Pair
	Overtime  Pair
}

// Set places a clock time into the slot named by seg. Leave is ignored.
func (d *DaySegments) Set(seg SegmentType, t ClockTime) {
	switch seg {
	case SegmentAMIn:
		d.Morning.In = t
	case SegmentAMOut:
		d.Morning.Out = t
	case SegmentPMIn:
		d.Afternoon.In = t
	case SegmentPMOut:
		d.Afternoon.Out = t
	case SegmentOTIn:
		d.Overtime.In = t
	case SegmentOTOut:
		d.Overtime.Out = t
	}
}

// Get returns the clock time stored in the slot named by seg.
func (d DaySegments) Get(seg SegmentType) ClockTime {
	switch seg {
	case SegmentAMIn:
		return d.Morning.In
	case SegmentAMOut:
		return d.Morning.Out
	case SegmentPMIn:
		return d.Afternoon.In
	case SegmentPMOut:
		return d.Afternoon.Out
	case SegmentOTIn:
		return d.Overtime.In
	case SegmentOTOut:
		return d.Overtime.Out
	}
	return ClockTime{}
}

// =============================================================================
// OUTPUT VALUES
// =============================================================================

// Split is the three-way partition produced for one in/out pair.
type Split struct {
	Regular decimal.Decimal
	OTTier1 decimal.Decimal
	OTTier2 decimal.Decimal
}

// Total returns the sum of all three buckets.
func (s Split) Total() decimal.Decimal {
	return s.Regular.Add(s.OTTier1).Add(s.OTTier2)
}

// DayAllocation is the accounted result for one employee-day.
// On holidays the three work buckets are zero and Holiday carries the total.
type DayAllocation struct {
	Date      Date
	Regular   decimal.Decimal
	OTTier1   decimal.Decimal
	OTTier2   decimal.Decimal
	Holiday   decimal.Decimal
	IsHoliday bool
	Attended  bool
}

// Worked returns all hours of the day regardless of bucket.
func (a DayAllocation) Worked() decimal.Decimal {
	return a.Regular.Add(a.OTTier1).Add(a.OTTier2).Add(a.Holiday)
}

// EmployeeProfile is the per-employee input to the engine.
type EmployeeProfile struct {
	ID           int
	Name         string
	Area         string
	DefaultBreak decimal.Decimal
}

// ValidateBreak accepts 0, 0.5 and 1 hour.
func ValidateBreak(h decimal.Decimal) error {
	for _, allowed := range []decimal.Decimal{decimal.Zero, half, one} {
		if h.Equal(allowed) {
			return nil
		}
	}
	return &ParseError{Field: "default_break", Input: h.String(), Err: ErrInvalidBreak}
}

// MonthTotals is the per-employee summary of one calendar month.
type MonthTotals struct {
	EmployeeID     int
	Month          Month
	Regular        decimal.Decimal
	OTTier1        decimal.Decimal
	OTTier2        decimal.Decimal
	Holiday        decimal.Decimal
	AttendanceDays int
	Notes          map[int]string // day of month -> note text
}

func (t MonthTotals) String() string {
	return fmt.Sprintf("%d %s: regular=%s ot1=%s ot2=%s holiday=%s days=%d",
		t.EmployeeID, t.Month, t.Regular, t.OTTier1, t.OTTier2, t.Holiday, t.AttendanceDays)
}

var (
	half = decimal.New(5, -1)
	one  = decimal.NewFromInt(1)
)
