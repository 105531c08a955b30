package attendance

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIME - wall-clock HH:MM within a day
// =============================================================================

// ClockTime is a wall-clock reading. The zero value is "absent".
type ClockTime struct {
	Hour   int
	Minute int
	Valid  bool
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// NewClock returns a present clock time. It does not validate the range;
// use ParseClock for untrusted input.
func NewClock(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute, Valid: true}
}

// ClockOf returns the wall-clock reading of t, truncated to the minute.
func ClockOf(t time.Time) ClockTime {
	return NewClock(t.Hour(), t.Minute())
}

// ParseClock accepts strict HH:MM (00:00 .. 23:59).
func ParseClock(s string) (ClockTime, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return ClockTime{}, &ParseError{Field: "clock", Input: s, Err: ErrInvalidClockTime}
	}
	h := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	min := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return NewClock(h, min), nil
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// AtOrBefore reports whether c is not later than other on the same day.
func (c ClockTime) AtOrBefore(other ClockTime) bool { return c.Minutes() <= other.Minutes() }

func (c ClockTime) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// =============================================================================
// TIME ROUNDER
// =============================================================================

// Role says which end of a shift a clock time is.
type Role int

const (
	RoleClockIn Role = iota
	RoleClockOut
)

// Round snaps a clock time to the half-hour grid.
//
// Clock-in rounds in the employer's favour: any minute past the hour counts
// as the next half hour, 40 and later as the next full hour. Clock-out
// rounds down until minute 25, to the half hour until 55, then up.
func Round(t ClockTime, role Role) decimal.Decimal {
	h := decimal.NewFromInt(int64(t.Hour))
	m := t.Minute
	switch role {
	case RoleClockIn:
		switch {
		case m == 0:
			return h
		case m < 40:
			return h.Add(half)
		default:
			return h.Add(one)
		}
	default:
		switch {
		case m < 25:
			return h
		case m < 55:
			return h.Add(half)
		default:
			return h.Add(one)
		}
	}
}
