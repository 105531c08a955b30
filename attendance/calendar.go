package attendance

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day without time of day
// =============================================================================

// Date is a calendar day. It is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate normalises its arguments (e.g. day 0 is the last day of the
// previous month).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate accepts ISO YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ParseError{Field: "date", Input: s, Err: ErrInvalidDate}
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool  { return d.Time().After(o.Time()) }
func (d Date) IsZero() bool       { return d == Date{} }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) YearMonth() Month      { return Month{Year: d.Year, Month: d.Month} }

func (d Date) String() string { return d.Time().Format(dateLayout) }

// MonthDay formats the date as MM-DD, the row label used in reports.
func (d Date) MonthDay() string { return d.Time().Format("01-02") }

// =============================================================================
// MONTH - The period a report covers
// =============================================================================

// Month is one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, &ParseError{Field: "month", Input: s, Err: ErrInvalidMonth}
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }

// First returns the first day of the month.
func (m Month) First() Date { return Date{Year: m.Year, Month: m.Month, Day: 1} }

// Last returns the last day of the month.
func (m Month) Last() Date { return NewDate(m.Year, m.Month+1, 0) }

// Next returns the following month.
func (m Month) Next() Month {
	n := NewDate(m.Year, m.Month+1, 1)
	return Month{Year: n.Year, Month: n.Month}
}

// Window returns the fetch window [first day, first day of next month].
// The extra day holds early-morning clock-outs belonging to the last day.
func (m Month) Window() (from, to Date) {
	return m.First(), m.Next().First()
}

// Contains reports whether d falls in the month.
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// Days returns every day of the month in order.
func (m Month) Days() []Date {
	last := m.Last().Day
	days := make([]Date, 0, last)
	for i := 1; i <= last; i++ {
		days = append(days, Date{Year: m.Year, Month: m.Month, Day: i})
	}
	return days
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Compact formats the month as YYYYMM.
func (m Month) Compact() string { return fmt.Sprintf("%04d%02d", m.Year, int(m.Month)) }

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a company day off. Recurring holidays match the same
// month/day every year.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	Recurring bool
}

// Matches reports whether the holiday falls on d.
func (h Holiday) Matches(d Date) bool {
	if h.Recurring {
		return h.Date.Month == d.Month && h.Date.Day == d.Day
	}
	return h.Date == d
}

// HolidayCalendar decides which days are paid as holiday hours.
type HolidayCalendar interface {
	IsHoliday(d Date) bool
}

// WeekendCalendar treats Saturday and Sunday as holidays.
type WeekendCalendar struct{}

func (WeekendCalendar) IsHoliday(d Date) bool { return d.IsWeekend() }

// NoHolidays is a calendar without any holidays.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) bool { return false }

type holidayCalendar struct {
	base     HolidayCalendar
	holidays []Holiday
}

// WithHolidays extends base with company holidays.
func WithHolidays(base HolidayCalendar, holidays ...Holiday) HolidayCalendar {
	if base == nil {
		base = NoHolidays{}
	}
	return &holidayCalendar{base: base, holidays: holidays}
}

func (c *holidayCalendar) IsHoliday(d Date) bool {
	if c.base.IsHoliday(d) {
		return true
	}
	for _, h := range c.holidays {
		if h.Matches(d) {
			return true
		}
	}
	return false
}
