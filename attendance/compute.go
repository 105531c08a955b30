package attendance

import (
	"sort"
	"strings"
)

// DefaultLeaveNote is shown for a leave event recorded without text.
const DefaultLeaveNote = "leave"

// DayRow is one line of a monthly punch card.
type DayRow struct {
	Date       Date
	Segments   DaySegments
	Note       string // leave note
	Remarks    string // distinct clock-event notes, sorted, "; " separated
	Allocation DayAllocation

	// Moved holds the slots filled by night reassignment, keyed to the date
	// their record is stored under. Edits of those slots address that date.
	Moved map[SegmentType]Date
}

// MonthReport is the engine output for one employee and month.
type MonthReport struct {
	Employee EmployeeProfile
	Month    Month
	Days     []DayRow
	Totals   MonthTotals
}

// ComputeMonth runs night reassignment, daily allocation and monthly
// aggregation for one employee.
//
// events should cover m.Window(). Events of other employees are ignored.
// Events whose (reassigned) date falls outside m are dropped. When two
// events land in the same slot the later one in the input wins.
func ComputeMonth(profile EmployeeProfile, m Month, events []PunchEvent, cal HolidayCalendar, p Policy) MonthReport {
	if cal == nil {
		cal = NoHolidays{}
	}

	days := m.Days()
	rows := make([]DayRow, len(days))
	index := make(map[Date]int, len(days))
	for i, d := range days {
		rows[i].Date = d
		index[d] = i
	}

	remarks := make(map[Date]map[string]bool)
	for _, ev := range Reassign(events, p) {
		if ev.EmployeeID != profile.ID {
			continue
		}
		i, ok := index[ev.WorkDate]
		if !ok {
			continue
		}
		switch {
		case ev.Segment == SegmentLeave:
			rows[i].Note = ev.Note
			if strings.TrimSpace(rows[i].Note) == "" {
				rows[i].Note = DefaultLeaveNote
			}
		case ev.Segment.IsClock() && ev.Clock.Valid:
			rows[i].Segments.Set(ev.Segment, ev.Clock)
			if ev.Reassigned && !ev.StoredDate.IsZero() {
				if rows[i].Moved == nil {
					rows[i].Moved = make(map[SegmentType]Date)
				}
				rows[i].Moved[ev.Segment] = ev.StoredDate
			} else {
				delete(rows[i].Moved, ev.Segment)
			}
			if n := strings.TrimSpace(ev.Note); n != "" {
				if remarks[ev.WorkDate] == nil {
					remarks[ev.WorkDate] = make(map[string]bool)
				}
				remarks[ev.WorkDate][n] = true
			}
		}
	}

	allocations := make([]DayAllocation, len(rows))
	notes := make(map[int]string)
	for i := range rows {
		row := &rows[i]
		row.Allocation = Allocate(row.Segments, profile.DefaultBreak, cal.IsHoliday(row.Date), p)
		row.Allocation.Date = row.Date
		row.Remarks = joinSorted(remarks[row.Date])
		if row.Note != "" {
			notes[row.Date.Day] = row.Note
		}
		allocations[i] = row.Allocation
	}

	return MonthReport{
		Employee: profile,
		Month:    m,
		Days:     rows,
		Totals:   Aggregate(profile, m, allocations, notes),
	}
}

// joinSorted joins the distinct remarks of one day in lexical order.
func joinSorted(set map[string]bool) string {
	list := make([]string, 0, len(set))
	for n := range set {
		list = append(list, n)
	}
	sort.Strings(list)
	return strings.Join(list, "; ")
}

// NoteDays returns the days of t.Notes in ascending order.
func (t MonthTotals) NoteDays() []int {
	days := make([]int, 0, len(t.Notes))
	for d := range t.Notes {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
