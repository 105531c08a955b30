package attendance

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Aggregate sums daily allocations into month totals. There are no
// month-level caps. Allocations dated outside m are ignored.
func Aggregate(profile EmployeeProfile, m Month, days []DayAllocation, notes map[int]string) MonthTotals {
	t := MonthTotals{
		EmployeeID: profile.ID,
		Month:      m,
		Regular:    decimal.Zero,
		OTTier1:    decimal.Zero,
		OTTier2:    decimal.Zero,
		Holiday:    decimal.Zero,
		Notes:      make(map[int]string, len(notes)),
	}
	maps.Copy(t.Notes, notes)

	for _, d := range days {
		if !d.Date.IsZero() && !m.Contains(d.Date) {
			continue
		}
		t.Regular = t.Regular.Add(d.Regular)
		t.OTTier1 = t.OTTier1.Add(d.OTTier1)
		t.OTTier2 = t.OTTier2.Add(d.OTTier2)
		t.Holiday = t.Holiday.Add(d.Holiday)
		if d.Attended {
			t.AttendanceDays++
		}
	}
	return t
}
