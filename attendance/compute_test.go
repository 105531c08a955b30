package attendance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/punchclock/attendance"
)

var march2025 = attendance.Month{Year: 2025, Month: time.March}

func profile() attendance.EmployeeProfile {
	return attendance.EmployeeProfile{ID: 1, Name: "Mei", Area: "kitchen", DefaultBreak: decimal.NewFromInt(1)}
}

func TestComputeMonth(t *testing.T) {
	// GIVEN: a month with a day shift, a night shift, a weekend shift,
	// a leave day and a night shift ending in the next month
	leave := event(t, "2025-03-10", attendance.SegmentLeave, "")
	events := []attendance.PunchEvent{
		event(t, "2025-03-01", attendance.SegmentAMOut, "02:00"), // belongs to February
		event(t, "2025-03-03", attendance.SegmentAMIn, "08:00"),
		event(t, "2025-03-03", attendance.SegmentPMOut, "17:00"),
		event(t, "2025-03-04", attendance.SegmentPMIn, "22:00"),
		event(t, "2025-03-05", attendance.SegmentPMOut, "02:00"),
		event(t, "2025-03-08", attendance.SegmentAMIn, "09:00"),
		event(t, "2025-03-08", attendance.SegmentAMOut, "12:00"),
		leave,
		event(t, "2025-03-31", attendance.SegmentPMIn, "18:00"),
		event(t, "2025-04-01", attendance.SegmentPMOut, "01:00"),
		{EmployeeID: 2, WorkDate: attendance.NewDate(2025, time.March, 3), Segment: attendance.SegmentAMIn, Clock: attendance.NewClock(6, 0)},
	}
	events[3].Note = "covered for Lin"

	// WHEN: computing the month with weekends as holidays
	r := attendance.ComputeMonth(profile(), march2025, events, attendance.WeekendCalendar{}, policy)

	// THEN: every day of the month has a row
	require.Len(t, r.Days, 31)

	byDay := func(d int) attendance.DayRow { return r.Days[d-1] }

	assertHours(t, "8", byDay(3).Allocation.Regular, "03-03")
	assertHours(t, "4", byDay(4).Allocation.Regular, "03-04 night shift")
	assert.Equal(t, "02:00", byDay(4).Segments.Afternoon.Out.String())
	assert.Equal(t, "covered for Lin", byDay(4).Remarks)
	assert.False(t, byDay(5).Allocation.Attended, "clock-out moved away")

	assert.True(t, byDay(8).Allocation.IsHoliday)
	assertHours(t, "3", byDay(8).Allocation.Holiday, "saturday")
	assertHours(t, "0", byDay(8).Allocation.Regular)

	assert.Equal(t, attendance.DefaultLeaveNote, byDay(10).Note)
	assert.False(t, byDay(10).Allocation.Attended, "note only")

	assertHours(t, "7", byDay(31).Allocation.Regular, "03-31 into April")
	assertHours(t, "0", byDay(1).Allocation.Worked(), "February clock-out is dropped")

	assertHours(t, "19", r.Totals.Regular)
	assertHours(t, "3", r.Totals.Holiday)
	assertHours(t, "0", r.Totals.OTTier1)
	assert.Equal(t, 4, r.Totals.AttendanceDays)
	assert.Equal(t, map[int]string{10: attendance.DefaultLeaveNote}, r.Totals.Notes)
	assert.Equal(t, []int{10}, r.Totals.NoteDays())
}

func TestComputeMonth_LeaveNoteKept(t *testing.T) {
	ev := event(t, "2025-03-12", attendance.SegmentLeave, "")
	ev.Note = "sick"
	r := attendance.ComputeMonth(profile(), march2025, []attendance.PunchEvent{ev}, nil, policy)
	assert.Equal(t, "sick", r.Days[11].Note)
	assert.Equal(t, "sick", r.Totals.Notes[12])
}

func TestComputeMonth_RemarksDistinctAndSorted(t *testing.T) {
	events := []attendance.PunchEvent{
		event(t, "2025-03-05", attendance.SegmentAMIn, "08:00"),
		event(t, "2025-03-05", attendance.SegmentAMOut, "12:00"),
		event(t, "2025-03-05", attendance.SegmentPMOut, "17:00"),
	}
	events[0].Note = "train late"
	events[1].Note = "badge lost"
	events[2].Note = "train late"

	r := attendance.ComputeMonth(profile(), march2025, events, nil, policy)
	assert.Equal(t, "badge lost; train late", r.Days[4].Remarks)
}

func TestComputeMonth_MovedSlots(t *testing.T) {
	events := []attendance.PunchEvent{
		event(t, "2025-03-05", attendance.SegmentPMIn, "18:00"),
		event(t, "2025-03-06", attendance.SegmentPMOut, "01:30"),
		event(t, "2025-03-06", attendance.SegmentOTOut, "03:00"),
		event(t, "2025-03-05", attendance.SegmentOTOut, "23:00"),
	}

	r := attendance.ComputeMonth(profile(), march2025, events, nil, policy)

	assert.Equal(t, map[attendance.SegmentType]attendance.Date{
		attendance.SegmentPMOut: attendance.NewDate(2025, time.March, 6),
	}, r.Days[4].Moved, "ot-out was overwritten by a same-day record")
	assert.Nil(t, r.Days[5].Moved)
}

func TestComputeMonth_StoreHoliday(t *testing.T) {
	cal := attendance.WithHolidays(attendance.WeekendCalendar{}, attendance.Holiday{Date: attendance.NewDate(2025, time.March, 3)})
	events := []attendance.PunchEvent{
		event(t, "2025-03-03", attendance.SegmentAMIn, "08:00"),
		event(t, "2025-03-03", attendance.SegmentPMOut, "17:00"),
	}
	r := attendance.ComputeMonth(profile(), march2025, events, cal, policy)
	assertHours(t, "8", r.Totals.Holiday)
	assertHours(t, "0", r.Totals.Regular)
	assert.Equal(t, 1, r.Totals.AttendanceDays)
}

func TestComputeMonth_TotalsEqualSumOfDays(t *testing.T) {
	var events []attendance.PunchEvent
	for d := 1; d <= 31; d++ {
		date := attendance.NewDate(2025, time.March, d).String()
		events = append(events,
			event(t, date, attendance.SegmentAMIn, "07:50"),
			event(t, date, attendance.SegmentAMOut, "12:10"),
			event(t, date, attendance.SegmentPMIn, "13:00"),
			event(t, date, attendance.SegmentPMOut, "18:40"),
		)
		if d%3 == 0 {
			events = append(events,
				event(t, date, attendance.SegmentOTIn, "19:30"),
				event(t, date, attendance.SegmentOTOut, "23:55"))
		}
	}

	r := attendance.ComputeMonth(profile(), march2025, events, attendance.WeekendCalendar{}, policy)

	reg, ot1, ot2, hol := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	attended := 0
	for _, row := range r.Days {
		reg = reg.Add(row.Allocation.Regular)
		ot1 = ot1.Add(row.Allocation.OTTier1)
		ot2 = ot2.Add(row.Allocation.OTTier2)
		hol = hol.Add(row.Allocation.Holiday)
		if row.Allocation.Attended {
			attended++
		}
	}
	assert.True(t, reg.Equal(r.Totals.Regular))
	assert.True(t, ot1.Equal(r.Totals.OTTier1))
	assert.True(t, ot2.Equal(r.Totals.OTTier2))
	assert.True(t, hol.Equal(r.Totals.Holiday))
	assert.Equal(t, attended, r.Totals.AttendanceDays)
	assert.Equal(t, 31, attended)
}

func TestAggregate(t *testing.T) {
	days := []attendance.DayAllocation{
		{Date: attendance.NewDate(2025, time.March, 3), Regular: hours("8"), OTTier1: hours("1.5"), Attended: true},
		{Date: attendance.NewDate(2025, time.March, 4), Regular: hours("6"), Attended: true},
		{Date: attendance.NewDate(2025, time.March, 8), Holiday: hours("5"), IsHoliday: true, Attended: true},
		{Date: attendance.NewDate(2025, time.March, 9)},
		{Date: attendance.NewDate(2025, time.April, 1), Regular: hours("8"), Attended: true},
	}
	notes := map[int]string{9: "annual leave"}

	tot := attendance.Aggregate(profile(), march2025, days, notes)

	assertHours(t, "14", tot.Regular)
	assertHours(t, "1.5", tot.OTTier1)
	assertHours(t, "0", tot.OTTier2)
	assertHours(t, "5", tot.Holiday)
	assert.Equal(t, 3, tot.AttendanceDays)
	assert.Equal(t, notes, tot.Notes)

	notes[9] = "changed"
	assert.Equal(t, "annual leave", tot.Notes[9], "notes map is copied")
}
