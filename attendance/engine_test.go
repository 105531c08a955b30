package attendance_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/punchclock/attendance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func clock(t *testing.T, s string) attendance.ClockTime {
	t.Helper()
	c, err := attendance.ParseClock(s)
	require.NoError(t, err)
	return c
}

func hours(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertHours(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.True(t, got.Equal(hours(want)), "%s: want %s, got %s", strings.Join(label, " "), want, got.String())
}

func assertSplit(t *testing.T, reg, ot1, ot2 string, s attendance.Split) {
	t.Helper()
	assertHours(t, reg, s.Regular, "regular")
	assertHours(t, ot1, s.OTTier1, "tier-1")
	assertHours(t, ot2, s.OTTier2, "tier-2")
}

var policy = attendance.DefaultPolicy()

// =============================================================================
// PARSING
// =============================================================================

func TestParseClock(t *testing.T) {
	c, err := attendance.ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, attendance.NewClock(8, 5), c)
	assert.Equal(t, "08:05", c.String())

	for _, bad := range []string{"", "8:05", "24:00", "12:60", "ab:cd", "12:00:00", " 12:00"} {
		_, err := attendance.ParseClock(bad)
		assert.ErrorIs(t, err, attendance.ErrInvalidClockTime, "input %q", bad)
		assert.True(t, attendance.IsClientError(err))
	}
}

func TestParseSegmentType(t *testing.T) {
	for _, tag := range []string{"am-in", "am-out", "pm-in", "pm-out", "ot-in", "ot-out", "leave"} {
		st, err := attendance.ParseSegmentType(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, st.String())
	}

	st, err := attendance.ParseSegmentType("lv")
	require.NoError(t, err)
	assert.Equal(t, attendance.SegmentLeave, st, "legacy leave tag")

	st, err = attendance.ParseSegmentType("AM-IN")
	require.NoError(t, err)
	assert.Equal(t, attendance.SegmentAMIn, st)

	_, err = attendance.ParseSegmentType("lunch")
	var pe *attendance.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "segment", pe.Field)
	assert.ErrorIs(t, err, attendance.ErrInvalidSegment)

	assert.True(t, attendance.SegmentPMOut.IsOut())
	assert.False(t, attendance.SegmentPMIn.IsOut())
	assert.False(t, attendance.SegmentLeave.IsClock())
}

func TestValidateBreak(t *testing.T) {
	for _, ok := range []string{"0", "0.5", "1", "1.0"} {
		assert.NoError(t, attendance.ValidateBreak(hours(ok)), ok)
	}
	for _, bad := range []string{"0.25", "2", "-1"} {
		assert.ErrorIs(t, attendance.ValidateBreak(hours(bad)), attendance.ErrInvalidBreak, bad)
	}
}

func TestMonthWindow(t *testing.T) {
	m, err := attendance.ParseMonth("2025-12")
	require.NoError(t, err)

	from, to := m.Window()
	assert.Equal(t, "2025-12-01", from.String())
	assert.Equal(t, "2026-01-01", to.String())
	assert.Equal(t, 31, len(m.Days()))
	assert.Equal(t, "202512", m.Compact())

	feb := attendance.Month{Year: 2024, Month: time.February}
	assert.Equal(t, 29, feb.Last().Day)

	_, err = attendance.ParseMonth("2025/12")
	assert.ErrorIs(t, err, attendance.ErrInvalidMonth)
}

// =============================================================================
// TIME ROUNDER
// =============================================================================

func TestRound_ClockIn(t *testing.T) {
	cases := map[string]string{
		"08:00": "8",
		"08:01": "8.5",
		"08:30": "8.5",
		"08:39": "8.5",
		"08:40": "9",
		"08:59": "9",
		"23:45": "24",
	}
	for in, want := range cases {
		assertHours(t, want, attendance.Round(clock(t, in), attendance.RoleClockIn), in)
	}
}

func TestRound_ClockOut(t *testing.T) {
	cases := map[string]string{
		"17:00": "17",
		"17:24": "17",
		"17:25": "17.5",
		"17:54": "17.5",
		"17:55": "18",
		"17:59": "18",
	}
	for in, want := range cases {
		assertHours(t, want, attendance.Round(clock(t, in), attendance.RoleClockOut), in)
	}
}

func TestRound_AllMinutesStayInRange(t *testing.T) {
	for m := 0; m < 60; m++ {
		c := attendance.NewClock(10, m)
		for _, role := range []attendance.Role{attendance.RoleClockIn, attendance.RoleClockOut} {
			r := attendance.Round(c, role)
			assert.True(t, r.GreaterThanOrEqual(hours("10")) && r.LessThanOrEqual(hours("11")), "10:%02d", m)
			assert.True(t, r.Mul(hours("2")).IsInteger(), "half-hour grid at 10:%02d", m)
		}
	}
}

// =============================================================================
// DURATION CALCULATOR
// =============================================================================

func TestCalc(t *testing.T) {
	one := hours("1")

	t.Run("missing endpoint yields zero", func(t *testing.T) {
		assertSplit(t, "0", "0", "0", attendance.Calc(clock(t, "09:00"), attendance.ClockTime{}, one, false, policy))
		assertSplit(t, "0", "0", "0", attendance.Calc(attendance.ClockTime{}, clock(t, "18:00"), one, false, policy))
	})

	t.Run("full day with lunch", func(t *testing.T) {
		assertSplit(t, "8", "0", "0", attendance.Calc(clock(t, "09:00"), clock(t, "18:00"), one, false, policy))
	})

	t.Run("two hours over", func(t *testing.T) {
		assertSplit(t, "8", "2", "0", attendance.Calc(clock(t, "09:00"), clock(t, "20:00"), one, false, policy))
	})

	t.Run("beyond tier-1", func(t *testing.T) {
		s := attendance.Calc(clock(t, "09:00"), clock(t, "21:30"), one, false, policy)
		assertSplit(t, "8", "2", "1.5", s)
		assert.True(t, s.OTTier2.IsPositive())
	})

	t.Run("crosses midnight", func(t *testing.T) {
		assertSplit(t, "4", "0", "0", attendance.Calc(clock(t, "22:00"), clock(t, "02:00"), one, false, policy))
	})

	t.Run("skip break", func(t *testing.T) {
		assertSplit(t, "8", "1", "0", attendance.Calc(clock(t, "09:00"), clock(t, "18:00"), one, true, policy))
	})

	t.Run("no break outside lunch point", func(t *testing.T) {
		assertSplit(t, "4", "0", "0", attendance.Calc(clock(t, "13:00"), clock(t, "17:00"), one, false, policy))
		assertSplit(t, "4", "0", "0", attendance.Calc(clock(t, "08:00"), clock(t, "12:00"), one, false, policy))
	})

	t.Run("rounded endpoints", func(t *testing.T) {
		// 08:10 -> 8.5, 17:20 -> 17, minus half-hour break
		assertSplit(t, "8", "0", "0", attendance.Calc(clock(t, "08:10"), clock(t, "17:20"), hours("0.5"), false, policy))
	})

	t.Run("custom lunch point", func(t *testing.T) {
		p := policy.WithLunchPoint(12)
		assertSplit(t, "4", "0", "0", attendance.Calc(clock(t, "08:00"), clock(t, "13:00"), one, false, p))
	})
}

// =============================================================================
// NIGHT SHIFT REASSIGNER
// =============================================================================

func event(t *testing.T, date string, seg attendance.SegmentType, at string) attendance.PunchEvent {
	t.Helper()
	d, err := attendance.ParseDate(date)
	require.NoError(t, err)
	ev := attendance.PunchEvent{EmployeeID: 1, WorkDate: d, Segment: seg}
	if at != "" {
		ev.Clock = clock(t, at)
	}
	return ev
}

func TestReassign(t *testing.T) {
	input := []attendance.PunchEvent{
		event(t, "2025-03-11", attendance.SegmentPMOut, "01:30"),
		event(t, "2025-03-11", attendance.SegmentPMOut, "04:30"),
		event(t, "2025-03-11", attendance.SegmentOTOut, "04:00"),
		event(t, "2025-03-11", attendance.SegmentAMIn, "01:00"),
		event(t, "2025-03-01", attendance.SegmentAMOut, "02:00"),
	}
	snapshot := append([]attendance.PunchEvent(nil), input...)

	out := attendance.Reassign(input, policy)

	assert.Equal(t, "2025-03-10", out[0].WorkDate.String(), "01:30 clock-out belongs to the previous day")
	assert.True(t, out[0].Reassigned)
	assert.Equal(t, "2025-03-11", out[1].WorkDate.String(), "04:30 is after the cutoff")
	assert.Equal(t, "2025-03-10", out[2].WorkDate.String(), "cutoff is inclusive")
	assert.Equal(t, "2025-03-11", out[3].WorkDate.String(), "clock-in is never moved")
	assert.Equal(t, "2025-02-28", out[4].WorkDate.String(), "month boundary")
	assert.Equal(t, snapshot, input, "input must not be mutated")
}

func TestReassign_Idempotent(t *testing.T) {
	// GIVEN: a mix of events before and after the cutoff
	var input []attendance.PunchEvent
	for _, at := range []string{"00:00", "01:30", "03:59", "04:00", "04:01", "12:00", "23:59"} {
		input = append(input,
			event(t, "2025-06-15", attendance.SegmentPMOut, at),
			event(t, "2025-06-15", attendance.SegmentPMIn, at))
	}

	// WHEN: reassigning once and then again on the re-keyed view
	once := attendance.Reassign(input, policy)
	twice := attendance.Reassign(once, policy)

	// THEN: the second pass changes nothing
	assert.Equal(t, once, twice)
}

func TestReassign_CustomNightEnd(t *testing.T) {
	p := policy.WithNightEnd(attendance.NewClock(6, 0))
	out := attendance.Reassign([]attendance.PunchEvent{event(t, "2025-03-11", attendance.SegmentPMOut, "05:30")}, p)
	assert.Equal(t, "2025-03-10", out[0].WorkDate.String())
}

// =============================================================================
// DAILY ALLOCATOR
// =============================================================================

func day(t *testing.T, slots map[attendance.SegmentType]string) attendance.DaySegments {
	t.Helper()
	var d attendance.DaySegments
	for seg, at := range slots {
		d.Set(seg, clock(t, at))
	}
	return d
}

func TestResolveSegmentBounds(t *testing.T) {
	t.Run("am-out present", func(t *testing.T) {
		in, out, skip := attendance.ResolveSegmentBounds(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentAMOut: "12:00", attendance.SegmentPMOut: "17:00",
		}))
		assert.Equal(t, "08:00", in.String())
		assert.Equal(t, "12:00", out.String())
		assert.False(t, skip)
	})

	t.Run("falls back to pm-out", func(t *testing.T) {
		in, out, skip := attendance.ResolveSegmentBounds(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentPMOut: "17:00",
		}))
		assert.Equal(t, "08:00", in.String())
		assert.Equal(t, "17:00", out.String())
		assert.False(t, skip)
	})

	t.Run("pm-in skips the break", func(t *testing.T) {
		_, _, skip := attendance.ResolveSegmentBounds(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentAMOut: "12:00", attendance.SegmentPMIn: "13:00",
		}))
		assert.True(t, skip)
	})

	t.Run("nothing punched", func(t *testing.T) {
		in, out, _ := attendance.ResolveSegmentBounds(attendance.DaySegments{})
		assert.False(t, in.Valid)
		assert.False(t, out.Valid)
	})
}

func TestAllocate(t *testing.T) {
	one := hours("1")

	t.Run("split shift", func(t *testing.T) {
		a := attendance.Allocate(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentAMOut: "12:00",
			attendance.SegmentPMIn: "13:00", attendance.SegmentPMOut: "17:00",
		}), one, false, policy)
		assertHours(t, "8", a.Regular)
		assertHours(t, "0", a.OTTier1)
		assertHours(t, "0", a.Holiday)
		assert.True(t, a.Attended)
	})

	t.Run("straight through with lunch deduction", func(t *testing.T) {
		a := attendance.Allocate(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentPMOut: "17:00",
		}), one, false, policy)
		assertHours(t, "8", a.Regular)
		assertHours(t, "0", a.OTTier1)
	})

	t.Run("overtime segment goes to overtime only", func(t *testing.T) {
		a := attendance.Allocate(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentAMOut: "12:00",
			attendance.SegmentOTIn: "18:00", attendance.SegmentOTOut: "21:00",
		}), one, false, policy)
		assertHours(t, "4", a.Regular)
		assertHours(t, "2", a.OTTier1)
		assertHours(t, "1", a.OTTier2)
	})

	t.Run("running caps across segments", func(t *testing.T) {
		a := attendance.Allocate(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "06:00", attendance.SegmentAMOut: "12:00",
			attendance.SegmentPMIn: "13:00", attendance.SegmentPMOut: "19:00",
			attendance.SegmentOTIn: "20:00", attendance.SegmentOTOut: "22:00",
		}), one, false, policy)
		assertHours(t, "8", a.Regular)
		assertHours(t, "2", a.OTTier1)
		assertHours(t, "4", a.OTTier2)
	})

	t.Run("holiday collapses buckets", func(t *testing.T) {
		// GIVEN: 8 regular hours and 1 overtime hour on a holiday
		d := day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMIn: "08:00", attendance.SegmentAMOut: "12:00",
			attendance.SegmentPMIn: "13:00", attendance.SegmentPMOut: "17:00",
			attendance.SegmentOTIn: "18:00", attendance.SegmentOTOut: "19:00",
		})

		// WHEN: allocating
		a := attendance.Allocate(d, one, true, policy)

		// THEN: all 9 hours are holiday hours
		assertHours(t, "9", a.Holiday)
		assertHours(t, "0", a.Regular)
		assertHours(t, "0", a.OTTier1)
		assertHours(t, "0", a.OTTier2)
		assert.True(t, a.IsHoliday)
		assert.True(t, a.Attended)
	})

	t.Run("nothing worked", func(t *testing.T) {
		a := attendance.Allocate(day(t, map[attendance.SegmentType]string{
			attendance.SegmentAMOut: "12:00",
		}), one, false, policy)
		assert.False(t, a.Attended)
		assertHours(t, "0", a.Worked())
	})
}

func TestAllocate_CapsHoldOverGrid(t *testing.T) {
	times := []string{"", "00:30", "06:15", "08:00", "12:40", "13:00", "18:55", "23:59"}
	overtime := [][2]string{{"", ""}, {"18:00", "20:30"}, {"21:00", "03:00"}}
	one := hours("1")

	for _, amIn := range times {
		for _, amOut := range times {
			for _, pmIn := range times {
				for _, pmOut := range times {
					for _, ot := range overtime {
						slots := map[attendance.SegmentType]string{
							attendance.SegmentAMIn: amIn, attendance.SegmentAMOut: amOut,
							attendance.SegmentPMIn: pmIn, attendance.SegmentPMOut: pmOut,
							attendance.SegmentOTIn: ot[0], attendance.SegmentOTOut: ot[1],
						}
						var d attendance.DaySegments
						for seg, at := range slots {
							if at != "" {
								d.Set(seg, clock(t, at))
							}
						}
						a := attendance.Allocate(d, one, false, policy)
						label := fmt.Sprintf("%v", slots)

						if !a.Regular.LessThanOrEqual(policy.RegularCap) || !a.OTTier1.LessThanOrEqual(policy.Tier1Cap) {
							t.Fatalf("cap exceeded for %s: %+v", label, a)
						}
						if a.Regular.IsNegative() || a.OTTier1.IsNegative() || a.OTTier2.IsNegative() {
							t.Fatalf("negative bucket for %s: %+v", label, a)
						}

						// Allocation conserves the hours of the individual segments.
						in, out, skip := attendance.ResolveSegmentBounds(d)
						want := attendance.Calc(in, out, one, skip, policy).Total()
						if d.Afternoon.Complete() {
							want = want.Add(attendance.Calc(d.Afternoon.In, d.Afternoon.Out, one, true, policy).Total())
						}
						if d.Overtime.Complete() {
							want = want.Add(attendance.Calc(d.Overtime.In, d.Overtime.Out, one, true, policy).Total())
						}
						if !a.Worked().Equal(want) {
							t.Fatalf("hours not conserved for %s: got %s want %s", label, a.Worked(), want)
						}
					}
				}
			}
		}
	}
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func TestHolidayCalendar(t *testing.T) {
	sat := attendance.NewDate(2025, time.March, 1)
	mon := attendance.NewDate(2025, time.March, 3)
	newYear := attendance.NewDate(2020, time.January, 1)

	assert.True(t, attendance.WeekendCalendar{}.IsHoliday(sat))
	assert.False(t, attendance.WeekendCalendar{}.IsHoliday(mon))

	cal := attendance.WithHolidays(attendance.WeekendCalendar{},
		attendance.Holiday{Date: mon, Name: "Founders day"},
		attendance.Holiday{Date: newYear, Name: "New year", Recurring: true},
	)
	assert.True(t, cal.IsHoliday(sat))
	assert.True(t, cal.IsHoliday(mon))
	assert.True(t, cal.IsHoliday(attendance.NewDate(2026, time.January, 1)), "recurring holiday")
	assert.False(t, cal.IsHoliday(attendance.NewDate(2026, time.March, 3)), "one-off holiday")
}
