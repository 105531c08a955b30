// Package storetest holds the behaviour every store.Store must share.
// Each backend's tests call Run with a constructor for a fresh store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// Factory returns an empty store. Run closes it.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"EmployeeCRUD", testEmployeeCRUD},
		{"ListEmployeesOrdering", testListEmployeesOrdering},
		{"PunchUniqueness", testPunchUniqueness},
		{"PunchRange", testPunchRange},
		{"DeleteEmployeeCascades", testDeleteEmployeeCascades},
		{"Holidays", testHolidays},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { st.Close() })
			tc.fn(t, st)
		})
	}
}

func employee(id int, name, area string) store.Employee {
	return store.Employee{ID: id, Name: name, Area: area, DefaultBreak: decimal.RequireFromString("0.5")}
}

func date(s string) attendance.Date {
	d, err := attendance.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func punch(empID int, day string, seg attendance.SegmentType, hour, minute int) attendance.PunchEvent {
	return attendance.PunchEvent{
		EmployeeID: empID,
		WorkDate:   date(day),
		Segment:    seg,
		Clock:      attendance.NewClock(hour, minute),
		RecordedAt: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC),
	}
}

func testEmployeeCRUD(t *testing.T, st store.Store) {
	ctx := context.Background()

	got, err := st.GetEmployee(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got, "missing employee is nil, nil")

	require.NoError(t, st.CreateEmployee(ctx, employee(7, "Mei", "kitchen")))
	err = st.CreateEmployee(ctx, employee(7, "Other", "bar"))
	assert.ErrorIs(t, err, store.ErrDuplicateEmployee)

	got, err = st.GetEmployee(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mei", got.Name)
	assert.True(t, got.DefaultBreak.Equal(decimal.RequireFromString("0.5")))

	updated := employee(7, "Mei Chen", "bar")
	updated.DefaultBreak = decimal.NewFromInt(1)
	require.NoError(t, st.SaveEmployee(ctx, updated))

	got, err = st.GetEmployee(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Mei Chen", got.Name)
	assert.Equal(t, "bar", got.Area)
	assert.True(t, got.DefaultBreak.Equal(decimal.NewFromInt(1)))

	err = st.DeleteEmployee(ctx, 99)
	assert.True(t, store.IsNotFound(err))
}

func testListEmployeesOrdering(t *testing.T, st store.Store) {
	ctx := context.Background()
	for _, e := range []store.Employee{
		employee(3, "C", "kitchen"),
		employee(1, "A", "kitchen"),
		employee(2, "B", "bar"),
		employee(4, "D", ""),
	} {
		require.NoError(t, st.CreateEmployee(ctx, e))
	}

	all, err := st.ListEmployees(ctx, "")
	require.NoError(t, err)
	var ids []int
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{4, 2, 1, 3}, ids, "ordered by area then id")

	kitchen, err := st.ListEmployees(ctx, "kitchen")
	require.NoError(t, err)
	require.Len(t, kitchen, 2)
	assert.Equal(t, 1, kitchen[0].ID)

	areas, err := st.ListAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "kitchen"}, areas)
}

func testPunchUniqueness(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.CreateEmployee(ctx, employee(1, "Mei", "kitchen")))

	// GIVEN: an am-in punch for March 3
	require.NoError(t, st.AddPunch(ctx, punch(1, "2025-03-03", attendance.SegmentAMIn, 8, 2)))

	// WHEN: the kiosk tries to punch the same slot again
	err := st.AddPunch(ctx, punch(1, "2025-03-03", attendance.SegmentAMIn, 8, 30))

	// THEN: it is rejected and the first time is kept
	assert.ErrorIs(t, err, store.ErrDuplicatePunch)
	got, err := st.GetPunch(ctx, 1, date("2025-03-03"), attendance.SegmentAMIn)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "08:02", got.Clock.String())

	// An administrator edit overwrites the slot.
	require.NoError(t, st.SavePunch(ctx, punch(1, "2025-03-03", attendance.SegmentAMIn, 7, 55)))
	got, err = st.GetPunch(ctx, 1, date("2025-03-03"), attendance.SegmentAMIn)
	require.NoError(t, err)
	assert.Equal(t, "07:55", got.Clock.String())

	// Leave carries a note and no clock.
	leave := attendance.PunchEvent{EmployeeID: 1, WorkDate: date("2025-03-04"), Segment: attendance.SegmentLeave, Note: "sick"}
	require.NoError(t, st.SavePunch(ctx, leave))
	got, err = st.GetPunch(ctx, 1, date("2025-03-04"), attendance.SegmentLeave)
	require.NoError(t, err)
	assert.False(t, got.Clock.Valid)
	assert.Equal(t, "sick", got.Note)

	require.NoError(t, st.DeletePunch(ctx, 1, date("2025-03-04"), attendance.SegmentLeave))
	got, err = st.GetPunch(ctx, 1, date("2025-03-04"), attendance.SegmentLeave)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, store.IsNotFound(st.DeletePunch(ctx, 1, date("2025-03-04"), attendance.SegmentLeave)))

	err = st.AddPunch(ctx, punch(42, "2025-03-03", attendance.SegmentAMIn, 8, 0))
	assert.True(t, store.IsNotFound(err), "unknown employee")
}

func testPunchRange(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.CreateEmployee(ctx, employee(1, "Mei", "kitchen")))
	require.NoError(t, st.CreateEmployee(ctx, employee(2, "Lin", "kitchen")))

	for _, p := range []attendance.PunchEvent{
		punch(1, "2025-02-28", attendance.SegmentPMOut, 18, 0),
		punch(1, "2025-03-01", attendance.SegmentPMOut, 17, 0),
		punch(1, "2025-03-01", attendance.SegmentAMIn, 8, 0),
		punch(1, "2025-04-01", attendance.SegmentPMOut, 1, 0),
		punch(1, "2025-04-02", attendance.SegmentPMOut, 17, 0),
		punch(2, "2025-03-15", attendance.SegmentAMIn, 9, 0),
	} {
		require.NoError(t, st.AddPunch(ctx, p))
	}

	from, to := attendance.Month{Year: 2025, Month: time.March}.Window()

	mine, err := st.ListPunches(ctx, 1, from, to)
	require.NoError(t, err)
	require.Len(t, mine, 3, "window is inclusive of the first day of next month")
	assert.Equal(t, attendance.SegmentAMIn, mine[0].Segment)
	assert.Equal(t, attendance.SegmentPMOut, mine[1].Segment)
	assert.Equal(t, "2025-04-01", mine[2].WorkDate.String())

	all, err := st.ListAllPunches(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 2, all[3].EmployeeID)
}

func testDeleteEmployeeCascades(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.CreateEmployee(ctx, employee(1, "Mei", "kitchen")))
	require.NoError(t, st.AddPunch(ctx, punch(1, "2025-03-03", attendance.SegmentAMIn, 8, 0)))

	require.NoError(t, st.DeleteEmployee(ctx, 1))

	got, err := st.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	punches, err := st.ListAllPunches(ctx, date("2025-01-01"), date("2025-12-31"))
	require.NoError(t, err)
	assert.Empty(t, punches)
}

func testHolidays(t *testing.T, st store.Store) {
	ctx := context.Background()
	require.NoError(t, st.SaveHoliday(ctx, attendance.Holiday{ID: "h1", Date: date("2025-10-10"), Name: "National day"}))
	require.NoError(t, st.SaveHoliday(ctx, attendance.Holiday{ID: "h2", Date: date("2020-01-01"), Name: "New year", Recurring: true}))
	require.NoError(t, st.SaveHoliday(ctx, attendance.Holiday{ID: "h3", Date: date("2024-02-10"), Name: "Lunar new year"}))

	got, err := st.ListHolidays(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h2", got[0].ID)
	assert.True(t, got[0].Recurring)
	assert.Equal(t, "h1", got[1].ID)

	require.NoError(t, st.DeleteHoliday(ctx, "h1"))
	assert.True(t, store.IsNotFound(st.DeleteHoliday(ctx, "h1")))

	got, err = st.ListHolidays(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
