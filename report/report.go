/*
Package report loads punches from a store and runs the attendance engine.

PURPOSE:
  One place that knows the fetch window, the holiday calendar and the
  policy. The API, the exports and the CLI all ask this service for
  monthly reports instead of talking to the engine directly.

FETCH WINDOW:
  [first day of month, first day of next month]. The extra day carries
  clock-outs after midnight on the last day of the month.

SEE ALSO:
  - attendance/compute.go: ComputeMonth
  - export: turns AreaReports into workbooks
*/
package report

import (
	"context"
	"fmt"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// AreaReport groups the monthly reports of one area, employees by id.
type AreaReport struct {
	Area    string
	Month   attendance.Month
	Reports []attendance.MonthReport
}

// Service computes monthly reports from stored punches.
type Service struct {
	store    store.Store
	policy   attendance.Policy
	calendar attendance.HolidayCalendar
}

// NewService creates a report service. A nil calendar means weekends only;
// store holidays are always added on top.
func NewService(st store.Store, policy attendance.Policy, calendar attendance.HolidayCalendar) *Service {
	if calendar == nil {
		calendar = attendance.WeekendCalendar{}
	}
	return &Service{store: st, policy: policy, calendar: calendar}
}

// Policy returns the engine policy the service runs with.
func (s *Service) Policy() attendance.Policy { return s.policy }

// Calendar returns the holiday calendar for a month: the base calendar plus
// the holidays stored for that year.
func (s *Service) Calendar(ctx context.Context, m attendance.Month) (attendance.HolidayCalendar, error) {
	holidays, err := s.store.ListHolidays(ctx, m.Year)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return attendance.WithHolidays(s.calendar, holidays...), nil
}

// Employee computes one employee's month.
func (s *Service) Employee(ctx context.Context, id int, m attendance.Month) (*attendance.MonthReport, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %d: %w", id, store.ErrNotFound)
	}

	cal, err := s.Calendar(ctx, m)
	if err != nil {
		return nil, err
	}
	from, to := m.Window()
	punches, err := s.store.ListPunches(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("load punches: %w", err)
	}

	r := attendance.ComputeMonth(emp.Profile(), m, punches, cal, s.policy)
	return &r, nil
}

// Area computes the month for every employee of one area.
func (s *Service) Area(ctx context.Context, area string, m attendance.Month) (*AreaReport, error) {
	employees, err := s.store.ListEmployees(ctx, area)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	groups, err := s.compute(ctx, employees, m)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return &AreaReport{Area: area, Month: m}, nil
	}
	return &groups[0], nil
}

// All computes the month for every employee, grouped by area in area order.
func (s *Service) All(ctx context.Context, m attendance.Month) ([]AreaReport, error) {
	employees, err := s.store.ListEmployees(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return s.compute(ctx, employees, m)
}

// compute runs the engine for employees, which must be ordered by area then id.
func (s *Service) compute(ctx context.Context, employees []store.Employee, m attendance.Month) ([]AreaReport, error) {
	if len(employees) == 0 {
		return nil, nil
	}

	cal, err := s.Calendar(ctx, m)
	if err != nil {
		return nil, err
	}
	from, to := m.Window()
	punches, err := s.store.ListAllPunches(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load punches: %w", err)
	}

	byEmployee := make(map[int][]attendance.PunchEvent)
	for _, p := range punches {
		byEmployee[p.EmployeeID] = append(byEmployee[p.EmployeeID], p)
	}

	var groups []AreaReport
	for _, emp := range employees {
		if len(groups) == 0 || groups[len(groups)-1].Area != emp.Area {
			groups = append(groups, AreaReport{Area: emp.Area, Month: m})
		}
		g := &groups[len(groups)-1]
		g.Reports = append(g.Reports, attendance.ComputeMonth(emp.Profile(), m, byEmployee[emp.ID], cal, s.policy))
	}
	return groups, nil
}
