// Package memory provides an in-memory store.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[int]store.Employee
	punches   map[slot]attendance.PunchEvent
	holidays  map[string]attendance.Holiday
}

type slot struct {
	EmployeeID int
	WorkDate   attendance.Date
	Segment    attendance.SegmentType
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		employees: make(map[int]store.Employee),
		punches:   make(map[slot]attendance.PunchEvent),
		holidays:  make(map[string]attendance.Holiday),
	}
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) CreateEmployee(_ context.Context, e store.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[e.ID]; ok {
		return fmt.Errorf("employee %d: %w", e.ID, store.ErrDuplicateEmployee)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) SaveEmployee(_ context.Context, e store.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.employees[e.ID]; ok {
		e.CreatedAt = old.CreatedAt
	} else if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id int) (*store.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context, area string) ([]store.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.Employee
	for _, e := range m.employees {
		if area == "" || e.Area == area {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListAreas(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var areas []string
	for _, e := range m.employees {
		if e.Area != "" && !seen[e.Area] {
			seen[e.Area] = true
			areas = append(areas, e.Area)
		}
	}
	sort.Strings(areas)
	return areas, nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[id]; !ok {
		return fmt.Errorf("employee %d: %w", id, store.ErrNotFound)
	}
	delete(m.employees, id)
	for k := range m.punches {
		if k.EmployeeID == id {
			delete(m.punches, k)
		}
	}
	return nil
}

// =============================================================================
// PUNCHES
// =============================================================================

func (m *Memory) AddPunch(_ context.Context, p attendance.PunchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := slotOf(p)
	if _, ok := m.punches[k]; ok {
		return fmt.Errorf("%s %s: %w", p.WorkDate, p.Segment, store.ErrDuplicatePunch)
	}
	return m.putLocked(k, p)
}

func (m *Memory) SavePunch(_ context.Context, p attendance.PunchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.putLocked(slotOf(p), p)
}

func (m *Memory) putLocked(k slot, p attendance.PunchEvent) error {
	if _, ok := m.employees[p.EmployeeID]; !ok {
		return fmt.Errorf("employee %d: %w", p.EmployeeID, store.ErrNotFound)
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	p.Reassigned = false
	m.punches[k] = p
	return nil
}

func (m *Memory) GetPunch(_ context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) (*attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.punches[slot{EmployeeID: employeeID, WorkDate: date, Segment: seg}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) DeletePunch(_ context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := slot{EmployeeID: employeeID, WorkDate: date, Segment: seg}
	if _, ok := m.punches[k]; !ok {
		return fmt.Errorf("punch %d/%s/%s: %w", employeeID, date, seg, store.ErrNotFound)
	}
	delete(m.punches, k)
	return nil
}

func (m *Memory) ListPunches(_ context.Context, employeeID int, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rangeLocked(from, to, func(p attendance.PunchEvent) bool { return p.EmployeeID == employeeID }), nil
}

func (m *Memory) ListAllPunches(_ context.Context, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rangeLocked(from, to, func(attendance.PunchEvent) bool { return true }), nil
}

// rangeLocked returns matching punches in [from, to] in the same order the
// SQL stores use: employee, work date, segment.
func (m *Memory) rangeLocked(from, to attendance.Date, keep func(attendance.PunchEvent) bool) []attendance.PunchEvent {
	var out []attendance.PunchEvent
	for _, p := range m.punches {
		if p.WorkDate.Before(from) || p.WorkDate.After(to) || !keep(p) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.WorkDate != b.WorkDate {
			return a.WorkDate.Before(b.WorkDate)
		}
		return a.Segment < b.Segment
	})
	return out
}

func slotOf(p attendance.PunchEvent) slot {
	return slot{EmployeeID: p.EmployeeID, WorkDate: p.WorkDate, Segment: p.Segment}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) SaveHoliday(_ context.Context, h attendance.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.holidays[id]; !ok {
		return fmt.Errorf("holiday %s: %w", id, store.ErrNotFound)
	}
	delete(m.holidays, id)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context, year int) ([]attendance.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []attendance.Holiday
	for _, h := range m.holidays {
		if h.Recurring || h.Date.Year == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
