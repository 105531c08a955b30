/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Default persistence for a single kiosk site. One file holds employees,
  punches and the holiday calendar.

KEY TABLES:
  employees: id, name, area, default break
  punches:   one row per (employee, work date, segment)
  holidays:  company days off, optionally recurring

INDEXES:
  - punches UNIQUE(employee_id, work_date, segment): the one-punch-per-slot rule
  - idx_punches_date: month windows across all employees (exports)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so ":memory:"
  databases behave like one database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  st, err := sqlite.New("./attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: Interface definition
  - store/postgres: the same schema on PostgreSQL
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		area TEXT NOT NULL DEFAULT '',
		default_break REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_area
		ON employees(area, id);

	CREATE TABLE IF NOT EXISTS punches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		work_date TEXT NOT NULL,
		segment TEXT NOT NULL,
		clock TEXT,
		note TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL,
		UNIQUE(employee_id, work_date, segment)
	);

	CREATE INDEX IF NOT EXISTS idx_punches_date
		ON punches(work_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee inserts a new employee.
func (s *Store) CreateEmployee(ctx context.Context, e store.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, area, default_break, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Area, e.DefaultBreak.InexactFloat64(), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) || isConstraint(err, sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("employee %d: %w", e.ID, store.ErrDuplicateEmployee)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, e store.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, area, default_break, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			area = excluded.area,
			default_break = excluded.default_break
	`, e.ID, e.Name, e.Area, e.DefaultBreak.InexactFloat64(), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee returns the employee or nil if absent.
func (s *Store) GetEmployee(ctx context.Context, id int) (*store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, area, default_break, created_at
		FROM employees WHERE id = ?
	`, id)

	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// ListEmployees returns employees ordered by area, then id.
func (s *Store) ListEmployees(ctx context.Context, area string) ([]store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, area, default_break, created_at FROM employees`
	var args []any
	if area != "" {
		query += ` WHERE area = ?`
		args = append(args, area)
	}
	query += ` ORDER BY area ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []store.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// ListAreas returns the distinct non-empty areas in order.
func (s *Store) ListAreas(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT area FROM employees WHERE area <> '' ORDER BY area ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	defer rows.Close()

	var areas []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// DeleteEmployee removes an employee and their punches.
func (s *Store) DeleteEmployee(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM punches WHERE employee_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete punches: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %d: %w", id, store.ErrNotFound)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (store.Employee, error) {
	var (
		e         store.Employee
		brk       float64
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Area, &brk, &createdAt); err != nil {
		return store.Employee{}, err
	}
	e.DefaultBreak = decimal.NewFromFloat(brk)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

// =============================================================================
// PUNCHES
// =============================================================================

// AddPunch records a new punch. A second punch for the same slot is
// rejected with store.ErrDuplicatePunch.
func (s *Store) AddPunch(ctx context.Context, p attendance.PunchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO punches (employee_id, work_date, segment, clock, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, punchArgs(p)...)
	if err != nil {
		return punchError(p, err)
	}
	return nil
}

// SavePunch inserts or overwrites the punch in its slot.
func (s *Store) SavePunch(ctx context.Context, p attendance.PunchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO punches (employee_id, work_date, segment, clock, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, work_date, segment) DO UPDATE SET
			clock = excluded.clock,
			note = excluded.note,
			recorded_at = excluded.recorded_at
	`, punchArgs(p)...)
	if err != nil {
		return punchError(p, err)
	}
	return nil
}

// GetPunch returns the punch in a slot or nil if the slot is empty.
func (s *Store) GetPunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) (*attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE employee_id = ? AND work_date = ? AND segment = ?
	`, employeeID, date.String(), string(seg))

	p, err := scanPunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get punch: %w", err)
	}
	return &p, nil
}

// DeletePunch clears a slot.
func (s *Store) DeletePunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM punches WHERE employee_id = ? AND work_date = ? AND segment = ?
	`, employeeID, date.String(), string(seg))
	if err != nil {
		return fmt.Errorf("failed to delete punch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("punch %d/%s/%s: %w", employeeID, date, seg, store.ErrNotFound)
	}
	return nil
}

// ListPunches returns one employee's punches in [from, to].
func (s *Store) ListPunches(ctx context.Context, employeeID int, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPunches(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE employee_id = ? AND work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC, segment ASC
	`, employeeID, from.String(), to.String())
}

// ListAllPunches returns every employee's punches in [from, to].
func (s *Store) ListAllPunches(ctx context.Context, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPunches(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE work_date >= ? AND work_date <= ?
		ORDER BY employee_id ASC, work_date ASC, segment ASC
	`, from.String(), to.String())
}

func (s *Store) queryPunches(ctx context.Context, query string, args ...any) ([]attendance.PunchEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []attendance.PunchEvent
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}

func punchArgs(p attendance.PunchEvent) []any {
	recorded := p.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	return []any{
		p.EmployeeID,
		p.WorkDate.String(),
		string(p.Segment),
		nullClock(p.Clock),
		p.Note,
		recorded.UTC().Format(time.RFC3339),
	}
}

func punchError(p attendance.PunchEvent, err error) error {
	switch {
	case isConstraint(err, sqlite3.ErrConstraintUnique):
		return fmt.Errorf("%s %s: %w", p.WorkDate, p.Segment, store.ErrDuplicatePunch)
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		return fmt.Errorf("employee %d: %w", p.EmployeeID, store.ErrNotFound)
	}
	return fmt.Errorf("failed to save punch: %w", err)
}

func scanPunch(row scanner) (attendance.PunchEvent, error) {
	var (
		p                       attendance.PunchEvent
		workDate, seg, recorded string
		clock                   sql.NullString
	)
	if err := row.Scan(&p.EmployeeID, &workDate, &seg, &clock, &p.Note, &recorded); err != nil {
		return attendance.PunchEvent{}, err
	}

	var err error
	if p.WorkDate, err = attendance.ParseDate(workDate); err != nil {
		return attendance.PunchEvent{}, err
	}
	if p.Segment, err = attendance.ParseSegmentType(seg); err != nil {
		return attendance.PunchEvent{}, err
	}
	if clock.Valid && clock.String != "" {
		if p.Clock, err = attendance.ParseClock(clock.String); err != nil {
			return attendance.PunchEvent{}, err
		}
	}
	p.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
	return p, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday inserts or updates a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h attendance.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			recurring = excluded.recurring
	`, h.ID, h.Date.String(), h.Name, h.Recurring, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("holiday %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListHolidays returns holidays dated in year plus all recurring ones.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]attendance.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, recurring
		FROM holidays
		WHERE recurring = TRUE OR substr(date, 1, 4) = ?
		ORDER BY date ASC
	`, strconv.Itoa(year))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []attendance.Holiday
	for rows.Next() {
		var (
			h       attendance.Holiday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = attendance.ParseDate(dateStr); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullClock(c attendance.ClockTime) sql.NullString {
	if !c.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}
