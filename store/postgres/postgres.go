/*
Package postgres provides a PostgreSQL implementation of store.Store.

PURPOSE:
  Used when DATABASE_URL is configured. Same tables and semantics as
  store/sqlite; concurrency is left to the pgx connection pool and the
  database.

USAGE:
  st, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store/sqlite: the default backend
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects, pings and migrates.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	st := &Store{pool: pool}
	if err := st.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return st, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		area TEXT NOT NULL DEFAULT '',
		default_break NUMERIC(3,1) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_employees_area ON employees(area, id);

	CREATE TABLE IF NOT EXISTS punches (
		id BIGSERIAL PRIMARY KEY,
		employee_id INTEGER NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		work_date DATE NOT NULL,
		segment TEXT NOT NULL,
		clock TEXT,
		note TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL,
		UNIQUE(employee_id, work_date, segment)
	);

	CREATE INDEX IF NOT EXISTS idx_punches_date ON punches(work_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date DATE NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee implements store.Store.
func (s *Store) CreateEmployee(ctx context.Context, e store.Employee) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, area, default_break)
		VALUES ($1, $2, $3, $4)
	`, e.ID, e.Name, e.Area, e.DefaultBreak.InexactFloat64())
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return fmt.Errorf("employee %d: %w", e.ID, store.ErrDuplicateEmployee)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// SaveEmployee implements store.Store.
func (s *Store) SaveEmployee(ctx context.Context, e store.Employee) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, area, default_break)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			area = EXCLUDED.area,
			default_break = EXCLUDED.default_break
	`, e.ID, e.Name, e.Area, e.DefaultBreak.InexactFloat64())
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee implements store.Store.
func (s *Store) GetEmployee(ctx context.Context, id int) (*store.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, area, default_break::float8, created_at
		FROM employees WHERE id = $1
	`, id)

	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// ListEmployees implements store.Store.
func (s *Store) ListEmployees(ctx context.Context, area string) ([]store.Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, area, default_break::float8, created_at
		FROM employees
		WHERE $1 = '' OR area = $1
		ORDER BY area ASC, id ASC
	`, area)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return employees, nil
}

// ListAreas implements store.Store.
func (s *Store) ListAreas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT area FROM employees WHERE area <> '' ORDER BY area ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	areas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan areas: %w", err)
	}
	return areas, nil
}

// DeleteEmployee implements store.Store.
func (s *Store) DeleteEmployee(ctx context.Context, id int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM punches WHERE employee_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete punches: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete employee: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("employee %d: %w", id, store.ErrNotFound)
		}
		return nil
	})
}

func scanEmployee(row pgx.Row) (store.Employee, error) {
	var (
		e   store.Employee
		brk float64
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Area, &brk, &e.CreatedAt); err != nil {
		return store.Employee{}, err
	}
	e.DefaultBreak = decimal.NewFromFloat(brk)
	return e, nil
}

// =============================================================================
// PUNCHES
// =============================================================================

// AddPunch implements store.Store.
func (s *Store) AddPunch(ctx context.Context, p attendance.PunchEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO punches (employee_id, work_date, segment, clock, note, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, punchArgs(p)...)
	if err != nil {
		return punchError(p, err)
	}
	return nil
}

// SavePunch implements store.Store.
func (s *Store) SavePunch(ctx context.Context, p attendance.PunchEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO punches (employee_id, work_date, segment, clock, note, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, work_date, segment) DO UPDATE SET
			clock = EXCLUDED.clock,
			note = EXCLUDED.note,
			recorded_at = EXCLUDED.recorded_at
	`, punchArgs(p)...)
	if err != nil {
		return punchError(p, err)
	}
	return nil
}

// GetPunch implements store.Store.
func (s *Store) GetPunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) (*attendance.PunchEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE employee_id = $1 AND work_date = $2 AND segment = $3
	`, employeeID, date.Time(), string(seg))

	p, err := scanPunch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get punch: %w", err)
	}
	return &p, nil
}

// DeletePunch implements store.Store.
func (s *Store) DeletePunch(ctx context.Context, employeeID int, date attendance.Date, seg attendance.SegmentType) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM punches WHERE employee_id = $1 AND work_date = $2 AND segment = $3
	`, employeeID, date.Time(), string(seg))
	if err != nil {
		return fmt.Errorf("failed to delete punch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("punch %d/%s/%s: %w", employeeID, date, seg, store.ErrNotFound)
	}
	return nil
}

// ListPunches implements store.Store.
func (s *Store) ListPunches(ctx context.Context, employeeID int, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	return s.queryPunches(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date ASC, segment ASC
	`, employeeID, from.Time(), to.Time())
}

// ListAllPunches implements store.Store.
func (s *Store) ListAllPunches(ctx context.Context, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	return s.queryPunches(ctx, `
		SELECT employee_id, work_date, segment, clock, note, recorded_at
		FROM punches
		WHERE work_date BETWEEN $1 AND $2
		ORDER BY employee_id ASC, work_date ASC, segment ASC
	`, from.Time(), to.Time())
}

func (s *Store) queryPunches(ctx context.Context, query string, args ...any) ([]attendance.PunchEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return punches, nil
}

func punchArgs(p attendance.PunchEvent) []any {
	recorded := p.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	var clock *string
	if p.Clock.Valid {
		c := p.Clock.String()
		clock = &c
	}
	return []any{p.EmployeeID, p.WorkDate.Time(), string(p.Segment), clock, p.Note, recorded.UTC()}
}

func punchError(p attendance.PunchEvent, err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%s %s: %w", p.WorkDate, p.Segment, store.ErrDuplicatePunch)
	case pgForeignKeyViolation:
		return fmt.Errorf("employee %d: %w", p.EmployeeID, store.ErrNotFound)
	}
	return fmt.Errorf("failed to save punch: %w", err)
}

func scanPunch(row pgx.Row) (attendance.PunchEvent, error) {
	var (
		p        attendance.PunchEvent
		workDate time.Time
		seg      string
		clock    *string
	)
	if err := row.Scan(&p.EmployeeID, &workDate, &seg, &clock, &p.Note, &p.RecordedAt); err != nil {
		return attendance.PunchEvent{}, err
	}
	p.WorkDate = attendance.DateOf(workDate)

	var err error
	if p.Segment, err = attendance.ParseSegmentType(seg); err != nil {
		return attendance.PunchEvent{}, err
	}
	if clock != nil && *clock != "" {
		if p.Clock, err = attendance.ParseClock(*clock); err != nil {
			return attendance.PunchEvent{}, err
		}
	}
	return p, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday implements store.Store.
func (s *Store) SaveHoliday(ctx context.Context, h attendance.Holiday) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO holidays (id, date, name, recurring)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			name = EXCLUDED.name,
			recurring = EXCLUDED.recurring
	`, h.ID, h.Date.Time(), h.Name, h.Recurring)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday implements store.Store.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holiday %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListHolidays implements store.Store.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]attendance.Holiday, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, date, name, recurring
		FROM holidays
		WHERE recurring OR EXTRACT(YEAR FROM date) = $1
		ORDER BY date ASC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []attendance.Holiday
	for rows.Next() {
		var (
			h attendance.Holiday
			d time.Time
		)
		if err := rows.Scan(&h.ID, &d, &h.Name, &h.Recurring); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date = attendance.DateOf(d)
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return holidays, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
