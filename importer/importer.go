/*
Package importer bulk-loads employees from a spreadsheet.

FORMATS:
  .csv   encoding/csv
  .xlsx  first sheet, via excelize
  .xls   first sheet, via extrame/xls

The first row is the header. It must name the columns id, name, area and
default_break in any order and case; other columns are ignored. An empty
default_break means no break.

RESULTS:
  Every data row yields a RowResult. Rows are independent: a bad row is
  reported and skipped, the rest are still inserted.
    ok             inserted
    invalid row    id or break is not a number, or name is empty
    invalid break  break is a number but not 0, 0.5 or 1
    id exists      an employee with that id is already stored
*/
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

// Row statuses.
const (
	StatusOK           = "ok"
	StatusInvalidRow   = "invalid row"
	StatusIDExists     = "id exists"
	StatusInvalidBreak = "invalid break"
)

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

var required = []string{"id", "name", "area", "default_break"}

var (
	ErrUnsupportedFormat = errors.New("unsupported file type (want .csv, .xlsx or .xls)")
	ErrEmptyFile         = errors.New("file has no rows")
	ErrMissingColumns    = errors.New("header must contain id, name, area, default_break")
)

// RowResult is the outcome of one data row. ID is the raw cell when it did
// not parse.
type RowResult struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Result summarises an import.
type Result struct {
	Inserted int         `json:"inserted"`
	Rows     []RowResult `json:"rows"`
}

// Import reads employees from r, picking the format from the filename's
// extension, and creates each valid row in st.
func Import(ctx context.Context, st store.Store, filename string, r io.Reader) (*Result, error) {
	rows, err := ReadRows(filename, r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rr := RowResult{Row: i + 2, ID: cell(row, cols["id"])}

		emp, status := parseRow(row, cols)
		if status == StatusOK {
			err := st.CreateEmployee(ctx, emp)
			switch {
			case errors.Is(err, store.ErrDuplicateEmployee):
				status = StatusIDExists
			case err != nil:
				return res, fmt.Errorf("row %d: %w", rr.Row, err)
			default:
				res.Inserted++
			}
		}
		rr.Status = status
		res.Rows = append(res.Rows, rr)
	}
	return res, nil
}

// ReadRows returns all rows of the first sheet (or the CSV file) as strings.
func ReadRows(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil

	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = f.Close() }()
		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, ErrEmptyFile
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		return rows, nil

	case ".xls":
		// xls needs a ReadSeeker.
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read xls: %w", err)
		}
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if wb.NumSheets() == 0 {
			return nil, ErrEmptyFile
		}
		return wb.ReadAllCells(maxXLSRows), nil

	default:
		return nil, ErrUnsupportedFormat
	}
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (store.Employee, string) {
	id, err := parseID(cell(row, cols["id"]))
	if err != nil {
		return store.Employee{}, StatusInvalidRow
	}
	emp := store.Employee{
		ID:   id,
		Name: cell(row, cols["name"]),
		Area: cell(row, cols["area"]),
	}
	if emp.Name == "" {
		return store.Employee{}, StatusInvalidRow
	}

	if raw := cell(row, cols["default_break"]); raw != "" {
		brk, err := decimal.NewFromString(raw)
		if err != nil {
			return store.Employee{}, StatusInvalidRow
		}
		emp.DefaultBreak = brk
	}
	if err := attendance.ValidateBreak(emp.DefaultBreak); err != nil {
		return store.Employee{}, StatusInvalidBreak
	}
	return emp, StatusOK
}

// parseID accepts "7" and the "7.0" spreadsheets produce for numeric cells.
func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil && id > 0 {
		return id, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return int(d.IntPart()), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
