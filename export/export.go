/*
Package export writes monthly reports to Excel workbooks.

WORKBOOKS:
  Payroll:     one sheet per area, six columns per employee
               (Regular, OT<=2, OT>2, Holiday, Days, Notes), a totals row
               and a merged notes row. Optionally added to a copy of a
               template workbook whose own sheets are kept.
  Punch cards: one sheet per employee with the six clock slots, notes and
               the four hour buckets for every day of the month.

Hours come from the attendance engine via report.Service; nothing here
recomputes them.

SEE ALSO:
  - report/report.go: AreaReport
  - sheetname.go: Excel sheet-name rules
*/
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/report"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

var payrollFields = []string{"Regular", "OT<=2", "OT>2", "Holiday", "Days", "Notes"}

var punchCardHeaders = []string{
	"Date", "AM in", "AM out", "PM in", "PM out", "OT in", "OT out",
	"Notes", "Regular", "OT<=2", "OT>2", "Holiday",
}

// =============================================================================
// STYLES
// =============================================================================

type styles struct {
	header, cell, holiday, leave, total, note, title int
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	var s styles
	defs := []styleDef{
		{&s.header, &excelize.Style{Font: &excelize.Font{Bold: true}, Border: border, Alignment: center, Fill: fill("#D3D3D3")}},
		{&s.cell, &excelize.Style{Border: border, Alignment: center}},
		{&s.holiday, &excelize.Style{Border: border, Alignment: center, Fill: fill("#EDEDED")}},
		{&s.leave, &excelize.Style{Border: border, Alignment: center, Fill: fill("#FFF2CC")}},
		{&s.total, &excelize.Style{Font: &excelize.Font{Bold: true}, Border: border, Alignment: center}},
		{&s.note, &excelize.Style{Border: border, Alignment: &excelize.Alignment{Horizontal: "left", WrapText: true}}},
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: center}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return styles{}, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// =============================================================================
// PAYROLL WORKBOOK
// =============================================================================

// Payroll builds the payroll workbook. With a template, the area sheets are
// added to it as "<area>-report-YYYYMM"; otherwise they are named after the
// area.
func Payroll(groups []report.AreaReport, m attendance.Month, template io.Reader) (*excelize.File, error) {
	var (
		f   *excelize.File
		err error
	)
	if template != nil {
		if f, err = excelize.OpenReader(template); err != nil {
			return nil, fmt.Errorf("open template: %w", err)
		}
	} else {
		f = excelize.NewFile()
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	existing := sheetSet(f)
	for _, g := range groups {
		if len(g.Reports) == 0 {
			continue
		}
		area := g.Area
		if area == "" {
			area = "Unassigned"
		}
		var name string
		if template != nil {
			name = ReportSheetName(area, m.Compact(), existing)
		} else {
			name = UniqueSheetName(area, existing)
		}
		existing[strings.ToLower(name)] = true

		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}
		if err := writePayrollSheet(f, name, g, m, st); err != nil {
			f.Close()
			return nil, err
		}
	}

	if template == nil {
		dropDefaultSheet(f)
	}
	return f, nil
}

func writePayrollSheet(f *excelize.File, sheet string, g report.AreaReport, m attendance.Month, st styles) error {
	w := sheetWriter{f: f, sheet: sheet}
	width := len(payrollFields)
	days := m.Days()

	w.set(1, 1, "Date", st.header)
	w.set(1, 2, "", st.header)
	for i, r := range g.Reports {
		first := 2 + i*width
		w.merge(1, first, 1, first+width-1, fmt.Sprintf("%d-%s", r.Employee.ID, r.Employee.Name), st.header)
		for j, field := range payrollFields {
			w.set(first+j, 2, field, st.header)
		}
	}

	for d, date := range days {
		row := 3 + d
		w.set(1, row, date.MonthDay(), st.cell)
		for i, r := range g.Reports {
			first := 2 + i*width
			day := r.Days[d]
			a := day.Allocation

			style := st.cell
			switch {
			case day.Note != "":
				style = st.leave
			case a.IsHoliday:
				style = st.holiday
			}

			var values []any
			if a.IsHoliday {
				values = []any{"", "", "", hoursCell(a.Holiday), "", day.Note}
			} else {
				values = []any{hoursCell(a.Regular), hoursCell(a.OTTier1), hoursCell(a.OTTier2), "", "", day.Note}
			}
			for j, v := range values {
				w.set(first+j, row, v, style)
			}
		}
	}

	totalRow := 3 + len(days)
	w.set(1, totalRow, "Total", st.total)
	noteRow := totalRow + 1
	w.set(1, noteRow, "Notes", st.header)
	for i, r := range g.Reports {
		first := 2 + i*width
		t := r.Totals
		for j, v := range []any{
			t.Regular.InexactFloat64(), t.OTTier1.InexactFloat64(), t.OTTier2.InexactFloat64(),
			t.Holiday.InexactFloat64(), t.AttendanceDays, "",
		} {
			w.set(first+j, totalRow, v, st.total)
		}
		w.merge(noteRow, first, noteRow, first+width-1, NotesSummary(t), st.note)
	}

	w.colWidth(1, 1, 10)
	w.colWidth(2, 1+len(g.Reports)*width, 12)
	w.freeze(1, 2)
	return w.err
}

// NotesSummary renders the month's notes as "MM-DD note; MM-DD note".
func NotesSummary(t attendance.MonthTotals) string {
	items := make([]string, 0, len(t.Notes))
	for _, d := range t.NoteDays() {
		items = append(items, fmt.Sprintf("%02d-%02d %s", int(t.Month.Month), d, t.Notes[d]))
	}
	return strings.Join(items, "; ")
}

// =============================================================================
// PUNCH-CARD WORKBOOK
// =============================================================================

// PunchCards builds one sheet per employee, areas in order.
func PunchCards(groups []report.AreaReport) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	existing := sheetSet(f)
	for _, g := range groups {
		for _, r := range g.Reports {
			name := UniqueSheetName(fmt.Sprintf("%s-%d-%s", r.Employee.Area, r.Employee.ID, r.Employee.Name), existing)
			existing[strings.ToLower(name)] = true
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, fmt.Errorf("add sheet %q: %w", name, err)
			}
			if err := writePunchCard(f, name, r, st); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	dropDefaultSheet(f)
	return f, nil
}

func writePunchCard(f *excelize.File, sheet string, r attendance.MonthReport, st styles) error {
	w := sheetWriter{f: f, sheet: sheet}
	last := len(punchCardHeaders)
	emp := r.Employee

	w.merge(1, 1, 1, last, fmt.Sprintf("%s (%d)  area: %s  %d/%02d", emp.Name, emp.ID, emp.Area, r.Month.Year, int(r.Month.Month)), st.title)
	w.merge(2, 1, 2, last, fmt.Sprintf("Attendance days: %d", r.Totals.AttendanceDays), st.cell)
	for c, h := range punchCardHeaders {
		w.set(c+1, 3, h, st.header)
	}

	for i, day := range r.Days {
		row := 4 + i
		a := day.Allocation
		style := st.cell
		if a.IsHoliday {
			style = st.holiday
		}

		values := []any{day.Date.MonthDay()}
		for _, seg := range attendance.ClockSegments {
			values = append(values, day.Segments.Get(seg).String())
		}
		values = append(values, joinNonEmpty("; ", day.Note, day.Remarks))
		if a.IsHoliday {
			values = append(values, "", "", "", hoursCell(a.Holiday))
		} else {
			values = append(values, hoursCell(a.Regular), hoursCell(a.OTTier1), hoursCell(a.OTTier2), "")
		}
		for c, v := range values {
			w.set(c+1, row, v, style)
		}
	}

	totalRow := 4 + len(r.Days)
	w.set(1, totalRow, "Total", st.total)
	for c := 2; c <= 8; c++ {
		w.set(c, totalRow, "", st.total)
	}
	t := r.Totals
	for j, v := range []decimal.Decimal{t.Regular, t.OTTier1, t.OTTier2, t.Holiday} {
		w.set(9+j, totalRow, v.InexactFloat64(), st.total)
	}

	w.colWidth(1, 1, 10)
	w.colWidth(2, 7, 12)
	w.colWidth(8, 8, 20)
	w.colWidth(9, 12, 10)
	w.freeze(1, 3)
	return w.err
}

// =============================================================================
// HELPERS
// =============================================================================

// sheetWriter records the first error so sheet layout code stays linear.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, v any, style int) {
	if w.err != nil {
		return
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellValue(w.sheet, ref, v); err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, ref, ref, style)
}

func (w *sheetWriter) merge(row1, col1, row2, col2 int, v any, style int) {
	if w.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		w.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.MergeCell(w.sheet, from, to); err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellValue(w.sheet, from, v); err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, from, to, style)
}

func (w *sheetWriter) colWidth(from, to int, width float64) {
	if w.err != nil {
		return
	}
	a, err := excelize.ColumnNumberToName(from)
	if err != nil {
		w.err = err
		return
	}
	b, err := excelize.ColumnNumberToName(to)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetColWidth(w.sheet, a, b, width)
}

// freeze keeps the first cols columns and rows rows visible.
func (w *sheetWriter) freeze(cols, rows int) {
	if w.err != nil {
		return
	}
	topLeft, err := excelize.CoordinatesToCellName(cols+1, rows+1)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      cols,
		YSplit:      rows,
		TopLeftCell: topLeft,
		ActivePane:  "bottomRight",
	})
}

// hoursCell renders zero hours as a blank cell.
func hoursCell(d decimal.Decimal) any {
	if d.IsZero() {
		return ""
	}
	return d.InexactFloat64()
}

// joinNonEmpty joins the non-empty parts, dropping repeats.
func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p != "" && !seen[p] {
			seen[p] = true
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}

func sheetSet(f *excelize.File) map[string]bool {
	existing := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		existing[strings.ToLower(name)] = true
	}
	return existing
}

// dropDefaultSheet removes the blank sheet of a new workbook once other
// sheets exist.
func dropDefaultSheet(f *excelize.File) {
	if len(f.GetSheetList()) < 2 {
		return
	}
	if idx, err := f.GetSheetIndex(defaultSheet); err == nil && idx >= 0 {
		f.DeleteSheet(defaultSheet)
		f.SetActiveSheet(0)
	}
}
