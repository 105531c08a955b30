/*
handlers.go - HTTP API handlers for the attendance service

PURPOSE:
  Exposes the store, the report service and the exports via REST API.
  Handles HTTP request/response and JSON serialization, and delegates
  hour math to the attendance engine through report.Service.

ENDPOINTS:
  Employees (hr):
    GET    /api/employees?area=        List employees
    POST   /api/employees              Create employee
    GET    /api/employees/{id}         Get employee
    PUT    /api/employees/{id}         Update employee
    DELETE /api/employees/{id}         Delete employee and punches
    POST   /api/employees/import       Bulk import (multipart "file")
    GET    /api/areas                  Distinct areas

  Records (hr, mgr):
    GET    /api/records?ym=&eid=|area=            Monthly reports
    GET    /api/records/{id}/{date}/{segment}     One slot
    PUT    /api/records/{id}/{date}/{segment}     Set one slot
    DELETE /api/records/{id}/{date}/{segment}     Clear one slot

  Exports (hr, mgr):
    GET    /api/export/payroll?ym=     Payroll workbook
    GET    /api/export/punch-cards?ym= Punch-card workbook

  Holidays (hr):
    GET    /api/holidays?year=         List holidays
    POST   /api/holidays               Create holiday
    DELETE /api/holidays/{id}          Delete holiday

ERROR HANDLING:
  Errors are returned as JSON {error, details}; statusFor maps errors:
  - 400: Validation errors, malformed times, segments, dates
  - 404: Employee, record or holiday not found
  - 409: Duplicate employee id or punch
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - kiosk.go: Public punch endpoints
  - auth.go: Login and role middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/export"
	"github.com/warp/punchclock/importer"
	"github.com/warp/punchclock/report"
	"github.com/warp/punchclock/store"
)

// maxUpload bounds import files.
const maxUpload = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configure a Handler.
type Options struct {
	Logger *slog.Logger
	// PublicBaseURL is encoded in the kiosk QR code.
	PublicBaseURL string
	// PayrollTemplate is an optional .xlsx path the payroll sheets are added to.
	PayrollTemplate string
	// CORSOrigins lists allowed origins; empty allows any origin.
	CORSOrigins []string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store   store.Store
	reports *report.Service
	auth    *Auth
	logger  *slog.Logger

	publicBaseURL   string
	payrollTemplate string
	corsOrigins     []string

	now func() time.Time
}

// NewHandler creates a handler.
func NewHandler(st store.Store, reports *report.Service, auth *Auth, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:           st,
		reports:         reports,
		auth:            auth,
		logger:          logger,
		publicBaseURL:   strings.TrimRight(opts.PublicBaseURL, "/"),
		payrollTemplate: opts.PayrollTemplate,
		corsOrigins:     opts.CORSOrigins,
		now:             time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees, optionally of one area.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context(), r.URL.Query().Get("area"))
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	emp, err := h.store.GetEmployee(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp := employeeFrom(req.ID, req)
	if err := emp.Validate(); err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	if err := h.store.CreateEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to create employee", err)
		return
	}

	created, err := h.store.GetEmployee(r.Context(), emp.ID)
	if err != nil || created == nil {
		created = &emp
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*created))
}

// UpdateEmployee replaces name, area and default break.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	existing, err := h.store.GetEmployee(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	emp := employeeFrom(id, req)
	if req.DefaultBreak == nil {
		emp.DefaultBreak = existing.DefaultBreak
	}
	emp.CreatedAt = existing.CreatedAt
	if err := emp.Validate(); err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	if err := h.store.SaveEmployee(ctx, emp); err != nil {
		h.fail(w, r, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee and their punches.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete employee", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// ImportEmployees bulk-creates employees from an uploaded spreadsheet.
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file", err)
		return
	}
	defer file.Close()

	res, err := importer.Import(r.Context(), h.store, header.Filename, file)
	if err != nil {
		h.fail(w, r, "Import failed", err)
		return
	}
	h.logger.InfoContext(r.Context(), "employees imported", "file", header.Filename, "inserted", res.Inserted, "rows", len(res.Rows))
	writeJSON(w, http.StatusOK, res)
}

// ListAreas returns the distinct employee areas.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListAreas(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list areas", err)
		return
	}
	if areas == nil {
		areas = []string{}
	}
	writeJSON(w, http.StatusOK, areas)
}

func employeeFrom(id int, req EmployeeRequest) store.Employee {
	emp := store.Employee{
		ID:   id,
		Name: strings.TrimSpace(req.Name),
		Area: strings.TrimSpace(req.Area),
	}
	if req.DefaultBreak != nil {
		emp.DefaultBreak = *req.DefaultBreak
	}
	return emp
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns computed monthly reports for one employee (eid), one
// area, or everyone.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	m, err := h.month(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ym (use YYYY-MM)", err)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	var reports []attendance.MonthReport
	switch {
	case q.Get("eid") != "":
		id, err := strconv.Atoi(q.Get("eid"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid eid", err)
			return
		}
		rep, err := h.reports.Employee(ctx, id, m)
		if err != nil {
			h.fail(w, r, "Failed to compute records", err)
			return
		}
		reports = append(reports, *rep)

	case q.Has("area"):
		g, err := h.reports.Area(ctx, q.Get("area"), m)
		if err != nil {
			h.fail(w, r, "Failed to compute records", err)
			return
		}
		reports = g.Reports

	default:
		groups, err := h.reports.All(ctx, m)
		if err != nil {
			h.fail(w, r, "Failed to compute records", err)
			return
		}
		for _, g := range groups {
			reports = append(reports, g.Reports...)
		}
	}

	resp := RecordsResponse{Month: m.String(), Reports: make([]MonthReportDTO, len(reports))}
	for i, rep := range reports {
		resp.Reports[i] = toMonthReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRecord returns one stored slot.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKeyFrom(r)
	if err != nil {
		h.fail(w, r, "Invalid record key", err)
		return
	}
	p, err := h.store.GetPunch(r.Context(), key.employeeID, key.date, key.segment)
	if err != nil {
		h.fail(w, r, "Failed to get record", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*p))
}

// PutRecord sets one slot, creating or overwriting it.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKeyFrom(r)
	if err != nil {
		h.fail(w, r, "Invalid record key", err)
		return
	}
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := attendance.PunchEvent{
		EmployeeID: key.employeeID,
		WorkDate:   key.date,
		Segment:    key.segment,
		Note:       strings.TrimSpace(req.Note),
		RecordedAt: h.now(),
	}
	if key.segment.IsClock() {
		if p.Clock, err = attendance.ParseClock(req.Clock); err != nil {
			writeError(w, http.StatusBadRequest, "Clock must be HH:MM", err)
			return
		}
	} else if p.Note == "" {
		writeError(w, http.StatusBadRequest, "Leave needs a note", &store.ValidationError{Field: "note", Message: "is required"})
		return
	}

	if err := h.store.SavePunch(r.Context(), p); err != nil {
		h.fail(w, r, "Failed to save record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(p))
}

// DeleteRecord clears one slot.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKeyFrom(r)
	if err != nil {
		h.fail(w, r, "Invalid record key", err)
		return
	}
	if err := h.store.DeletePunch(r.Context(), key.employeeID, key.date, key.segment); err != nil {
		h.fail(w, r, "Failed to delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

type recordKey struct {
	employeeID int
	date       attendance.Date
	segment    attendance.SegmentType
}

func recordKeyFrom(r *http.Request) (recordKey, error) {
	var k recordKey
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return k, &store.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	k.employeeID = id
	if k.date, err = attendance.ParseDate(chi.URLParam(r, "date")); err != nil {
		return k, err
	}
	if k.segment, err = attendance.ParseSegmentType(chi.URLParam(r, "segment")); err != nil {
		return k, err
	}
	return k, nil
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportPayroll streams the payroll workbook for a month.
func (h *Handler) ExportPayroll(w http.ResponseWriter, r *http.Request) {
	m, err := h.month(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ym (use YYYY-MM)", err)
		return
	}
	groups, err := h.reports.All(r.Context(), m)
	if err != nil {
		h.fail(w, r, "Failed to compute payroll", err)
		return
	}

	var template io.Reader
	if h.payrollTemplate != "" {
		tf, err := os.Open(h.payrollTemplate)
		if err != nil {
			h.fail(w, r, "Failed to open payroll template", err)
			return
		}
		defer tf.Close()
		template = tf
	}

	f, err := export.Payroll(groups, m, template)
	if err != nil {
		h.fail(w, r, "Failed to build payroll workbook", err)
		return
	}
	h.sendWorkbook(w, r, f, fmt.Sprintf("payroll-%s.xlsx", m.Compact()))
}

// ExportPunchCards streams the punch-card workbook for a month.
func (h *Handler) ExportPunchCards(w http.ResponseWriter, r *http.Request) {
	m, err := h.month(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ym (use YYYY-MM)", err)
		return
	}
	groups, err := h.reports.All(r.Context(), m)
	if err != nil {
		h.fail(w, r, "Failed to compute punch cards", err)
		return
	}
	f, err := export.PunchCards(groups)
	if err != nil {
		h.fail(w, r, "Failed to build punch-card workbook", err)
		return
	}
	h.sendWorkbook(w, r, f, fmt.Sprintf("punch-cards-%s.xlsx", m.Compact()))
}

func (h *Handler) sendWorkbook(w http.ResponseWriter, r *http.Request, f *excelize.File, filename string) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		h.fail(w, r, "Failed to write workbook", err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays of a year, recurring ones included.
// GET /api/holidays?year=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	holidays, err := h.store.ListHolidays(r.Context(), year)
	if err != nil {
		h.fail(w, r, "Failed to get holidays", err)
		return
	}
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{
			ID:        hol.ID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := attendance.Holiday{
		ID:        uuid.NewString(),
		Date:      date,
		Name:      strings.TrimSpace(req.Name),
		Recurring: req.Recurring,
	}
	if err := h.store.SaveHoliday(r.Context(), holiday); err != nil {
		h.fail(w, r, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:        holiday.ID,
		Date:      holiday.Date.String(),
		Name:      holiday.Name,
		Recurring: holiday.Recurring,
	})
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// month reads ?ym=YYYY-MM, defaulting to the current month.
func (h *Handler) month(r *http.Request) (attendance.Month, error) {
	if ym := r.URL.Query().Get("ym"); ym != "" {
		return attendance.ParseMonth(ym)
	}
	return attendance.MonthOf(h.now()), nil
}

func employeeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsConflict(err):
		return http.StatusConflict
	case store.IsClientError(err),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrMissingColumns),
		errors.Is(err, importer.ErrEmptyFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor picks and logs server errors.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
