/*
kiosk.go - Public punch endpoints

PURPOSE:
  The shared device at the entrance. Employees scan the QR code, enter
  their id, pick a slot and punch. No login.

ENDPOINTS:
  GET  /                      Redirect to the QR code
  GET  /punch/qrcode          PNG pointing at <PUBLIC_BASE_URL>/punch
  GET  /punch/segments        The six clock slots
  POST /punch                 Record now for (employee, today, segment)
  GET  /punch/card/{id}?ym=   The employee's month of clock slots

PUNCH OUTCOMES:
  201 success   recorded
  200 warn      slot already punched today; nothing changes
  404 error     unknown employee
  400 error     bad id or segment (leave cannot be punched)
*/
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
)

const qrSize = 320

// Home redirects to the kiosk QR code.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/punch/qrcode", http.StatusFound)
}

// QRCode renders the punch URL as a PNG.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.publicBaseURL+"/punch", qrcode.Medium, qrSize)
	if err != nil {
		h.fail(w, r, "Failed to render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Segments lists the punchable slots.
func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	out := make([]SegmentDTO, len(attendance.ClockSegments))
	for i, s := range attendance.ClockSegments {
		out[i] = SegmentDTO{Tag: s.String(), Label: s.Label()}
	}
	writeJSON(w, http.StatusOK, out)
}

// Punch records the current time for one slot of today.
func (h *Handler) Punch(w http.ResponseWriter, r *http.Request) {
	var req PunchRequest
	if err := decodeBody(r, &req, func(form func(string) string) {
		req.EmployeeID, req.Segment = form("employee_id"), form("segment")
	}); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id, err := strconv.Atoi(strings.TrimSpace(req.EmployeeID))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, PunchResponse{Status: PunchError, Message: "invalid employee id"})
		return
	}
	seg, err := attendance.ParseSegmentType(req.Segment)
	if err != nil || !seg.IsClock() {
		writeJSON(w, http.StatusBadRequest, PunchResponse{Status: PunchError, Message: "invalid segment"})
		return
	}

	ctx := r.Context()
	emp, err := h.store.GetEmployee(ctx, id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeJSON(w, http.StatusNotFound, PunchResponse{Status: PunchError, Message: "employee not found", EmployeeID: id})
		return
	}

	now := h.now()
	p := attendance.PunchEvent{
		EmployeeID: id,
		WorkDate:   attendance.DateOf(now),
		Segment:    seg,
		Clock:      attendance.ClockOf(now),
		RecordedAt: now,
	}
	resp := PunchResponse{
		EmployeeID: id,
		Name:       emp.Name,
		Segment:    seg.String(),
		WorkDate:   p.WorkDate.String(),
		Clock:      p.Clock.String(),
	}

	err = h.store.AddPunch(ctx, p)
	switch {
	case errors.Is(err, store.ErrDuplicatePunch):
		resp.Status, resp.Message, resp.Clock = PunchWarn, "already punched", ""
		writeJSON(w, http.StatusOK, resp)
	case err != nil:
		h.fail(w, r, "Failed to record punch", err)
	default:
		h.logger.InfoContext(ctx, "punch recorded", "employee_id", id, "segment", seg, "work_date", p.WorkDate)
		resp.Status, resp.Message = PunchSuccess, "punched"
		writeJSON(w, http.StatusCreated, resp)
	}
}

// PunchCard shows an employee's month of slots after night reassignment.
func (h *Handler) PunchCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	m, err := h.month(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ym (use YYYY-MM)", err)
		return
	}

	rep, err := h.reports.Employee(r.Context(), id, m)
	if err != nil {
		h.fail(w, r, "Failed to load punch card", err)
		return
	}

	card := PunchCardDTO{
		EmployeeID: rep.Employee.ID,
		Name:       rep.Employee.Name,
		Area:       rep.Employee.Area,
		Month:      m.String(),
		Days:       make([]PunchCardDay, len(rep.Days)),
	}
	for i, d := range rep.Days {
		card.Days[i] = PunchCardDay{Date: d.Date.String(), Slots: slotsOf(d.Segments), Note: d.Note}
	}
	writeJSON(w, http.StatusOK, card)
}
