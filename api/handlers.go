/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance state machine, the ledger, and the enrollment
  gallery via REST. Handles HTTP request/response and JSON, delegates
  every decision to the domain packages.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/check-in         Record a check-in
    POST   /api/attendance/check-out        Record a check-out
    GET    /api/attendance/summary          One day's ledger (?date=)

  Reports:
    GET    /api/reports/monthly             Status matrix (?year=&month=)
    POST   /api/reports/monthly             Write the CSV, return its path
    GET    /api/reports/hours               Worked-hours totals

  Employees:
    GET    /api/employees                   List enrolled employees
    POST   /api/employees                   Enroll (id, name, embedding)
    DELETE /api/employees/{id}              Remove from roster and index

  Recognition:
    POST   /api/recognize                   Embedding -> identity -> record

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Unknown employee
  - 409: Rejected decision (already checked in, not checked in)
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/config"
	"github.com/faceid/attendance-engine/gallery"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Machine *attendance.Machine
	Store   attendance.LedgerStore
	Roster  *gallery.Roster
	Index   *gallery.Index
	Config  *config.Config

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given dependencies.
func NewHandler(machine *attendance.Machine, store attendance.LedgerStore, roster *gallery.Roster, index *gallery.Index, cfg *config.Config) *Handler {
	return &Handler{
		Machine: machine,
		Store:   store,
		Roster:  roster,
		Index:   index,
		Config:  cfg,
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records a check-in for the employee in the request body.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	result, err := h.Machine.CheckIn(r.Context(), req.EmployeeID, req.Name)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkInDTO(result))
}

// CheckOut records a check-out for the employee in the request body.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	result, err := h.Machine.CheckOut(r.Context(), req.EmployeeID, req.Name)
	if err != nil {
		writeDecisionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkOutDTO(result))
}

// Summary returns one day's ledger. ?date=YYYY-MM-DD, default today.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var day attendance.Day
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		var err error
		if day, err = attendance.ParseDay(dateStr); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
	}

	summary, err := h.Machine.Summary(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load day", err)
		return
	}

	dto := DaySummaryDTO{
		Date:        summary.Day.String(),
		Records:     make([]RecordDTO, len(summary.Records)),
		SkippedRows: summary.SkippedRows,
	}
	for i, rec := range summary.Records {
		dto.Records[i] = recordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) reportMonth(r *http.Request) (int, time.Month, bool) {
	today := h.Machine.Today()
	year, month := today.Year, today.Month

	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return 0, 0, false
		}
		year = n
	}
	if m := r.URL.Query().Get("month"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, false
		}
		month = time.Month(n)
	}
	return year, month, true
}

// MonthlyReport returns the status matrix for a month as JSON.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.reportMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year or month", nil)
		return
	}

	report, err := attendance.BuildMonthlyReport(r.Context(), h.Store, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}

	writeJSON(w, http.StatusOK, monthlyReportDTO(report))
}

// WriteMonthlyReport builds the month's report, writes its CSV into the
// records directory, and returns the file path.
func (h *Handler) WriteMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.reportMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year or month", nil)
		return
	}

	report, err := attendance.BuildMonthlyReport(r.Context(), h.Store, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}

	path, err := report.WriteFile(h.Config.RecordsDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write report", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":         path,
		"rows":         len(report.Rows),
		"skipped_rows": report.SkippedRows,
	})
}

// HoursReport returns per-employee worked-hour totals for a month.
func (h *Handler) HoursReport(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.reportMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year or month", nil)
		return
	}

	rows, err := attendance.BuildHoursReport(r.Context(), h.Store, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build hours report", err)
		return
	}

	dtos := make([]HoursRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = HoursRowDTO{
			EmployeeID: row.EmployeeID,
			Name:       row.Name,
			Hours:      row.Hours.StringFixed(2),
			DaysWorked: row.DaysWorked,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the enrolled roster.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees := h.Roster.List()
	dtos := make([]EmployeeDTO, len(employees))
	for i, emp := range employees {
		dtos[i] = EmployeeDTO{
			ID:         emp.ID,
			Name:       emp.Name,
			EnrolledAt: emp.EnrolledAt.Format(time.RFC3339),
			HasFace:    len(emp.Embedding) > 0,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EnrollEmployee adds an employee to the roster and the identity index.
func (h *Handler) EnrollEmployee(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, "embedding is required", nil)
		return
	}

	// Validate against the index first: a wrong-dimension embedding must
	// not reach the roster.
	if err := h.Index.Enroll(req.ID, req.Name, req.Embedding); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid embedding", err)
		return
	}

	emp := gallery.Employee{ID: req.ID, Name: req.Name, Embedding: req.Embedding}
	if err := h.Roster.Add(emp); err != nil {
		h.Index.Remove(req.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save roster", err)
		return
	}

	stored := h.Roster.Get(req.ID)
	writeJSON(w, http.StatusCreated, EmployeeDTO{
		ID:         stored.ID,
		Name:       stored.Name,
		EnrolledAt: stored.EnrolledAt.Format(time.RFC3339),
		HasFace:    len(stored.Embedding) > 0,
	})
}

// RemoveEmployee deletes an employee from the roster and the index.
func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.Roster.Get(id) == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	if err := h.Roster.Remove(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save roster", err)
		return
	}
	h.Index.Remove(id)
	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}

// =============================================================================
// RECOGNITION HANDLER
// =============================================================================

// Recognize identifies a face embedding against the enrolled gallery
// and, when recognized, records the requested attendance event.
// An unknown face is a 200 with recognized=false, never an error.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, "embedding is required", nil)
		return
	}
	if req.Mode != "check_in" && req.Mode != "check_out" {
		writeError(w, http.StatusBadRequest, "mode must be check_in or check_out", nil)
		return
	}

	match, err := h.Index.Identify(req.Embedding)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to identify face", err)
		return
	}

	var resp RecognizeResponse
	if match == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	matchDTO(&resp, match)

	switch req.Mode {
	case "check_in":
		result, err := h.Machine.CheckIn(r.Context(), match.EmployeeID, match.Name)
		if err != nil {
			if attendance.IsUserFacing(err) {
				resp.Message = err.Error()
				writeJSON(w, http.StatusOK, resp)
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to record check-in", err)
			return
		}
		dto := checkInDTO(result)
		resp.CheckIn = &dto

	case "check_out":
		result, err := h.Machine.CheckOut(r.Context(), match.EmployeeID, match.Name)
		if err != nil {
			if attendance.IsUserFacing(err) {
				resp.Message = err.Error()
				writeJSON(w, http.StatusOK, resp)
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to record check-out", err)
			return
		}
		dto := checkOutDTO(result)
		resp.CheckOut = &dto
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func checkInDTO(result attendance.CheckInResult) CheckInDTO {
	return CheckInDTO{
		EmployeeID: result.EmployeeID,
		Name:       result.Name,
		Date:       result.Day.String(),
		Time:       result.Time.String(),
		Status:     string(result.Status),
		Comments:   result.Comments,
	}
}

func checkOutDTO(result attendance.CheckOutResult) CheckOutDTO {
	return CheckOutDTO{
		EmployeeID: result.EmployeeID,
		Name:       result.Name,
		Date:       result.Day.String(),
		Time:       result.Time.String(),
		Duration:   attendance.FormatDuration(result.Duration),
	}
}

func monthlyReportDTO(report *attendance.MonthlyReport) MonthlyReportDTO {
	dto := MonthlyReportDTO{
		Year:        report.Year,
		Month:       int(report.Month),
		Dates:       make([]string, len(report.Days)),
		Rows:        make([]ReportRowDTO, len(report.Rows)),
		SkippedRows: report.SkippedRows,
	}
	for i, d := range report.Days {
		dto.Dates[i] = d.String()
	}
	for i, row := range report.Rows {
		statuses := make([]string, len(row.Statuses))
		for j, s := range row.Statuses {
			statuses[j] = string(s)
		}
		dto.Rows[i] = ReportRowDTO{EmployeeID: row.EmployeeID, Name: row.Name, Statuses: statuses}
	}
	return dto
}

// writeDecisionError maps a state-machine error onto an HTTP status:
// rejected decisions are 409 conflicts, storage failures are 500s.
func writeDecisionError(w http.ResponseWriter, err error) {
	if attendance.IsUserFacing(err) {
		writeError(w, http.StatusConflict, err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Attendance operation failed", err)
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
