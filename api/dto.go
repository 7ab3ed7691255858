/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/gallery"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

// CheckRequest identifies the employee for a check-in or check-out.
type CheckRequest struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
}

// CheckInDTO is an accepted check-in.
type CheckInDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     string `json:"status"`
	Comments   string `json:"comments,omitempty"`
}

// CheckOutDTO is an accepted check-out.
type CheckOutDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Duration   string `json:"duration"`
}

// RecordDTO is one ledger row.
type RecordDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out,omitempty"`
	Status     string `json:"status"`
	Comments   string `json:"comments,omitempty"`
}

// DaySummaryDTO is one day's ledger.
type DaySummaryDTO struct {
	Date        string      `json:"date"`
	Records     []RecordDTO `json:"records"`
	SkippedRows int         `json:"skipped_rows,omitempty"`
}

func recordDTO(rec attendance.Record) RecordDTO {
	dto := RecordDTO{
		EmployeeID: rec.EmployeeID,
		Name:       rec.Name,
		CheckIn:    rec.CheckIn.String(),
		Status:     string(rec.Status),
		Comments:   rec.Comments,
	}
	if rec.CheckOut != nil {
		dto.CheckOut = rec.CheckOut.String()
	}
	return dto
}

// =============================================================================
// REPORTS
// =============================================================================

// MonthlyReportDTO is the per-employee, per-day status matrix.
type MonthlyReportDTO struct {
	Year        int            `json:"year"`
	Month       int            `json:"month"`
	Dates       []string       `json:"dates"`
	Rows        []ReportRowDTO `json:"rows"`
	SkippedRows int            `json:"skipped_rows,omitempty"`
}

// ReportRowDTO is one employee's statuses, index-aligned with Dates.
type ReportRowDTO struct {
	EmployeeID string   `json:"employee_id"`
	Name       string   `json:"name"`
	Statuses   []string `json:"statuses"`
}

// HoursRowDTO is one employee's worked time over a month.
type HoursRowDTO struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Hours      string `json:"hours"`
	DaysWorked int    `json:"days_worked"`
}

// =============================================================================
// EMPLOYEES / RECOGNITION
// =============================================================================

// EmployeeDTO represents an enrolled employee. Embeddings are not
// echoed back; only their presence.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EnrolledAt string `json:"enrolled_at"`
	HasFace    bool   `json:"has_face"`
}

// EnrollRequest enrolls an employee with a face embedding captured by
// the registration tool.
type EnrollRequest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// RecognizeRequest submits one face embedding for identification, in
// either check-in or check-out mode.
type RecognizeRequest struct {
	Embedding []float32 `json:"embedding"`
	Mode      string    `json:"mode"` // check_in | check_out
}

// RecognizeResponse is the identification outcome. When the face is
// unknown, Recognized is false and nothing else is set. When the
// attendance decision is rejected (already checked in, not checked in),
// Recognized stays true and Message carries the rejection.
type RecognizeResponse struct {
	Recognized bool         `json:"recognized"`
	EmployeeID string       `json:"employee_id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Distance   float64      `json:"distance,omitempty"`
	CheckIn    *CheckInDTO  `json:"check_in,omitempty"`
	CheckOut   *CheckOutDTO `json:"check_out,omitempty"`
	Message    string       `json:"message,omitempty"`
}

func matchDTO(resp *RecognizeResponse, m *gallery.Match) {
	resp.Recognized = true
	resp.EmployeeID = m.EmployeeID
	resp.Name = m.Name
	resp.Distance = m.Distance
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
