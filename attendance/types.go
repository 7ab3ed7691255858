package attendance

import "fmt"

// =============================================================================
// STATUS - Classification of a check-in relative to the configured work start
// =============================================================================

// Status is assigned exactly once, at check-in. Check-out never changes it.
type Status string

const (
	StatusOnTime      Status = "OnTime"
	StatusGracePeriod Status = "GracePeriod"
	StatusLate        Status = "Late"

	// StatusAbsent never appears in a day ledger. It is synthesized by the
	// report aggregator for registered employees with no record on a day.
	StatusAbsent Status = "Absent"
)

// Valid reports whether s is one of the recognized status labels.
func (s Status) Valid() bool {
	switch s {
	case StatusOnTime, StatusGracePeriod, StatusLate, StatusAbsent:
		return true
	}
	return false
}

// ParseStatus converts a persisted label to a Status. Legacy ledgers written
// with spaced labels ("On Time", "Grace Period") are normalized on read.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "OnTime", "On Time":
		return StatusOnTime, nil
	case "GracePeriod", "Grace Period":
		return StatusGracePeriod, nil
	case "Late":
		return StatusLate, nil
	case "Absent":
		return StatusAbsent, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// =============================================================================
// RECORD - One attendance row for an employee on a day
// =============================================================================

// Record is a single ledger row. CheckOut is nil while the record is open;
// closing it is the only mutation a record ever sees.
type Record struct {
	EmployeeID string
	Name       string
	CheckIn    ClockTime
	CheckOut   *ClockTime
	Status     Status
	Comments   string
}

// Open reports whether the record is still awaiting a check-out.
func (r Record) Open() bool { return r.CheckOut == nil }

// AppendComment joins extra onto the record's comments with "; ".
func (r *Record) AppendComment(extra string) {
	if extra == "" {
		return
	}
	if r.Comments == "" {
		r.Comments = extra
		return
	}
	r.Comments = r.Comments + "; " + extra
}
