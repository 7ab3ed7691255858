/*
store.go - Persistence interface for daily attendance ledgers

PURPOSE:
  Defines the interface between the attendance state machine and the
  ledger medium. One ledger per calendar day; records are appended at
  check-in and mutated exactly once more at check-out.

KEY CONTRACT:
  At most one open record (check-in set, check-out unset) per
  (employee, day). AppendCheckIn re-validates this even though the
  machine checks first, so a second writer cannot sneak a duplicate in.

TOLERATED CORRUPTION:
  If a ledger somehow holds multiple open records for one employee,
  FindOpen returns the first in insertion order and implementations log
  a data-integrity warning. Loads skip rows they cannot decode and
  report them as SkippedRow values instead of failing the whole day.

IMPLEMENTATIONS:
  - attendance/store/memory.go: In-memory, for tests and demos
  - store/csvfile/csvfile.go:   Canonical per-day CSV files
  - store/sqlite/sqlite.go:     SQLite mirror with index-level backstop

SEE ALSO:
  - machine.go: The only writer; holds the per-employee lock
  - report.go: Reads across many days via LoadDay
*/
package attendance

import "context"

// LedgerStore handles persistence of per-day attendance records.
type LedgerStore interface {
	// EnsureDay idempotently initializes storage for the day.
	// Concurrent calls for the same day must not corrupt it.
	EnsureDay(ctx context.Context, day Day) error

	// FindOpen returns the employee's open record for the day, or nil
	// when there is none. Multiple open records (integrity breach) yield
	// the first in insertion order plus a logged warning.
	FindOpen(ctx context.Context, day Day, employeeID string) (*Record, error)

	// AppendCheckIn appends a new open record. Returns an error wrapping
	// ErrDuplicateCheckIn if the employee already has an open record.
	AppendCheckIn(ctx context.Context, day Day, rec Record) error

	// CloseCheckOut sets the check-out time on the employee's open record
	// and appends commentSuffix to its comments. Returns the closed
	// record, or an error wrapping ErrNoOpenCheckIn when none is open.
	CloseCheckOut(ctx context.Context, day Day, employeeID string, out ClockTime, commentSuffix string) (Record, error)

	// LoadDay returns all records for the day in insertion order, plus
	// any rows that failed to decode. A day with no ledger yet is an
	// empty slice, not an error.
	LoadDay(ctx context.Context, day Day) ([]Record, []SkippedRow, error)

	// Days returns the days in [from, to] that have a ledger, ascending.
	Days(ctx context.Context, from, to Day) ([]Day, error)
}

// SkippedRow describes one persisted row that could not be decoded and
// was left out of a load. Reports surface the count to the caller.
type SkippedRow struct {
	Day    Day
	Line   int
	Reason string
}
