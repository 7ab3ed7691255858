/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations and the state machine wrap these with context.

ERROR CATEGORIES:
  1. Check-in/check-out legality - user-facing rejections
  2. Store-level races - raised by a backend despite machine-level checks
  3. Storage failures - the ledger medium is unreachable or corrupt

USAGE:
  The API layer routes on the sentinels:

    if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
        // 409, message carries the original check-in time
    }

SEE ALSO:
  - machine.go: Raises the user-facing errors
  - store.go: Store contract that raises the race variants
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyCheckedIn is returned when an employee with an open record
	// for the day attempts a second check-in.
	ErrAlreadyCheckedIn = errors.New("employee already checked in")

	// ErrNotCheckedIn is returned when a check-out finds no open record
	// for the employee on the day.
	ErrNotCheckedIn = errors.New("employee has no open check-in")

	// ErrDuplicateCheckIn is the store-level variant of ErrAlreadyCheckedIn,
	// raised when an append would create a second open record. It fires when
	// another writer slipped in between the machine's read and its write.
	ErrDuplicateCheckIn = errors.New("duplicate open check-in for day")

	// ErrNoOpenCheckIn is the store-level variant of ErrNotCheckedIn.
	ErrNoOpenCheckIn = errors.New("no open check-in to close")

	// ErrStorageUnavailable is returned when the ledger medium cannot be
	// read or written. Operations fail loudly; nothing is fabricated.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrMalformedRecord is returned when a persisted row cannot be decoded.
	// Loads skip such rows and count them; they are never fatal.
	ErrMalformedRecord = errors.New("malformed ledger record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AlreadyCheckedInError reports a rejected duplicate check-in.
// Since is the check-in time of the record that blocked it.
type AlreadyCheckedInError struct {
	EmployeeID string
	Day        Day
	Since      ClockTime
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("employee %s already checked in on %s at %s",
		e.EmployeeID, e.Day, e.Since)
}

func (e *AlreadyCheckedInError) Unwrap() error {
	return ErrAlreadyCheckedIn
}

// NotCheckedInError reports a check-out with no open record to close.
type NotCheckedInError struct {
	EmployeeID string
	Day        Day
}

func (e *NotCheckedInError) Error() string {
	return fmt.Sprintf("employee %s has no open check-in on %s", e.EmployeeID, e.Day)
}

func (e *NotCheckedInError) Unwrap() error {
	return ErrNotCheckedIn
}

// StorageError reports a failed ledger read or write.
type StorageError struct {
	Op  string // "ensure_day", "append_check_in", ...
	Day Day
	Err error
}

func (e *StorageError) Error() string {
	if e.Day.IsZero() {
		return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger %s for %s: %v", e.Op, e.Day, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorageUnavailable
}

// MalformedRecordError describes one undecodable ledger row.
type MalformedRecordError struct {
	Day    Day
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record on %s line %d: %s", e.Day, e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUserFacing returns true for rejections the caller should present to the
// employee rather than treat as a system failure.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrNotCheckedIn)
}

// IsStorage returns true if the error indicates an unavailable ledger medium.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
