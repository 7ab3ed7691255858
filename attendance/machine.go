/*
machine.go - Check-in/check-out decision logic

PURPOSE:
  The attendance state machine. Given a recognized identity and the
  current instant, decides whether this is a valid check-in or
  check-out, computes the status label and work duration, and writes
  through to the ledger store.

DECISION RULES:
  Check-in status is a pure function of the check-in time against the
  configured work start:
    delta <= 0              -> OnTime
    0 < delta <= threshold  -> GracePeriod
    delta > threshold       -> Late
  Status is assigned once, at check-in. Check-out never revises it; it
  only closes the record and appends the work duration to comments.

CONCURRENCY:
  Two camera frames can match the same person moments apart. A mutex
  keyed by (day, employee) is held across the full read-decide-write
  sequence of both operations, so concurrent recognitions cannot create
  two open records or double-close one. Store-level duplicate errors
  raised despite the lock (a second process on the same ledger) are
  mapped to the same user-facing outcomes.

  There is no "checked in today" cache. The store is consulted on every
  decision, which removes the stale-cache-at-midnight class of bugs.

SEE ALSO:
  - store.go:  Ledger persistence contract
  - report.go: Monthly aggregation over closed ledgers
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// RULES - Configured working-hours policy
// =============================================================================

// Rules holds the working-hours configuration the machine decides against.
type Rules struct {
	WorkStart     ClockTime
	WorkEnd       ClockTime // defines the operational day; not used in decisions
	LateThreshold time.Duration
	Location      *time.Location // reference timezone for "today"
}

// LateThresholdMinutes returns the grace window in whole minutes, the unit
// the comment strings are written in.
func (r Rules) LateThresholdMinutes() int {
	return int(r.LateThreshold / time.Minute)
}

// StatusFor classifies a check-in time against the work start.
func (r Rules) StatusFor(checkIn ClockTime) Status {
	delta := checkIn.Sub(r.WorkStart)
	switch {
	case delta <= 0:
		return StatusOnTime
	case delta <= r.LateThreshold:
		return StatusGracePeriod
	default:
		return StatusLate
	}
}

// CommentFor returns the canonical comment for a check-in status.
// OnTime records carry no comment.
func (r Rules) CommentFor(status Status) string {
	switch status {
	case StatusGracePeriod:
		return fmt.Sprintf("Within %d minute grace period", r.LateThresholdMinutes())
	case StatusLate:
		return fmt.Sprintf("Late by more than %d minutes", r.LateThresholdMinutes())
	}
	return ""
}

// =============================================================================
// OUTCOMES
// =============================================================================

// CheckInResult is the payload of an accepted check-in.
type CheckInResult struct {
	EmployeeID string
	Name       string
	Day        Day
	Time       ClockTime
	Status     Status
	Comments   string
}

// CheckOutResult is the payload of an accepted check-out.
type CheckOutResult struct {
	EmployeeID string
	Name       string
	Day        Day
	Time       ClockTime
	Duration   time.Duration
}

// DaySummary is one day's ledger as seen by callers: the records in
// insertion order plus the count of rows that failed to decode.
type DaySummary struct {
	Day         Day
	Records     []Record
	SkippedRows int
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine decides check-in/check-out legality and writes through to the
// ledger store. Safe for concurrent use.
type Machine struct {
	store LedgerStore
	rules Rules
	clock Clock

	mu       sync.Mutex
	locks    map[string]*sync.Mutex // keyed by employee, scoped to locksDay
	locksDay Day
}

// NewMachine creates a state machine over the given store and rules.
// A nil clock defaults to time.Now.
func NewMachine(store LedgerStore, rules Rules, clock Clock) *Machine {
	if clock == nil {
		clock = time.Now
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	return &Machine{
		store: store,
		rules: rules,
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

// Rules returns the configured working-hours policy.
func (m *Machine) Rules() Rules { return m.rules }

// Today resolves the current calendar day in the reference timezone.
func (m *Machine) Today() Day {
	return DayOf(m.clock().In(m.rules.Location))
}

// lockFor returns the mutex serializing decisions for one employee on
// one day. The map only ever holds the current day's entries: decisions
// are always made for today, so when the day rolls over the previous
// day's mutexes can no longer be requested and the map starts fresh.
func (m *Machine) lockFor(day Day, employeeID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if day != m.locksDay {
		m.locks = make(map[string]*sync.Mutex)
		m.locksDay = day
	}
	l, ok := m.locks[employeeID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[employeeID] = l
	}
	return l
}

// CheckIn records a check-in for the employee at the current instant.
// Returns AlreadyCheckedInError when an open record exists for today.
func (m *Machine) CheckIn(ctx context.Context, employeeID, name string) (CheckInResult, error) {
	now := m.clock().In(m.rules.Location)
	today := DayOf(now)
	at := ClockTimeOf(now)

	l := m.lockFor(today, employeeID)
	l.Lock()
	defer l.Unlock()

	if err := m.store.EnsureDay(ctx, today); err != nil {
		return CheckInResult{}, err
	}

	open, err := m.store.FindOpen(ctx, today, employeeID)
	if err != nil {
		return CheckInResult{}, err
	}
	if open != nil {
		return CheckInResult{}, &AlreadyCheckedInError{
			EmployeeID: employeeID,
			Day:        today,
			Since:      open.CheckIn,
		}
	}

	status := m.rules.StatusFor(at)
	rec := Record{
		EmployeeID: employeeID,
		Name:       name,
		CheckIn:    at,
		Status:     status,
		Comments:   m.rules.CommentFor(status),
	}

	if err := m.store.AppendCheckIn(ctx, today, rec); err != nil {
		if errors.Is(err, ErrDuplicateCheckIn) {
			// Another writer beat us despite the lock (second process on
			// the same ledger). Surface it as the ordinary rejection.
			return CheckInResult{}, m.duplicateAsRejection(ctx, today, employeeID)
		}
		return CheckInResult{}, err
	}

	return CheckInResult{
		EmployeeID: employeeID,
		Name:       name,
		Day:        today,
		Time:       at,
		Status:     status,
		Comments:   rec.Comments,
	}, nil
}

// duplicateAsRejection converts a store-level duplicate into the
// user-facing error, recovering the blocking check-in time when it can.
func (m *Machine) duplicateAsRejection(ctx context.Context, day Day, employeeID string) error {
	rejection := &AlreadyCheckedInError{EmployeeID: employeeID, Day: day}
	if open, err := m.store.FindOpen(ctx, day, employeeID); err == nil && open != nil {
		rejection.Since = open.CheckIn
	}
	return rejection
}

// CheckOut closes the employee's open record for today at the current
// instant and appends the computed work duration to its comments.
// Returns NotCheckedInError when there is nothing to close.
func (m *Machine) CheckOut(ctx context.Context, employeeID, name string) (CheckOutResult, error) {
	now := m.clock().In(m.rules.Location)
	today := DayOf(now)
	at := ClockTimeOf(now)

	l := m.lockFor(today, employeeID)
	l.Lock()
	defer l.Unlock()

	open, err := m.store.FindOpen(ctx, today, employeeID)
	if err != nil {
		return CheckOutResult{}, err
	}
	if open == nil {
		return CheckOutResult{}, &NotCheckedInError{EmployeeID: employeeID, Day: today}
	}

	duration := WorkDuration(open.CheckIn, at)
	suffix := "Work duration: " + FormatDuration(duration)

	if _, err := m.store.CloseCheckOut(ctx, today, employeeID, at, suffix); err != nil {
		if errors.Is(err, ErrNoOpenCheckIn) {
			return CheckOutResult{}, &NotCheckedInError{EmployeeID: employeeID, Day: today}
		}
		return CheckOutResult{}, err
	}

	return CheckOutResult{
		EmployeeID: employeeID,
		Name:       name,
		Day:        today,
		Time:       at,
		Duration:   duration,
	}, nil
}

// Summary returns one day's ledger. A zero day means today.
func (m *Machine) Summary(ctx context.Context, day Day) (DaySummary, error) {
	if day.IsZero() {
		day = m.Today()
	}
	records, skipped, err := m.store.LoadDay(ctx, day)
	if err != nil {
		return DaySummary{}, err
	}
	return DaySummary{Day: day, Records: records, SkippedRows: len(skipped)}, nil
}
