// Package store provides an in-memory LedgerStore for tests and demos.
package store

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/faceid/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	days   map[attendance.Day][]attendance.Record
	logger *log.Logger
}

func NewMemory() *Memory {
	return &Memory{
		days:   make(map[attendance.Day][]attendance.Record),
		logger: log.Default(),
	}
}

// SetLogger replaces the integrity-warning logger.
func (m *Memory) SetLogger(l *log.Logger) { m.logger = l }

// EnsureDay initializes an empty ledger for the day if absent.
func (m *Memory) EnsureDay(_ context.Context, day attendance.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.days[day]; !ok {
		m.days[day] = []attendance.Record{}
	}
	return nil
}

// FindOpen returns the employee's first open record for the day.
func (m *Memory) FindOpen(_ context.Context, day attendance.Day, employeeID string) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *attendance.Record
	open := 0
	for i := range m.days[day] {
		rec := m.days[day][i]
		if rec.EmployeeID == employeeID && rec.Open() {
			open++
			if found == nil {
				c := rec
				found = &c
			}
		}
	}
	if open > 1 {
		m.logger.Printf("[Ledger] integrity warning: %d open records for %s on %s", open, employeeID, day)
	}
	return found, nil
}

// AppendCheckIn appends a new open record, rejecting a duplicate open one.
func (m *Memory) AppendCheckIn(_ context.Context, day attendance.Day, rec attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.days[day] {
		if existing.EmployeeID == rec.EmployeeID && existing.Open() {
			return attendance.ErrDuplicateCheckIn
		}
	}
	m.days[day] = append(m.days[day], rec)
	return nil
}

// CloseCheckOut closes the employee's first open record for the day.
func (m *Memory) CloseCheckOut(_ context.Context, day attendance.Day, employeeID string, out attendance.ClockTime, commentSuffix string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.days[day] {
		rec := &m.days[day][i]
		if rec.EmployeeID == employeeID && rec.Open() {
			o := out
			rec.CheckOut = &o
			rec.AppendComment(commentSuffix)
			return *rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNoOpenCheckIn
}

// LoadDay returns the day's records in insertion order.
func (m *Memory) LoadDay(_ context.Context, day attendance.Day) ([]attendance.Record, []attendance.SkippedRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.Record, len(m.days[day]))
	copy(result, m.days[day])
	return result, nil, nil
}

// Days returns days in [from, to] that have a ledger, ascending.
func (m *Memory) Days(_ context.Context, from, to attendance.Day) ([]attendance.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var days []attendance.Day
	for d := range m.days {
		if !d.Before(from) && !d.After(to) {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}
