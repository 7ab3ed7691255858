/*
Package csvfile is the canonical ledger backend: one CSV file per
calendar day under the records directory.

LAYOUT:
  attendance_YYYY-MM-DD.csv with header
  Employee ID, Name, Check-in Time, Check-out Time, Status, Comments
  Time cells are HH:MM:SS. An open record has an empty check-out cell,
  not a sentinel string.

WRITE DISCIPLINE:
  Check-ins are appended to the end of the file. Check-outs rewrite the
  file through a temp file in the same directory followed by a rename,
  so readers see either the old ledger or the new one, never a partial
  write. One process-wide mutex serializes writers; cross-process races
  on the same directory are the sqlite mirror's problem, not ours.

MALFORMED ROWS:
  A row that fails to decode (bad time, unknown status, missing fields)
  is skipped and counted, never fatal. The monthly report surfaces the
  count to the caller.
*/
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/faceid/attendance-engine/attendance"
)

var header = []string{"Employee ID", "Name", "Check-in Time", "Check-out Time", "Status", "Comments"}

// Store is a LedgerStore over per-day CSV files.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *log.Logger
}

// New creates a CSV ledger store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &attendance.StorageError{Op: "init", Err: err}
	}
	return &Store{dir: dir, logger: log.Default()}, nil
}

// SetLogger replaces the integrity-warning logger.
func (s *Store) SetLogger(l *log.Logger) { s.logger = l }

// Dir returns the records directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(day attendance.Day) string {
	return filepath.Join(s.dir, "attendance_"+day.String()+".csv")
}

// EnsureDay creates the day's file with its header if absent.
func (s *Store) EnsureDay(_ context.Context, day attendance.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureDayLocked(day)
}

func (s *Store) ensureDayLocked(day attendance.Day) error {
	// O_EXCL makes concurrent initialization safe: exactly one creator
	// writes the header, everyone else sees ErrExist.
	f, err := os.OpenFile(s.path(day), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &attendance.StorageError{Op: "ensure_day", Day: day, Err: err}
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return &attendance.StorageError{Op: "ensure_day", Day: day, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &attendance.StorageError{Op: "ensure_day", Day: day, Err: err}
	}
	if err := f.Close(); err != nil {
		return &attendance.StorageError{Op: "ensure_day", Day: day, Err: err}
	}
	return nil
}

// FindOpen returns the employee's first open record for the day.
func (s *Store) FindOpen(ctx context.Context, day attendance.Day, employeeID string) (*attendance.Record, error) {
	records, _, err := s.LoadDay(ctx, day)
	if err != nil {
		return nil, err
	}

	var found *attendance.Record
	open := 0
	for i := range records {
		if records[i].EmployeeID == employeeID && records[i].Open() {
			open++
			if found == nil {
				c := records[i]
				found = &c
			}
		}
	}
	if open > 1 {
		s.logger.Printf("[Ledger] integrity warning: %d open records for %s on %s", open, employeeID, day)
	}
	return found, nil
}

// AppendCheckIn appends a new open record to the day's file.
func (s *Store) AppendCheckIn(_ context.Context, day attendance.Day, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDayLocked(day); err != nil {
		return err
	}

	records, _, err := s.loadDayLocked(day)
	if err != nil {
		return err
	}
	for _, existing := range records {
		if existing.EmployeeID == rec.EmployeeID && existing.Open() {
			return attendance.ErrDuplicateCheckIn
		}
	}

	f, err := os.OpenFile(s.path(day), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &attendance.StorageError{Op: "append_check_in", Day: day, Err: err}
	}
	w := csv.NewWriter(f)
	if err := w.Write(encodeRecord(rec)); err != nil {
		f.Close()
		return &attendance.StorageError{Op: "append_check_in", Day: day, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &attendance.StorageError{Op: "append_check_in", Day: day, Err: err}
	}
	if err := f.Close(); err != nil {
		return &attendance.StorageError{Op: "append_check_in", Day: day, Err: err}
	}
	return nil
}

// CloseCheckOut closes the employee's first open record and rewrites the
// day's file atomically, preserving all other rows as loaded.
func (s *Store) CloseCheckOut(_ context.Context, day attendance.Day, employeeID string, out attendance.ClockTime, commentSuffix string) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, skipped, err := s.loadDayLocked(day)
	if err != nil {
		return attendance.Record{}, err
	}
	if len(skipped) > 0 {
		// Rewriting would drop rows we cannot decode. Refuse rather than
		// silently shrink the ledger.
		return attendance.Record{}, &attendance.StorageError{
			Op:  "close_check_out",
			Day: day,
			Err: fmt.Errorf("%d undecodable rows present, refusing rewrite", len(skipped)),
		}
	}

	closed := -1
	for i := range records {
		if records[i].EmployeeID == employeeID && records[i].Open() {
			o := out
			records[i].CheckOut = &o
			records[i].AppendComment(commentSuffix)
			closed = i
			break
		}
	}
	if closed < 0 {
		return attendance.Record{}, attendance.ErrNoOpenCheckIn
	}

	if err := s.rewriteDay(day, records); err != nil {
		return attendance.Record{}, err
	}
	return records[closed], nil
}

func (s *Store) rewriteDay(day attendance.Day, records []attendance.Record) error {
	tmp, err := os.CreateTemp(s.dir, "attendance_"+day.String()+".*.tmp")
	if err != nil {
		return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	for _, rec := range records {
		if err := w.Write(encodeRecord(rec)); err != nil {
			tmp.Close()
			return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path(day)); err != nil {
		return &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	return nil
}

// LoadDay returns the day's records in file order. A missing file is an
// empty day, not an error.
func (s *Store) LoadDay(_ context.Context, day attendance.Day) ([]attendance.Record, []attendance.SkippedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDayLocked(day)
}

func (s *Store) loadDayLocked(day attendance.Day) ([]attendance.Record, []attendance.SkippedRow, error) {
	f, err := os.Open(s.path(day))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &attendance.StorageError{Op: "load_day", Day: day, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []attendance.Record
	var skipped []attendance.SkippedRow
	line := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, attendance.SkippedRow{Day: day, Line: line, Reason: err.Error()})
			continue
		}
		if line == 1 {
			continue // header
		}
		rec, err := decodeRecord(row)
		if err != nil {
			skipped = append(skipped, attendance.SkippedRow{Day: day, Line: line, Reason: err.Error()})
			s.logger.Printf("[Ledger] skipping row %d of %s: %v", line, day, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Days lists days in [from, to] that have a ledger file, ascending.
func (s *Store) Days(_ context.Context, from, to attendance.Day) ([]attendance.Day, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &attendance.StorageError{Op: "list_days", Err: err}
	}

	var days []attendance.Day
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "attendance_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		day, err := attendance.ParseDay(strings.TrimSuffix(strings.TrimPrefix(name, "attendance_"), ".csv"))
		if err != nil {
			continue
		}
		if !day.Before(from) && !day.After(to) {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// =============================================================================
// ROW CODEC
// =============================================================================

func encodeRecord(rec attendance.Record) []string {
	out := ""
	if rec.CheckOut != nil {
		out = rec.CheckOut.String()
	}
	return []string{rec.EmployeeID, rec.Name, rec.CheckIn.String(), out, string(rec.Status), rec.Comments}
}

func decodeRecord(row []string) (attendance.Record, error) {
	if len(row) < 6 {
		return attendance.Record{}, fmt.Errorf("want 6 fields, got %d", len(row))
	}
	if row[0] == "" {
		return attendance.Record{}, fmt.Errorf("empty employee id")
	}

	checkIn, err := attendance.ParseClockTime(row[2])
	if err != nil {
		return attendance.Record{}, fmt.Errorf("check-in: %w", err)
	}

	var checkOut *attendance.ClockTime
	if row[3] != "" {
		t, err := attendance.ParseClockTime(row[3])
		if err != nil {
			return attendance.Record{}, fmt.Errorf("check-out: %w", err)
		}
		checkOut = &t
	}

	status, err := attendance.ParseStatus(row[4])
	if err != nil {
		return attendance.Record{}, err
	}

	return attendance.Record{
		EmployeeID: row[0],
		Name:       row[1],
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     status,
		Comments:   row[5],
	}, nil
}
