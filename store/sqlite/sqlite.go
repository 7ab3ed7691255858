/*
Package sqlite provides a SQLite-backed LedgerStore.

PURPOSE:
  A queryable mirror of the attendance ledger. Where the CSV backend is
  the canonical human-readable layout, SQLite gives indexed lookups and
  an engine-level backstop for the one-open-record invariant.

KEY TABLES:
  attendance_records: One row per check-in, closed in place at check-out
  ledger_days:        Days that have been initialized (possibly empty)

INVARIANT ENFORCEMENT:
  idx_unique_open_checkin is a partial unique index on
  (day, employee_id) WHERE check_out IS NULL. Even a caller that skips
  FindOpen cannot insert a second open record; the violation surfaces
  as ErrDuplicateCheckIn.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process. SQLite is
  opened with WAL (Write-Ahead Logging): readers don't block, single
  writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - attendance/store.go: Interface definition
  - store/csvfile: Canonical CSV backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faceid/attendance-engine/attendance"
)

// Store implements attendance.LedgerStore using SQLite.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, &attendance.StorageError{Op: "open", Err: err}
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, logger: log.Default()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, &attendance.StorageError{Op: "migrate", Err: err}
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLogger replaces the integrity-warning logger.
func (s *Store) SetLogger(l *log.Logger) { s.logger = l }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		check_in TEXT NOT NULL,
		check_out TEXT,
		status TEXT NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_day
		ON attendance_records(day);
	CREATE INDEX IF NOT EXISTS idx_records_day_employee
		ON attendance_records(day, employee_id);

	-- CRITICAL: one open record per (day, employee). A second open
	-- check-in cannot be inserted even by a caller that skipped FindOpen.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_open_checkin
		ON attendance_records(day, employee_id)
		WHERE check_out IS NULL;

	-- Days that have been initialized, including ones with no records yet.
	CREATE TABLE IF NOT EXISTS ledger_days (
		day TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (attendance.LedgerStore interface)
// =============================================================================

// EnsureDay initializes the day, no-op if already present.
func (s *Store) EnsureDay(ctx context.Context, day attendance.Day) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO ledger_days (day, created_at) VALUES (?, ?)",
		day.String(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &attendance.StorageError{Op: "ensure_day", Day: day, Err: err}
	}
	return nil
}

// FindOpen returns the employee's first open record for the day.
func (s *Store) FindOpen(ctx context.Context, day attendance.Day, employeeID string) (*attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, name, check_in, check_out, status, comments
		FROM attendance_records
		WHERE day = ? AND employee_id = ? AND check_out IS NULL
		ORDER BY rowid ASC
	`, day.String(), employeeID)
	if err != nil {
		return nil, &attendance.StorageError{Op: "find_open", Day: day, Err: err}
	}
	defer rows.Close()

	var found *attendance.Record
	open := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &attendance.StorageError{Op: "find_open", Day: day, Err: err}
		}
		open++
		if found == nil {
			found = &rec
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &attendance.StorageError{Op: "find_open", Day: day, Err: err}
	}
	if open > 1 {
		s.logger.Printf("[Ledger] integrity warning: %d open records for %s on %s", open, employeeID, day)
	}
	return found, nil
}

// AppendCheckIn inserts a new open record. The partial unique index
// rejects a second open record for the same (day, employee).
func (s *Store) AppendCheckIn(ctx context.Context, day attendance.Day, rec attendance.Record) error {
	if err := s.EnsureDay(ctx, day); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
		(id, day, employee_id, name, check_in, check_out, status, comments, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?)
	`,
		uuid.NewString(),
		day.String(),
		rec.EmployeeID,
		rec.Name,
		rec.CheckIn.String(),
		string(rec.Status),
		rec.Comments,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return attendance.ErrDuplicateCheckIn
		}
		return &attendance.StorageError{Op: "append_check_in", Day: day, Err: err}
	}
	return nil
}

// CloseCheckOut sets the check-out time on the employee's first open
// record for the day, inside one database transaction.
func (s *Store) CloseCheckOut(ctx context.Context, day attendance.Day, employeeID string, out attendance.ClockTime, commentSuffix string) (attendance.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	defer tx.Rollback()

	var id, name, checkIn, status, comments string
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, check_in, status, comments
		FROM attendance_records
		WHERE day = ? AND employee_id = ? AND check_out IS NULL
		ORDER BY rowid ASC
		LIMIT 1
	`, day.String(), employeeID).Scan(&id, &name, &checkIn, &status, &comments)
	if err == sql.ErrNoRows {
		return attendance.Record{}, attendance.ErrNoOpenCheckIn
	}
	if err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}

	rec := attendance.Record{
		EmployeeID: employeeID,
		Name:       name,
		Comments:   comments,
	}
	// Rows imported from older ledgers may carry legacy status labels.
	rec.Status, err = attendance.ParseStatus(status)
	if err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	rec.CheckIn, err = attendance.ParseClockTime(checkIn)
	if err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	o := out
	rec.CheckOut = &o
	rec.AppendComment(commentSuffix)

	_, err = tx.ExecContext(ctx,
		"UPDATE attendance_records SET check_out = ?, comments = ? WHERE id = ?",
		out.String(), rec.Comments, id,
	)
	if err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return attendance.Record{}, &attendance.StorageError{Op: "close_check_out", Day: day, Err: err}
	}
	return rec, nil
}

// LoadDay returns the day's records in insertion order. Rows that fail
// to decode are skipped and reported, not fatal.
func (s *Store) LoadDay(ctx context.Context, day attendance.Day) ([]attendance.Record, []attendance.SkippedRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, name, check_in, check_out, status, comments
		FROM attendance_records
		WHERE day = ?
		ORDER BY rowid ASC
	`, day.String())
	if err != nil {
		return nil, nil, &attendance.StorageError{Op: "load_day", Day: day, Err: err}
	}
	defer rows.Close()

	var records []attendance.Record
	var skipped []attendance.SkippedRow
	line := 0
	for rows.Next() {
		line++
		rec, err := scanRecord(rows)
		if err != nil {
			skipped = append(skipped, attendance.SkippedRow{Day: day, Line: line, Reason: err.Error()})
			s.logger.Printf("[Ledger] skipping row %d of %s: %v", line, day, err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &attendance.StorageError{Op: "load_day", Day: day, Err: err}
	}
	return records, skipped, nil
}

// Days returns days in [from, to] with a ledger, ascending. Includes
// initialized-but-empty days.
func (s *Store) Days(ctx context.Context, from, to attendance.Day) ([]attendance.Day, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day FROM ledger_days WHERE day >= ? AND day <= ?
		UNION
		SELECT DISTINCT day FROM attendance_records WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, from.String(), to.String(), from.String(), to.String())
	if err != nil {
		return nil, &attendance.StorageError{Op: "list_days", Err: err}
	}
	defer rows.Close()

	var days []attendance.Day
	for rows.Next() {
		var dayStr string
		if err := rows.Scan(&dayStr); err != nil {
			return nil, &attendance.StorageError{Op: "list_days", Err: err}
		}
		day, err := attendance.ParseDay(dayStr)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// =============================================================================
// BULK IMPORT
// =============================================================================

// ImportDay writes a full day of records in one transaction, replacing
// whatever the mirror held for that day. Used by the CLI importer to
// backfill historical CSV ledgers.
func (s *Store) ImportDay(ctx context.Context, day attendance.Day, records []attendance.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &attendance.StorageError{Op: "import_day", Day: day, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_records WHERE day = ?", day.String()); err != nil {
		return &attendance.StorageError{Op: "import_day", Day: day, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO ledger_days (day, created_at) VALUES (?, ?)",
		day.String(), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return &attendance.StorageError{Op: "import_day", Day: day, Err: err}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		var checkOut *string
		if rec.CheckOut != nil {
			c := rec.CheckOut.String()
			checkOut = &c
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records
			(id, day, employee_id, name, check_in, check_out, status, comments, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.NewString(), day.String(), rec.EmployeeID, rec.Name,
			rec.CheckIn.String(), checkOut, string(rec.Status), rec.Comments, now,
		)
		if err != nil {
			return &attendance.StorageError{Op: "import_day", Day: day, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &attendance.StorageError{Op: "import_day", Day: day, Err: err}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func scanRecord(rows *sql.Rows) (attendance.Record, error) {
	var rec attendance.Record
	var checkIn, statusStr string
	var checkOut sql.NullString

	if err := rows.Scan(&rec.EmployeeID, &rec.Name, &checkIn, &checkOut, &statusStr, &rec.Comments); err != nil {
		return rec, err
	}

	var err error
	rec.CheckIn, err = attendance.ParseClockTime(checkIn)
	if err != nil {
		return rec, fmt.Errorf("check-in: %w", err)
	}
	if checkOut.Valid {
		t, err := attendance.ParseClockTime(checkOut.String)
		if err != nil {
			return rec, fmt.Errorf("check-out: %w", err)
		}
		rec.CheckOut = &t
	}
	rec.Status, err = attendance.ParseStatus(statusStr)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
