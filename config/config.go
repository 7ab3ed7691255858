// Package config loads engine configuration from environment variables,
// with an optional .env file. Defaults mirror a single-office deployment:
// work 09:00-17:00, 10 minute grace window, records under
// ./attendance_records, reference timezone Asia/Ho_Chi_Minh.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/faceid/attendance-engine/attendance"
)

// Ledger backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the full engine configuration.
type Config struct {
	WorkStart      attendance.ClockTime
	WorkEnd        attendance.ClockTime
	LateThreshold  time.Duration
	RecordsDir     string
	Location       *time.Location
	LedgerBackend  string
	SQLitePath     string
	MatchThreshold float64
	EmbedderURL    string
	RosterPath     string
}

// Rules converts the working-hours part of the config into the state
// machine's policy.
func (c *Config) Rules() attendance.Rules {
	return attendance.Rules{
		WorkStart:     c.WorkStart,
		WorkEnd:       c.WorkEnd,
		LateThreshold: c.LateThreshold,
		Location:      c.Location,
	}
}

// FieldError reports one invalid configuration value.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present. All invalid fields
// are reported together via errors.Join.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{
		RecordsDir:    envOr("RECORDS_DIR", "attendance_records"),
		LedgerBackend: envOr("LEDGER_BACKEND", BackendCSV),
		SQLitePath:    envOr("SQLITE_PATH", "attendance.db"),
		EmbedderURL:   envOr("EMBEDDER_URL", "http://localhost:8000"),
		RosterPath:    envOr("ROSTER_PATH", "employees.json"),
	}

	var errs []error

	var err error
	if cfg.WorkStart, err = attendance.ParseClockTime(envOr("WORK_START_TIME", "09:00")); err != nil {
		errs = append(errs, &FieldError{Field: "WORK_START_TIME", Reason: err.Error()})
	}
	if cfg.WorkEnd, err = attendance.ParseClockTime(envOr("WORK_END_TIME", "17:00")); err != nil {
		errs = append(errs, &FieldError{Field: "WORK_END_TIME", Reason: err.Error()})
	}

	if minutes, err := strconv.Atoi(envOr("LATE_THRESHOLD_MINUTES", "10")); err != nil || minutes < 0 {
		errs = append(errs, &FieldError{Field: "LATE_THRESHOLD_MINUTES", Reason: "want a non-negative integer"})
	} else {
		cfg.LateThreshold = time.Duration(minutes) * time.Minute
	}

	if cfg.Location, err = time.LoadLocation(envOr("ATTENDANCE_TIMEZONE", "Asia/Ho_Chi_Minh")); err != nil {
		errs = append(errs, &FieldError{Field: "ATTENDANCE_TIMEZONE", Reason: err.Error()})
	}

	switch cfg.LedgerBackend {
	case BackendCSV, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, &FieldError{
			Field:  "LEDGER_BACKEND",
			Reason: fmt.Sprintf("unknown backend %q (want csv, sqlite, or memory)", cfg.LedgerBackend),
		})
	}

	if cfg.MatchThreshold, err = strconv.ParseFloat(envOr("MATCH_THRESHOLD", "0.4"), 64); err != nil || cfg.MatchThreshold <= 0 {
		errs = append(errs, &FieldError{Field: "MATCH_THRESHOLD", Reason: "want a positive number"})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
