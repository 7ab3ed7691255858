// Command attendance is the operations CLI for the attendance engine:
// manual check-in/check-out, day summaries, monthly reports, roster
// enrollment, and bulk import of historical CSV ledgers into the
// SQLite mirror.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/faceid/attendance-engine/attendance"
	memstore "github.com/faceid/attendance-engine/attendance/store"
	"github.com/faceid/attendance-engine/config"
	"github.com/faceid/attendance-engine/store/csvfile"
	"github.com/faceid/attendance-engine/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Operations CLI for the face-recognition attendance engine",
	Long: `Attendance is the operations companion to the attendance server.
It records manual check-ins and check-outs, prints day summaries,
generates monthly reports, manages the enrollment roster, and imports
historical CSV ledgers into the SQLite mirror.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		// .env file is optional, don't fail if not found
		_ = godotenv.Load()
	})
}

// loadConfig loads env configuration; commands call it in RunE so flag
// parsing errors surface before config errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (attendance.LedgerStore, func() error, error) {
	switch cfg.LedgerBackend {
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendMemory:
		return memstore.NewMemory(), func() error { return nil }, nil
	default:
		s, err := csvfile.New(cfg.RecordsDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}
