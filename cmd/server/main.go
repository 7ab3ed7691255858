/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine HTTP server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env optional)
  2. Apply command-line flag overrides
  3. Open the ledger store (csv, sqlite, or memory)
  4. Load the enrollment roster and build the identity index
  5. Configure HTTP router, start the rollover scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port         HTTP server port (default: 8080)
  -backend      Ledger backend: csv, sqlite, memory (default: from env)
  -records-dir  Records directory for csv ledgers and report output
  -db           SQLite database path (use ":memory:" for in-memory)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the rollover scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Exit

EXAMPLES:
  # CSV ledgers under ./attendance_records (the default)
  ./server

  # SQLite mirror backend
  ./server -backend=sqlite -db=./data/attendance.db

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faceid/attendance-engine/api"
	"github.com/faceid/attendance-engine/attendance"
	memstore "github.com/faceid/attendance-engine/attendance/store"
	"github.com/faceid/attendance-engine/config"
	"github.com/faceid/attendance-engine/gallery"
	"github.com/faceid/attendance-engine/store/csvfile"
	"github.com/faceid/attendance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	backend := flag.String("backend", "", "ledger backend: csv, sqlite, memory (default from env)")
	recordsDir := flag.String("records-dir", "", "records directory (default from env)")
	dbPath := flag.String("db", "", "SQLite database path (default from env)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *backend != "" {
		cfg.LedgerBackend = *backend
	}
	if *recordsDir != "" {
		cfg.RecordsDir = *recordsDir
	}
	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}

	// Open the ledger store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}
	defer closeStore()

	// Enrollment roster and identity index
	roster, err := gallery.LoadRoster(cfg.RosterPath)
	if err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}
	index, err := gallery.NewIndexFromRoster(roster, cfg.MatchThreshold)
	if err != nil {
		log.Fatalf("Failed to build identity index: %v", err)
	}
	log.Printf("Enrolled employees: %d", index.Len())

	// State machine and HTTP layer
	machine := attendance.NewMachine(store, cfg.Rules(), nil)
	handler := api.NewHandler(machine, store, roster, index, cfg)
	router := api.NewRouter(handler)

	// Rollover scheduler keeps today's ledger initialized and writes
	// the previous month's report when the month changes.
	scheduler := api.NewRolloverScheduler(store, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Attendance server starting on http://localhost:%d (backend: %s)", *port, cfg.LedgerBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
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
