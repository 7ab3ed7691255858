/*
scheduler.go - Midnight rollover scheduler

PURPOSE:
  Watches the clock so the engine keeps working across day and month
  boundaries without manual intervention:
  - On every tick, initializes today's ledger in the reference timezone.
  - When the month rolls over, regenerates the previous month's report
    CSV. Reports are derivative, so regenerating is always safe.

DESIGN:
  - Background goroutine with a configurable check interval
  - Day tracking compares calendar days, not durations, so DST shifts
    and process restarts cannot skip a rollover
  - RunNow is exposed for tests and for forcing a tick at startup

USAGE:
  scheduler := NewRolloverScheduler(store, cfg)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - attendance/report.go: Report generation
  - cmd/server/main.go: Wires the scheduler into the server lifecycle
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/config"
)

// RolloverScheduler initializes each new day's ledger and regenerates
// the previous month's report when the month changes.
type RolloverScheduler struct {
	Store         attendance.LedgerStore
	Config        *config.Config
	CheckInterval time.Duration
	Clock         attendance.Clock

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastDay attendance.Day
}

// NewRolloverScheduler creates a scheduler. The default check interval
// is one minute; midnight is at worst that far away.
func NewRolloverScheduler(store attendance.LedgerStore, cfg *config.Config) *RolloverScheduler {
	return &RolloverScheduler{
		Store:         store,
		Config:        cfg,
		CheckInterval: time.Minute,
		Clock:         time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler. The mutex is released before waiting so an
// in-flight RunNow can finish.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	ticker := rs.ticker
	rs.ticker = nil
	rs.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow performs one rollover check. Exposed for tests and startup.
func (rs *RolloverScheduler) RunNow() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ctx := context.Background()
	today := attendance.DayOf(rs.Clock().In(rs.Config.Location))

	if today == rs.lastDay {
		return
	}

	if err := rs.Store.EnsureDay(ctx, today); err != nil {
		log.Printf("[Scheduler] Failed to initialize ledger for %s: %v", today, err)
		return
	}
	log.Printf("[Scheduler] Ledger ready for %s", today)

	// Month rollover: regenerate the report for the month that just
	// closed. Skipped on first run; there is no previous day yet.
	if !rs.lastDay.IsZero() && rs.lastDay.Month != today.Month {
		rs.regenerate(ctx, rs.lastDay.Year, rs.lastDay.Month)
	}

	rs.lastDay = today
}

func (rs *RolloverScheduler) regenerate(ctx context.Context, year int, month time.Month) {
	report, err := attendance.BuildMonthlyReport(ctx, rs.Store, year, month)
	if err != nil {
		log.Printf("[Scheduler] Failed to build report for %d-%02d: %v", year, int(month), err)
		return
	}
	path, err := report.WriteFile(rs.Config.RecordsDir)
	if err != nil {
		log.Printf("[Scheduler] Failed to write report for %d-%02d: %v", year, int(month), err)
		return
	}
	log.Printf("[Scheduler] Wrote monthly report %s (%d rows)", path, len(report.Rows))
}
