package api_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceid/attendance-engine/api"
	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/attendance/store"
	"github.com/faceid/attendance-engine/config"
)

func newTestScheduler(t *testing.T, now *time.Time) (*api.RolloverScheduler, *store.Memory, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		WorkStart:     attendance.MustClockTime(9, 0, 0),
		WorkEnd:       attendance.MustClockTime(17, 0, 0),
		LateThreshold: 10 * time.Minute,
		RecordsDir:    t.TempDir(),
		Location:      time.UTC,
	}
	ledger := store.NewMemory()

	rs := api.NewRolloverScheduler(ledger, cfg)
	rs.Clock = func() time.Time { return *now }
	return rs, ledger, cfg
}

func TestScheduler_InitializesTodaysLedger(t *testing.T) {
	now := time.Date(2025, time.March, 10, 0, 0, 30, 0, time.UTC)
	rs, ledger, _ := newTestScheduler(t, &now)

	rs.RunNow()

	days, err := ledger.Days(context.Background(), attendance.NewDay(2025, 3, 10), attendance.NewDay(2025, 3, 10))
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestScheduler_MonthRollover_WritesPreviousReport(t *testing.T) {
	// GIVEN: A scheduler that last ran on March 31 with one closed record
	// WHEN: The clock crosses into April
	// THEN: March's report CSV appears in the records directory

	now := time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC)
	rs, ledger, cfg := newTestScheduler(t, &now)
	ctx := context.Background()

	out := attendance.MustClockTime(17, 0, 0)
	require.NoError(t, ledger.AppendCheckIn(ctx, attendance.NewDay(2025, 3, 31), attendance.Record{
		EmployeeID: "emp-1",
		Name:       "An Nguyen",
		CheckIn:    attendance.MustClockTime(9, 0, 0),
		CheckOut:   &out,
		Status:     attendance.StatusOnTime,
	}))

	rs.RunNow()
	now = time.Date(2025, time.April, 1, 0, 0, 30, 0, time.UTC)
	rs.RunNow()

	data, err := os.ReadFile(filepath.Join(cfg.RecordsDir, "monthly_report_2025_03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "emp-1")

	// April's ledger was initialized too.
	days, err := ledger.Days(ctx, attendance.NewDay(2025, 4, 1), attendance.NewDay(2025, 4, 1))
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestScheduler_SameDay_NoRepeatWork(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	rs, ledger, _ := newTestScheduler(t, &now)

	rs.RunNow()
	now = now.Add(time.Minute)
	rs.RunNow()

	days, err := ledger.Days(context.Background(), attendance.NewDay(2025, 3, 1), attendance.NewDay(2025, 3, 31))
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestScheduler_StartStop(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	rs, _, _ := newTestScheduler(t, &now)
	rs.CheckInterval = 5 * time.Millisecond

	rs.Start()
	time.Sleep(20 * time.Millisecond)
	rs.Stop()
}
