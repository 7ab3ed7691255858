package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceid/attendance-engine/attendance"
)

func TestClockTime_ParseAndFormat(t *testing.T) {
	ct, err := attendance.ParseClockTime("09:05:30")
	require.NoError(t, err)
	assert.Equal(t, 9, ct.Hour())
	assert.Equal(t, 5, ct.Minute())
	assert.Equal(t, 30, ct.Second())
	assert.Equal(t, "09:05:30", ct.String())
}

func TestClockTime_Parse_Invalid(t *testing.T) {
	for _, s := range []string{"", "25:00:00", "09:61:00", "09:00:00:00", "abc"} {
		_, err := attendance.ParseClockTime(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestClockTime_Sub(t *testing.T) {
	a := attendance.MustClockTime(9, 10, 0)
	b := attendance.MustClockTime(9, 0, 0)
	assert.Equal(t, 10*time.Minute, a.Sub(b))
	assert.Equal(t, -10*time.Minute, b.Sub(a))
}

func TestDay_ParseAndOrder(t *testing.T) {
	d, err := attendance.ParseDay("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, attendance.NewDay(2025, time.March, 10), d)
	assert.Equal(t, "2025-03-10", d.String())

	next := d.Next()
	assert.Equal(t, "2025-03-11", next.String())
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))

	// Month rollover normalizes through time.Date.
	assert.Equal(t, "2025-04-01", attendance.NewDay(2025, time.March, 31).Next().String())
}

func TestMonthDays(t *testing.T) {
	feb := attendance.MonthDays(2024, time.February) // leap year
	require.Len(t, feb, 29)
	assert.Equal(t, "2024-02-01", feb[0].String())
	assert.Equal(t, "2024-02-29", feb[28].String())

	assert.Len(t, attendance.MonthDays(2025, time.February), 28)
	assert.Len(t, attendance.MonthDays(2025, time.April), 30)
}

func TestWorkDuration_SameDay(t *testing.T) {
	d := attendance.WorkDuration(attendance.MustClockTime(9, 0, 0), attendance.MustClockTime(17, 30, 0))
	assert.Equal(t, 8*time.Hour+30*time.Minute, d)
}

func TestWorkDuration_Overnight(t *testing.T) {
	// A check-out with an earlier wall-clock time than the check-in is a
	// shift that crossed midnight, not negative work.
	d := attendance.WorkDuration(attendance.MustClockTime(23, 50, 0), attendance.MustClockTime(0, 10, 0))
	assert.Equal(t, 20*time.Minute, d)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "08:30:00", attendance.FormatDuration(8*time.Hour+30*time.Minute))
	assert.Equal(t, "00:00:05", attendance.FormatDuration(5*time.Second))
	assert.Equal(t, "26:00:00", attendance.FormatDuration(26*time.Hour))
}

func TestParseStatus_LegacyLabels(t *testing.T) {
	// Older ledgers wrote spaced labels; both spellings decode.
	for in, want := range map[string]attendance.Status{
		"OnTime":       attendance.StatusOnTime,
		"On Time":      attendance.StatusOnTime,
		"GracePeriod":  attendance.StatusGracePeriod,
		"Grace Period": attendance.StatusGracePeriod,
		"Late":         attendance.StatusLate,
		"Absent":       attendance.StatusAbsent,
	} {
		got, err := attendance.ParseStatus(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, err := attendance.ParseStatus("Vacation")
	assert.Error(t, err)
}
