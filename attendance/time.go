package attendance

import (
	"fmt"
	"time"
)

// =============================================================================
// CLOCK TIME - Wall-clock time of day at second resolution
// =============================================================================

// ClockTime is a time of day, independent of any date. Ledger rows store
// check-in and check-out as ClockTime; the owning day carries the date.
type ClockTime struct {
	secs int // seconds since midnight, [0, 86400)
}

// NewClockTime builds a ClockTime from hour/minute/second components.
func NewClockTime(hour, minute, second int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %02d:%02d:%02d", hour, minute, second)
	}
	return ClockTime{secs: hour*3600 + minute*60 + second}, nil
}

// MustClockTime is NewClockTime that panics on invalid input. For constants.
func MustClockTime(hour, minute, second int) ClockTime {
	ct, err := NewClockTime(hour, minute, second)
	if err != nil {
		panic(err)
	}
	return ct
}

// ParseClockTime accepts "HH:MM:SS" and "HH:MM". Anything else, including
// trailing garbage, is rejected so malformed ledger cells are caught on read.
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTimeOf(t), nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid clock time %q (want HH:MM:SS or HH:MM)", s)
}

// ClockTimeOf extracts the wall-clock time of t, in t's own location.
func ClockTimeOf(t time.Time) ClockTime {
	h, m, s := t.Clock()
	return ClockTime{secs: h*3600 + m*60 + s}
}

func (ct ClockTime) Hour() int    { return ct.secs / 3600 }
func (ct ClockTime) Minute() int  { return (ct.secs % 3600) / 60 }
func (ct ClockTime) Second() int  { return ct.secs % 60 }
func (ct ClockTime) Seconds() int { return ct.secs }

// Sub returns ct - other as a duration. Negative when ct is earlier.
func (ct ClockTime) Sub(other ClockTime) time.Duration {
	return time.Duration(ct.secs-other.secs) * time.Second
}

func (ct ClockTime) Before(other ClockTime) bool { return ct.secs < other.secs }

// String formats as HH:MM:SS, the ledger wire format.
func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", ct.Hour(), ct.Minute(), ct.Second())
}

// =============================================================================
// DAY - Calendar date in the reference timezone
// =============================================================================

// Day is a calendar date. All ledger operations are scoped to a Day resolved
// in the reference timezone; Day itself carries no location.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// NewDay normalizes the components through time.Date, so out-of-range values
// roll over the way the standard library rolls them.
func NewDay(year int, month time.Month, date int) Day {
	t := time.Date(year, month, date, 0, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Date: t.Day()}
}

// DayOf resolves the calendar day of t, in t's own location.
func DayOf(t time.Time) Day {
	return Day{Year: t.Year(), Month: t.Month(), Date: t.Day()}
}

// ParseDay accepts "YYYY-MM-DD".
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q (want YYYY-MM-DD)", s)
	}
	return DayOf(t), nil
}

// String formats as YYYY-MM-DD, the ledger file-name and report-column format.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Date)
}

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) Next() Day { return NewDay(d.Year, d.Month, d.Date+1) }

func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Date < other.Date
}

func (d Day) After(other Day) bool { return other.Before(d) }

// Time anchors the day at midnight in loc.
func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, loc)
}

// MonthDays enumerates every day of the given month, ascending.
func MonthDays(year int, month time.Month) []Day {
	first := NewDay(year, month, 1)
	var days []Day
	for d := first; d.Month == month; d = d.Next() {
		days = append(days, d)
	}
	return days
}

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock supplies the current instant. Production uses time.Now; tests pin it.
type Clock func() time.Time

// =============================================================================
// WORK DURATION
// =============================================================================

// WorkDuration is the elapsed time between a check-in and a check-out on the
// same ledger day. A check-out that reads earlier than its check-in is an
// overnight shift and gains 24 hours.
func WorkDuration(in, out ClockTime) time.Duration {
	d := out.Sub(in)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// FormatDuration renders a duration as HH:MM:SS for ledger comments.
func FormatDuration(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
