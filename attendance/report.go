/*
report.go - Monthly attendance aggregation

PURPOSE:
  Builds the per-employee, per-day status matrix for a calendar month by
  scanning every day's ledger. Reports are derivative and regenerable;
  the per-day ledgers remain the source of truth.

AGGREGATION RULES:
  - Employees are registered the first time they appear anywhere in the
    month; the first-seen name wins as the display name.
  - A registered employee with no record on a day is Absent for that day.
  - An employee who never appears in the month is not materialized as an
    all-Absent row. We only know about employees we have seen.
  - A month with no ledgers at all is an empty table with the correct
    date columns, not an error.
  - Rows that failed to decode are skipped by the stores; the report
    carries the total skipped count so callers can surface it.
*/
package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY STATUS MATRIX
// =============================================================================

// MonthlyReport is the per-employee, per-day status matrix for one month.
type MonthlyReport struct {
	Year        int
	Month       time.Month
	Days        []Day
	Rows        []ReportRow
	SkippedRows int
}

// ReportRow is one employee's statuses across the month, index-aligned
// with MonthlyReport.Days.
type ReportRow struct {
	EmployeeID string
	Name       string
	Statuses   []Status
}

// BuildMonthlyReport scans every day of the month and assembles the
// status matrix. Row order is first-seen order.
func BuildMonthlyReport(ctx context.Context, store LedgerStore, year int, month time.Month) (*MonthlyReport, error) {
	days := MonthDays(year, month)
	report := &MonthlyReport{Year: year, Month: month, Days: days}

	rowIndex := make(map[string]int)

	for di, day := range days {
		records, skipped, err := store.LoadDay(ctx, day)
		if err != nil {
			return nil, err
		}
		report.SkippedRows += len(skipped)

		for _, rec := range records {
			ri, seen := rowIndex[rec.EmployeeID]
			if !seen {
				ri = len(report.Rows)
				rowIndex[rec.EmployeeID] = ri
				statuses := make([]Status, len(days))
				for i := range statuses {
					statuses[i] = StatusAbsent
				}
				report.Rows = append(report.Rows, ReportRow{
					EmployeeID: rec.EmployeeID,
					Name:       rec.Name,
					Statuses:   statuses,
				})
			}
			report.Rows[ri].Statuses[di] = rec.Status
		}
	}

	return report, nil
}

// WriteCSV emits the report in its persisted layout:
// Employee ID, Name, then one YYYY-MM-DD column per day of the month.
func (r *MonthlyReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, 2+len(r.Days))
	header = append(header, "Employee ID", "Name")
	for _, d := range r.Days {
		header = append(header, d.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range r.Rows {
		cells := make([]string, 0, 2+len(row.Statuses))
		cells = append(cells, row.EmployeeID, row.Name)
		for _, s := range row.Statuses {
			cells = append(cells, string(s))
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReportFileName is the canonical file name for a month's report.
func ReportFileName(year int, month time.Month) string {
	return fmt.Sprintf("monthly_report_%d_%02d.csv", year, int(month))
}

// WriteFile writes the report CSV into dir and returns the full path.
func (r *MonthlyReport) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, ReportFileName(r.Year, r.Month))
	f, err := os.Create(path)
	if err != nil {
		return "", &StorageError{Op: "write_report", Day: NewDay(r.Year, r.Month, 1), Err: err}
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return "", &StorageError{Op: "write_report", Day: NewDay(r.Year, r.Month, 1), Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &StorageError{Op: "write_report", Day: NewDay(r.Year, r.Month, 1), Err: err}
	}
	return path, nil
}

// =============================================================================
// HOURS TOTALS
// =============================================================================

// HoursRow is one employee's worked time over a month. Hours is exact to
// two decimal places; open records contribute nothing until closed.
type HoursRow struct {
	EmployeeID string
	Name       string
	Hours      decimal.Decimal
	DaysWorked int
}

// BuildHoursReport sums closed-record work durations per employee across
// the month. Row order is first-seen order.
func BuildHoursReport(ctx context.Context, store LedgerStore, year int, month time.Month) ([]HoursRow, error) {
	var rows []HoursRow
	rowIndex := make(map[string]int)
	seconds := make(map[string]int64)

	for _, day := range MonthDays(year, month) {
		records, _, err := store.LoadDay(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.Open() {
				continue
			}
			ri, seen := rowIndex[rec.EmployeeID]
			if !seen {
				ri = len(rows)
				rowIndex[rec.EmployeeID] = ri
				rows = append(rows, HoursRow{EmployeeID: rec.EmployeeID, Name: rec.Name})
			}
			seconds[rec.EmployeeID] += int64(WorkDuration(rec.CheckIn, *rec.CheckOut) / time.Second)
			rows[ri].DaysWorked++
		}
	}

	for i := range rows {
		rows[i].Hours = decimal.NewFromInt(seconds[rows[i].EmployeeID]).
			Div(decimal.NewFromInt(3600)).
			Round(2)
	}
	return rows, nil
}
