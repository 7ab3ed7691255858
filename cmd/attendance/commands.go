package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/gallery"
)

// newMachine wires a state machine over the configured store.
func newMachine() (*attendance.Machine, attendance.LedgerStore, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return attendance.NewMachine(store, cfg.Rules(), nil), store, closeStore, nil
}

// =============================================================================
// CHECK-IN / CHECK-OUT
// =============================================================================

var checkinCmd = &cobra.Command{
	Use:   "checkin EMPLOYEE_ID NAME",
	Short: "Record a manual check-in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, _, closeStore, err := newMachine()
		if err != nil {
			return err
		}
		defer closeStore()

		result, err := machine.CheckIn(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s checked in at %s (%s)\n", result.Name, result.Time, result.Status)
		if result.Comments != "" {
			fmt.Println(result.Comments)
		}
		return nil
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout EMPLOYEE_ID NAME",
	Short: "Record a manual check-out",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, _, closeStore, err := newMachine()
		if err != nil {
			return err
		}
		defer closeStore()

		result, err := machine.CheckOut(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s checked out at %s, worked %s\n",
			result.Name, result.Time, attendance.FormatDuration(result.Duration))
		return nil
	},
}

// =============================================================================
// SUMMARY
// =============================================================================

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print one day's attendance ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, _, closeStore, err := newMachine()
		if err != nil {
			return err
		}
		defer closeStore()

		var day attendance.Day
		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			if day, err = attendance.ParseDay(dateStr); err != nil {
				return err
			}
		}

		summary, err := machine.Summary(cmd.Context(), day)
		if err != nil {
			return err
		}

		fmt.Printf("Attendance for %s (%d records)\n", summary.Day, len(summary.Records))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMPLOYEE\tNAME\tIN\tOUT\tSTATUS\tCOMMENTS")
		for _, rec := range summary.Records {
			out := "-"
			if rec.CheckOut != nil {
				out = rec.CheckOut.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.EmployeeID, rec.Name, rec.CheckIn, out, rec.Status, rec.Comments)
		}
		w.Flush()
		if summary.SkippedRows > 0 {
			fmt.Printf("Warning: %d rows could not be decoded\n", summary.SkippedRows)
		}
		return nil
	},
}

// =============================================================================
// REPORTS
// =============================================================================

func monthFlags(cmd *cobra.Command, machine *attendance.Machine) (int, time.Month, error) {
	today := machine.Today()
	year, month := today.Year, today.Month

	if y, _ := cmd.Flags().GetInt("year"); y != 0 {
		year = y
	}
	if m, _ := cmd.Flags().GetInt("month"); m != 0 {
		if m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("invalid month %d", m)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the monthly status matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		machine := attendance.NewMachine(store, cfg.Rules(), nil)

		year, month, err := monthFlags(cmd, machine)
		if err != nil {
			return err
		}

		report, err := attendance.BuildMonthlyReport(cmd.Context(), store, year, month)
		if err != nil {
			return err
		}

		if toCSV, _ := cmd.Flags().GetBool("csv"); toCSV {
			path, err := report.WriteFile(cfg.RecordsDir)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d rows, %d skipped)\n", path, len(report.Rows), report.SkippedRows)
			return nil
		}
		return report.WriteCSV(os.Stdout)
	},
}

var hoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Print per-employee worked-hour totals for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, store, closeStore, err := newMachine()
		if err != nil {
			return err
		}
		defer closeStore()

		year, month, err := monthFlags(cmd, machine)
		if err != nil {
			return err
		}

		rows, err := attendance.BuildHoursReport(cmd.Context(), store, year, month)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMPLOYEE\tNAME\tHOURS\tDAYS")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
				row.EmployeeID, row.Name, row.Hours.StringFixed(2), row.DaysWorked)
		}
		return w.Flush()
	},
}

// =============================================================================
// ROSTER
// =============================================================================

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List enrolled employees",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		roster, err := gallery.LoadRoster(cfg.RosterPath)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENROLLED\tFACE")
		for _, emp := range roster.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				emp.ID, emp.Name, emp.EnrolledAt.Format("2006-01-02"), yesNo(len(emp.Embedding) > 0))
		}
		return w.Flush()
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll EMPLOYEE_ID NAME",
	Short: "Enroll an employee with a face embedding from a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		roster, err := gallery.LoadRoster(cfg.RosterPath)
		if err != nil {
			return err
		}

		embeddingFile, _ := cmd.Flags().GetString("embedding-file")
		embedding, err := readEmbedding(embeddingFile)
		if err != nil {
			return err
		}

		if err := roster.Add(gallery.Employee{ID: args[0], Name: args[1], Embedding: embedding}); err != nil {
			return err
		}
		fmt.Printf("Enrolled %s (%s), %d enrolled total\n", args[1], args[0], roster.Len())
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	summaryCmd.Flags().String("date", "", "Day to summarize (YYYY-MM-DD, default today)")

	reportCmd.Flags().Int("year", 0, "Report year (default current)")
	reportCmd.Flags().Int("month", 0, "Report month 1-12 (default current)")
	reportCmd.Flags().Bool("csv", false, "Write the CSV into the records directory instead of stdout")

	hoursCmd.Flags().Int("year", 0, "Report year (default current)")
	hoursCmd.Flags().Int("month", 0, "Report month 1-12 (default current)")

	enrollCmd.Flags().String("embedding-file", "", "JSON file holding the face embedding array (required)")
	enrollCmd.MarkFlagRequired("embedding-file")

	rootCmd.AddCommand(checkinCmd, checkoutCmd, summaryCmd, reportCmd, hoursCmd, employeesCmd, enrollCmd)
}

// readEmbedding loads a JSON float array from a file.
func readEmbedding(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("decode embedding %s: %w", path, err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding file %s is empty", path)
	}
	return embedding, nil
}
