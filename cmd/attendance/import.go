package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/store/csvfile"
	"github.com/faceid/attendance-engine/store/sqlite"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import historical CSV ledgers into the SQLite mirror",
	Long: `Import reads every per-day CSV ledger under a records directory and
writes it into the SQLite mirror, one transaction per day. Days already
present in the mirror are replaced. Rows that cannot be decoded are
skipped and counted, matching how reports treat them.

Examples:
  # Import the default records directory into the configured database
  attendance import --from ./attendance_records`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("from", "", "Records directory holding attendance_YYYY-MM-DD.csv files (required)")
	importCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	fromDir, _ := cmd.Flags().GetString("from")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, err := csvfile.New(fromDir)
	if err != nil {
		return err
	}

	mirror, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer mirror.Close()

	// The whole representable range; Days only returns what exists.
	days, err := source.Days(ctx, attendance.NewDay(1970, 1, 1), attendance.NewDay(9999, 12, 31))
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Println("No ledger files found, nothing to import")
		return nil
	}

	bar := progressbar.NewOptions(len(days),
		progressbar.OptionSetDescription("Importing ledgers"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("days"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	imported, skipped := 0, 0
	for _, day := range days {
		records, skippedRows, err := source.LoadDay(ctx, day)
		if err != nil {
			return err
		}
		skipped += len(skippedRows)

		if err := mirror.ImportDay(ctx, day, records); err != nil {
			return err
		}
		imported += len(records)
		bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("Imported %d records across %d days into %s\n", imported, len(days), cfg.SQLitePath)
	if skipped > 0 {
		fmt.Printf("Warning: %d rows could not be decoded and were skipped\n", skipped)
	}
	return nil
}
