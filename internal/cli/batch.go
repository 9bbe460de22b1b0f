package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/pipeline"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	OutputDir string
	Date      string
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <workbook.xlsx>",
		Short: "Load the historical workbook into CSV files",
		Long: `Load every sheet of the historical attendance workbook.

Each sheet is one service. Parents are numbered by their original ID,
children and attendance in reading order, and the result is written to
parents_final.csv, children_final.csv and attendance_final.csv.

The command exits 1 when the written dataset fails the consistency check.

Example:
  attendance batch --out ./out --date 2026-01-25 attendance.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "out", "o", rootOpts.Config.Batch.OutputDir, "output directory")
	cmd.Flags().StringVar(&opts.Date, "date", rootOpts.Config.Batch.AttendanceDate, "attendance date YYYY-MM-DD (default: today)")

	return cmd
}

func runBatch(cmd *cobra.Command, opts *BatchOptions, path string) error {
	if opts.Date != "" {
		if _, err := time.Parse(time.DateOnly, opts.Date); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --date %q", opts.Date), err)
		}
	}

	cfg := *opts.Config
	cfg.Batch.OutputDir = opts.OutputDir
	cfg.Batch.AttendanceDate = opts.Date

	svc, err := pipeline.NewService(&cfg, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "batch setup failed", err)
	}

	res, err := svc.RunBatchFile(cmd.Context(), path)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "batch run failed", Err: err, RunID: res.Report.RunID}
	}

	if err := opts.formatter().Success(reportView{RunReport: res.Report, Files: res.Files}); err != nil {
		return err
	}
	if v := res.Report.Validation; v != nil && !v.OK() {
		return &ExitError{Code: ExitFailure, Message: "dataset failed validation", RunID: res.Report.RunID, Reported: true}
	}
	return nil
}
