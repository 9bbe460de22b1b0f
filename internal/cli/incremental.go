package cli

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/pipeline"
)

// IncrementalOptions holds flags for the incremental command.
type IncrementalOptions struct {
	*RootOptions
	CSV     string
	Migrate bool
}

// NewIncrementalCommand creates the incremental command.
func NewIncrementalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IncrementalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "incremental",
		Short: "Apply the sign-in sheet to the database",
		Long: `Download the sign-in sheet and apply every submission to the database.

Each row commits on its own. Rows already loaded are recognised by phone
number, child name and age, and service date, so re-running over the same
sheet changes nothing. Rows that fail are reported and skipped.

Example:
  attendance incremental --migrate
  attendance incremental --csv responses.csv --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIncremental(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.CSV, "csv", "", "read a local CSV export instead of downloading the sheet")
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply pending migrations first")

	return cmd
}

func runIncremental(cmd *cobra.Command, opts *IncrementalOptions) error {
	ctx := cmd.Context()

	st, err := opts.openStore(ctx, opts.Migrate)
	if err != nil {
		return err
	}
	defer closeStore(st)

	svc, err := pipeline.NewService(opts.Config, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "incremental setup failed", err)
	}

	var report core.RunReport
	if opts.CSV != "" {
		report, err = svc.RunIncrementalCSV(ctx, opts.CSV)
	} else {
		report, err = svc.RunIncrementalSheet(ctx)
	}
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "incremental run failed", Err: err, RunID: report.RunID}
	}

	return opts.formatter().Success(reportView{RunReport: report})
}
