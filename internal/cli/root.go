// Package cli implements the attendance command line: batch and
// incremental loads, serve mode, migrations and store statistics.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/logging"
	"github.com/JonMunkholm/attendance/internal/store"
)

// RootOptions holds global flags and the loaded configuration.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config *config.Config
	Out    io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. cfg must already be loaded and
// validated.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Junior church attendance ETL",
		Long: `Load junior church sign-in data into parents, children and attendance.

batch reads the historical workbook and writes three CSV files.
incremental applies the live sign-in sheet to the database, safely re-runnable.
serve runs incremental loads on a schedule behind a small HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			if opts.Verbose {
				logging.Setup("debug", opts.Config.Logging.Format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewIncrementalCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func (o *RootOptions) formatter() *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: o.Out}
}

// openStore opens the configured store, applying migrations first when
// migrate is set.
func (o *RootOptions) openStore(ctx context.Context, migrate bool) (store.Store, error) {
	dbCfg := o.Config.Database
	if migrate {
		dbCfg.AutoMigrate = true
	}
	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return st, nil
}

// closeStore closes st, logging failures.
func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

// Execute runs the command tree and returns the process exit code. Errors
// are written to the output in the selected format.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: cmd.OutOrStdout()}

	var runID string
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Reported {
			return exitErr.Code
		}
		runID = exitErr.RunID
	}
	_ = f.Error(err, runID)
	return GetExitCode(err)
}
