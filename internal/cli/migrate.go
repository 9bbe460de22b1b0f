package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/store"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Long:      "Apply pending migrations (up, the default) or roll back every migration (down).",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(store.Up), string(store.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := store.Up
			if len(args) == 1 {
				dir = store.Direction(args[0])
			}
			return runMigrate(cmd, rootOpts, dir)
		},
	}
}

func runMigrate(cmd *cobra.Command, opts *RootOptions, dir store.Direction) error {
	st, err := opts.openStore(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.Migrate(dir); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("migrate %s", dir), err)
	}
	slog.Info("migration finished", "direction", dir, "driver", opts.Config.Database.Driver)
	return opts.formatter().Success(migrateResult{Direction: string(dir), Driver: opts.Config.Database.Driver})
}

type migrateResult struct {
	Direction string `json:"direction"`
	Driver    string `json:"driver"`
}

func (r migrateResult) String() string {
	if r.Direction == string(store.Down) {
		return fmt.Sprintf("migrate down: %s schema rolled back", r.Driver)
	}
	return fmt.Sprintf("migrate up: %s schema is up to date", r.Driver)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of parents, children and attendance rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := rootOpts.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeStore(st)

			counts, err := st.Counts(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "count rows", err)
			}
			return rootOpts.formatter().Success(countsView(counts))
		},
	}
}
