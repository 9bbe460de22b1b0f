package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/pipeline"
	"github.com/JonMunkholm/attendance/internal/web"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the incremental scheduler",
		Long: `Serve the attendance API and, when SCHEDULE_ENABLED is true, run an
incremental load immediately and then every SCHEDULE_INTERVAL.

Endpoints:
  GET  /healthz           store reachability
  GET  /api/stats         row counts
  GET  /api/runs/latest   report of the last run
  POST /api/runs          run an incremental load now
  GET  /metrics           Prometheus metrics

SIGINT or SIGTERM stops the scheduler and drains requests for up to
SERVER_SHUTDOWN_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply pending migrations first")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg := opts.Config
	slog.Info("configuration loaded", "config", cfg.String())

	st, err := opts.openStore(ctx, opts.Migrate)
	if err != nil {
		return err
	}
	defer closeStore(st)

	svc, err := pipeline.NewService(cfg, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "serve setup failed", err)
	}
	server := web.NewServer(svc, cfg)

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	schedulerDone := make(chan struct{})
	if cfg.Schedule.Enabled {
		go func() {
			defer close(schedulerDone)
			svc.StartScheduler(jobCtx, cfg.Schedule.Interval)
		}()
	} else {
		close(schedulerDone)
		slog.Info("incremental scheduler disabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		cancelJobs()
		<-schedulerDone
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		slog.Warn("scheduled run did not finish in time")
	}
	slog.Info("server stopped")
	return nil
}
