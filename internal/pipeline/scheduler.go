package pipeline

// scheduler.go runs incremental loads in the background for serve mode.
//
// The scheduler is long-running and context-aware for graceful shutdown. It
// logs failed runs but never stops because of one; the next tick retries.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
)

// StartScheduler runs an incremental sheet load immediately, then every
// interval, until ctx is cancelled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("incremental scheduler started", "interval", interval.String())

	s.runScheduledJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("incremental scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduledJob(ctx)
		}
	}
}

// runScheduledJob performs one scheduled load.
func (s *Service) runScheduledJob(ctx context.Context) {
	slog.Debug("scheduled run started")
	start := time.Now()

	report, err := s.RunIncrementalSheet(ctx)
	switch {
	case errors.Is(err, core.ErrRunInProgress):
		slog.Info("scheduled run skipped, another run is in progress")
		return
	case err != nil:
		slog.Error("scheduled run failed", "run_id", report.RunID, "error", err)
		return
	}

	slog.Info("scheduled run completed",
		"run_id", report.RunID,
		"submissions", report.Stats.Submissions,
		"errors", report.Stats.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
