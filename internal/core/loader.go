package core

// loader.go drives submissions through normalize -> key -> resolve -> record.
//
// Every row is applied inside its own unit of work. A row either commits all
// of its effects or none of them, and its outcome is returned as a RowResult
// rather than an error so one bad row never stops a run. Only collaborator
// failures (row source, store) abort a run.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JonMunkholm/attendance/internal/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Mode           Mode
	Layout         Layout
	DefaultService string           // Service for rows that name none (default: "First Service")
	Clock          func() time.Time // Attendance date for rows without a timestamp (default: time.Now)
}

// Loader applies submissions to a unit of work. Not safe for concurrent use.
type Loader struct {
	cfg  LoaderConfig
	norm Normalizer
	work UnitOfWork
}

// NewLoader creates a loader writing through work.
func NewLoader(cfg LoaderConfig, work UnitOfWork) (*Loader, error) {
	if cfg.Mode != ModeBatch && cfg.Mode != ModeIncremental {
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if err := cfg.Layout.Validate(cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.DefaultService == "" {
		cfg.DefaultService = DefaultService
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Loader{
		cfg:  cfg,
		norm: NewNormalizer(cfg.Mode, cfg.Layout),
		work: work,
	}, nil
}

// ParentKeys returns the identity keys of the rows that pass the row
// precondition, in row order. Batch runs feed these to MemoryResolver.Prepare.
func (l *Loader) ParentKeys(rows []Submission) []string {
	keys := make([]string, 0, len(rows))
	for _, sub := range rows {
		p, _ := l.norm.Parent(sub)
		if checkParent(p) == nil {
			keys = append(keys, p.IdentityKey)
		}
	}
	return keys
}

// Run processes every row of src and returns the run report. The error is
// non-nil only when the run aborted: the source or store became unavailable,
// or ctx was cancelled. Rows applied before the abort stay applied.
func (l *Loader) Run(ctx context.Context, src RowSource) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		Mode:      l.cfg.Mode,
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithFields(ctx, "mode", l.cfg.Mode)
	logger.Info("run started")

	abort := func(err error) (RunReport, error) {
		report.Duration = time.Since(report.StartedAt)
		report.Error = err.Error()
		logger.Error("run aborted", "error", err, "rows", report.Stats.Submissions)
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		sub, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return abort(ctx.Err())
			}
			if !errors.Is(err, ErrSourceUnavailable) {
				err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
			}
			return abort(err)
		}

		res := l.ProcessRow(ctx, sub)
		if errors.Is(res.Err, ErrStoreUnavailable) {
			return abort(res.Err)
		}

		report.Stats.Add(res)
		if res.Err != nil {
			report.Failures = append(report.Failures, failureOf(res))
		}
	}

	report.Duration = time.Since(report.StartedAt)
	logSummary(logger, report)
	return report, nil
}

// ProcessRow applies one submission in its own unit of work. It never
// panics and never returns a partially applied row.
func (l *Loader) ProcessRow(ctx context.Context, sub Submission) (res RowResult) {
	res = RowResult{Sheet: sub.Sheet, Line: sub.Line}
	logger := logging.WithFields(ctx, "sheet", sub.Sheet, "line", sub.Line)

	var unit *Unit
	defer func() {
		if r := recover(); r != nil {
			if unit != nil {
				_ = unit.Rollback(ctx)
			}
			res.Stats = RowStats{}
			res.Err = &RowError{Sheet: sub.Sheet, Line: sub.Line, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("panic while applying row", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	parent, warnings := l.norm.Parent(sub)
	if err := checkParent(parent); err != nil {
		res.Err = &RowError{Sheet: sub.Sheet, Line: sub.Line, Err: err}
		logger.Warn("row rejected", "error", err)
		return res
	}
	res.Warnings = append(res.Warnings, warnings...)

	var children []ChildFields
	for slot := 1; slot <= l.norm.Slots(); slot++ {
		c, w, ok := l.norm.ChildSlot(sub, slot)
		res.Warnings = append(res.Warnings, w...)
		if ok {
			children = append(children, c)
		}
	}
	for _, w := range res.Warnings {
		logger.Warn("value coerced", "field", w.Field, "value", w.Value, "reason", w.Message)
	}

	service := l.norm.Service(sub)
	if service == "" {
		service = l.cfg.DefaultService
	}
	date, err := l.rowDate(sub)
	if err != nil {
		res.Err = &RowError{Sheet: sub.Sheet, Line: sub.Line, Err: err}
		logger.Warn("row failed", "error", err)
		return res
	}

	unit, err = l.work.Begin(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	stats, err := l.apply(ctx, unit, parent, children, service, date)
	if err == nil {
		err = unit.Commit(ctx)
	}
	if err != nil {
		_ = unit.Rollback(ctx)
		res.Err = &RowError{Sheet: sub.Sheet, Line: sub.Line, Err: err}
		if errors.Is(err, ErrUnknownParent) {
			logger.Error("internal inconsistency", "error", err)
		} else {
			logger.Warn("row failed", "error", err)
		}
		return res
	}

	res.Stats = stats
	logger.Debug("row applied",
		"new_parents", stats.NewParents,
		"new_children", stats.NewChildren,
		"attendance_recorded", stats.AttendanceRecorded,
	)
	return res
}

func (l *Loader) apply(ctx context.Context, unit *Unit, parent ParentFields, children []ChildFields, service string, date time.Time) (RowStats, error) {
	var stats RowStats

	parentID, isNew, err := unit.Resolver.ResolveParent(ctx, parent.IdentityKey, parent)
	if err != nil {
		return stats, fmt.Errorf("resolve parent: %w", err)
	}
	if isNew {
		stats.NewParents++
	} else {
		stats.ExistingParents++
	}

	for _, c := range children {
		key := NewChildKey(parentID, c.FullName, c.Age)
		childID, isNew, err := unit.Resolver.ResolveChild(ctx, key, c)
		if err != nil {
			return stats, fmt.Errorf("resolve child %d: %w", c.Slot, err)
		}
		if isNew {
			stats.NewChildren++
		} else {
			stats.ExistingChildren++
		}

		if !c.CheckedIn {
			continue
		}
		recorded, err := unit.Recorder.Record(ctx, childID, service, date)
		if err != nil {
			return stats, fmt.Errorf("record child %d: %w", c.Slot, err)
		}
		if recorded {
			stats.AttendanceRecorded++
		} else {
			stats.AttendanceDuplicate++
		}
	}

	return stats, nil
}

// rowDate is computed once per row so every child shares one date. Only a
// blank timestamp falls back to the clock.
func (l *Loader) rowDate(sub Submission) (time.Time, error) {
	ts, ok, err := l.norm.Timestamp(sub)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return AttendanceDate(ts), nil
	}
	return AttendanceDate(l.cfg.Clock()), nil
}

// checkParent enforces the row precondition: a parent name and identity key.
func checkParent(p ParentFields) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.StructField())
			}
			return fmt.Errorf("%w: missing %v", ErrRowRejected, missing)
		}
		return fmt.Errorf("%w: %w", ErrRowRejected, err)
	}
	return nil
}

func logSummary(logger *slog.Logger, r RunReport) {
	s := r.Stats
	logger.Info("ETL summary",
		"submissions", s.Submissions,
		"new_parents", s.NewParents,
		"existing_parents", s.ExistingParents,
		"new_children", s.NewChildren,
		"existing_children", s.ExistingChildren,
		"attendance_recorded", s.AttendanceRecorded,
		"attendance_duplicate", s.AttendanceDuplicate,
		"warnings", s.Warnings,
		"errors", s.Errors,
		"duration_ms", r.Duration.Milliseconds(),
	)
}
