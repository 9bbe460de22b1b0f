// Package pipeline wires sources, the load engine, the store and the batch
// exporter into runnable batch and incremental loads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/export"
	"github.com/JonMunkholm/attendance/internal/logging"
	"github.com/JonMunkholm/attendance/internal/metrics"
	"github.com/JonMunkholm/attendance/internal/source"
)

// Service runs loads one at a time. It is safe for concurrent use: a second
// run while one is in progress fails with core.ErrRunInProgress.
type Service struct {
	cfg     *config.Config
	store   core.Store
	fetcher *source.Fetcher

	batchLayout       core.Layout
	incrementalLayout core.Layout

	running sync.Mutex

	mu     sync.RWMutex
	latest *core.RunReport
}

// NewService creates a service. store may be nil when only batch runs are
// needed. The layout file, if configured, overrides the sign-in sheet labels
// and is validated here; the historical workbook always uses BatchLayout.
func NewService(cfg *config.Config, store core.Store) (*Service, error) {
	incrementalLayout, err := source.LoadLayout(cfg.Source.LayoutFile, core.ModeIncremental)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:               cfg,
		store:             store,
		fetcher:           source.NewFetcher(cfg.Source, nil),
		batchLayout:       core.BatchLayout(),
		incrementalLayout: incrementalLayout,
	}, nil
}

// BatchResult is the outcome of a batch run.
type BatchResult struct {
	Report core.RunReport
	Files  []string
}

// RunBatchFile loads the workbook at path and exports the dataset.
func (s *Service) RunBatchFile(ctx context.Context, path string) (BatchResult, error) {
	wb, err := source.OpenWorkbook(path, source.RequiredLabels(s.batchLayout, core.ModeBatch)...)
	if err != nil {
		return s.abortBatch(ctx, err)
	}
	defer wb.Close()
	return s.RunBatch(ctx, wb)
}

// RunBatch loads every row of src in memory, validates the dataset and
// writes the CSV files to the configured output directory. Nothing is
// written when the run aborts.
func (s *Service) RunBatch(ctx context.Context, src core.RowSource) (BatchResult, error) {
	if !s.running.TryLock() {
		return BatchResult{}, core.ErrRunInProgress
	}
	defer s.running.Unlock()
	metrics.RunInProgress.Set(1)
	defer metrics.RunInProgress.Set(0)

	start := time.Now()
	rows, err := core.Collect(ctx, src)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, core.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
		}
		return BatchResult{Report: s.finish(failedReport(core.ModeBatch, start, err))}, err
	}

	clock := time.Now
	if date := s.cfg.Batch.BatchDate(); !date.IsZero() {
		clock = func() time.Time { return date }
	}

	batch := core.NewBatch()
	loader, err := core.NewLoader(core.LoaderConfig{
		Mode:           core.ModeBatch,
		Layout:         s.batchLayout,
		DefaultService: s.cfg.Source.DefaultService,
		Clock:          clock,
	}, batch)
	if err != nil {
		return BatchResult{}, err
	}

	batch.Resolver.Prepare(loader.ParentKeys(rows))
	report, err := loader.Run(ctx, core.NewSliceSource(rows))
	if err != nil {
		return BatchResult{Report: s.finish(report)}, err
	}

	ds := batch.Dataset()
	validation := core.Validate(ds)
	report.Validation = &validation

	logger := logging.WithFields(logging.WithRunID(ctx, report.RunID), "mode", core.ModeBatch)
	if validation.OK() {
		logger.Info("validation passed", "result", validation.String())
	} else {
		logger.Error("validation failed", "result", validation.String())
	}

	res, err := export.WriteDataset(s.cfg.Batch.OutputDir, ds)
	if err != nil {
		report.Error = err.Error()
		return BatchResult{Report: s.finish(report)}, err
	}
	return BatchResult{Report: s.finish(report), Files: res.Files}, nil
}

func (s *Service) abortBatch(ctx context.Context, err error) (BatchResult, error) {
	logging.FromContext(ctx).Error("batch source unavailable", "error", err)
	return BatchResult{Report: s.finish(failedReport(core.ModeBatch, time.Now(), err))}, err
}

// RunIncrementalSheet downloads the sign-in sheet and applies it to the store.
func (s *Service) RunIncrementalSheet(ctx context.Context) (core.RunReport, error) {
	return s.runIncremental(ctx, func(ctx context.Context) (core.RowSource, func(), error) {
		if err := s.cfg.Source.RequireSheet(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
		}
		src, err := s.fetcher.Source(ctx, "sign-in sheet", s.incrementalRequired()...)
		return src, func() {}, err
	})
}

// RunIncrementalCSV applies a local CSV export of the sign-in sheet.
func (s *Service) RunIncrementalCSV(ctx context.Context, path string) (core.RunReport, error) {
	return s.runIncremental(ctx, func(context.Context) (core.RowSource, func(), error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
		}
		src := source.NewCSVSource(filepath.Base(path), f, s.incrementalRequired()...)
		return src, func() { f.Close() }, nil
	})
}

// RunIncremental applies every row of src to the store, one transaction
// per row.
func (s *Service) RunIncremental(ctx context.Context, src core.RowSource) (core.RunReport, error) {
	return s.runIncremental(ctx, func(context.Context) (core.RowSource, func(), error) {
		return src, func() {}, nil
	})
}

type openFunc func(ctx context.Context) (src core.RowSource, closeFn func(), err error)

func (s *Service) runIncremental(ctx context.Context, open openFunc) (core.RunReport, error) {
	if !s.running.TryLock() {
		return core.RunReport{}, core.ErrRunInProgress
	}
	defer s.running.Unlock()
	metrics.RunInProgress.Set(1)
	defer metrics.RunInProgress.Set(0)

	start := time.Now()
	if s.store == nil {
		err := fmt.Errorf("%w: no store configured", core.ErrStoreUnavailable)
		return s.finish(failedReport(core.ModeIncremental, start, err)), err
	}

	src, closeFn, err := open(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("incremental source unavailable", "error", err)
		return s.finish(failedReport(core.ModeIncremental, start, err)), err
	}
	defer closeFn()

	loader, err := core.NewLoader(core.LoaderConfig{
		Mode:           core.ModeIncremental,
		Layout:         s.incrementalLayout,
		DefaultService: s.cfg.Source.DefaultService,
	}, core.NewStoreWork(s.store))
	if err != nil {
		return core.RunReport{}, err
	}

	report, err := loader.Run(ctx, src)
	return s.finish(report), err
}

func (s *Service) incrementalRequired() []string {
	return source.RequiredLabels(s.incrementalLayout, core.ModeIncremental)
}

// finish records metrics and remembers report as the latest run.
func (s *Service) finish(report core.RunReport) core.RunReport {
	metrics.RecordRun(report)
	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()
	return report
}

func failedReport(mode core.Mode, start time.Time, err error) core.RunReport {
	return core.RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: start,
		Duration:  time.Since(start),
		Error:     err.Error(),
	}
}

// Latest returns the report of the most recent run, or false if none ran.
func (s *Service) Latest() (core.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return core.RunReport{}, false
	}
	return *s.latest, true
}

// Counts returns the store size.
func (s *Service) Counts(ctx context.Context) (core.Counts, error) {
	if s.store == nil {
		return core.Counts{}, fmt.Errorf("%w: no store configured", core.ErrStoreUnavailable)
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return core.Counts{}, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return counts, nil
}

// Ping reports whether the store answers.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.Counts(ctx)
	return err
}
