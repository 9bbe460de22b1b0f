// Package metrics provides Prometheus metrics for attendance loads.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/attendance/internal/core"
)

var (
	// RunsTotal tracks load runs by mode and status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "runs_total",
			Help:      "Total number of load runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	// RunDuration tracks load run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of load runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	// RowsTotal tracks submission rows by outcome
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "rows_total",
			Help:      "Total number of submission rows by outcome",
		},
		[]string{"mode", "outcome"},
	)

	// EntitiesTotal tracks entities created or matched by kind
	EntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "entities_total",
			Help:      "Total number of entities resolved by kind and result",
		},
		[]string{"kind", "result"},
	)

	// WarningsTotal tracks coercion warnings
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "warnings_total",
			Help:      "Total number of lossy coercions",
		},
		[]string{"mode"},
	)

	// SheetFetchTotal tracks sign-in sheet downloads by HTTP status
	SheetFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "sheet",
			Name:      "fetch_total",
			Help:      "Total number of sign-in sheet downloads by status",
		},
		[]string{"status"},
	)

	// SheetFetchDuration tracks sign-in sheet download duration
	SheetFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "attendance",
			Subsystem: "sheet",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of sign-in sheet downloads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal tracks serve-mode API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attendance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// RunInProgress is 1 while a run holds the pipeline
	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "attendance",
			Subsystem: "etl",
			Name:      "run_in_progress",
			Help:      "Whether a load run is currently executing",
		},
	)
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Status classifies a finished run: failed if it aborted, partial if any
// row failed, otherwise success.
func Status(report core.RunReport) string {
	switch {
	case report.Error != "":
		return StatusFailed
	case report.Stats.Errors > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// RecordRun records the counters of a finished run.
func RecordRun(report core.RunReport) {
	mode := string(report.Mode)
	s := report.Stats

	RunsTotal.WithLabelValues(mode, Status(report)).Inc()
	RunDuration.WithLabelValues(mode).Observe(report.Duration.Seconds())

	RowsTotal.WithLabelValues(mode, "ok").Add(float64(s.Submissions - s.Errors))
	RowsTotal.WithLabelValues(mode, "error").Add(float64(s.Errors))
	WarningsTotal.WithLabelValues(mode).Add(float64(s.Warnings))

	EntitiesTotal.WithLabelValues("parent", "new").Add(float64(s.NewParents))
	EntitiesTotal.WithLabelValues("parent", "existing").Add(float64(s.ExistingParents))
	EntitiesTotal.WithLabelValues("child", "new").Add(float64(s.NewChildren))
	EntitiesTotal.WithLabelValues("child", "existing").Add(float64(s.ExistingChildren))
	EntitiesTotal.WithLabelValues("attendance", "new").Add(float64(s.AttendanceRecorded))
	EntitiesTotal.WithLabelValues("attendance", "existing").Add(float64(s.AttendanceDuplicate))
}

// RecordSheetFetch records a sheet download. status is the HTTP status code,
// or "error" when no response arrived.
func RecordSheetFetch(status string, durationSeconds float64) {
	SheetFetchTotal.WithLabelValues(status).Inc()
	SheetFetchDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records a served API request.
func RecordHTTPRequest(method, route string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
