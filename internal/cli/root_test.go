package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
)

const responsesCSV = "Timestamp,Your Name,Your Gender,Your Phone,Which Service,Child 1 Name,Child 1 Age,Child 1 Gender,Child 1 (check-in)\n" +
	"2026-01-25 09:15:00,Ada Obi,Female,0803 123 4567,First Service,Tobi,6,Male,Yes\n" +
	"2026-01-25 10:05:00,Ada Obi,Female,08031234567,First Service,Kemi,4,Female,Yes\n" +
	",Nobody,Male,,First Service,Kid,4,Male,Yes\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			URL:    filepath.Join(t.TempDir(), "attendance.db"),
		},
		Source: config.SourceConfig{
			DefaultService: core.DefaultService,
			FetchTimeout:   5 * time.Second,
		},
		Batch:   config.BatchConfig{OutputDir: t.TempDir()},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (int, string) {
	t.Helper()
	cmd := NewRootCommand(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	code := Execute(context.Background(), cmd)
	return code, out.String()
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(testConfig(t))
	assert.Equal(t, "attendance", cmd.Use)

	for _, name := range []string{"batch", "incremental", "serve", "migrate", "stats"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig(t))

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestBatchFlagsDefaultFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.AttendanceDate = "2026-01-25"
	cmd := NewRootCommand(cfg)

	batch, _, err := cmd.Find([]string{"batch"})
	require.NoError(t, err)
	assert.Equal(t, cfg.Batch.OutputDir, batch.Flags().Lookup("out").DefValue)
	assert.Equal(t, "2026-01-25", batch.Flags().Lookup("date").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	code, out := execute(t, testConfig(t), "--format", "yaml", "stats")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "Error [")
}

func TestBatchInvalidDate(t *testing.T) {
	code, _ := execute(t, testConfig(t), "batch", "--date", "25/01/2026", "book.xlsx")
	assert.Equal(t, ExitCommandError, code)
}

func TestBatchMissingWorkbook(t *testing.T) {
	code, out := execute(t, testConfig(t), "batch", filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "SRC001")
}

func TestIncrementalCSVThenStats(t *testing.T) {
	cfg := testConfig(t)
	csvPath := filepath.Join(t.TempDir(), "responses.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(responsesCSV), 0o600))

	code, out := execute(t, cfg, "--format", "json", "incremental", "--migrate", "--csv", csvPath)
	require.Equal(t, ExitSuccess, code, out)

	var run struct {
		Status string `json:"status"`
		Data   struct {
			Stats    core.Stats        `json:"stats"`
			Failures []core.RowFailure `json:"failures"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "ok", run.Status)
	assert.Equal(t, 3, run.Data.Stats.Submissions)
	assert.Equal(t, 1, run.Data.Stats.NewParents)
	assert.Equal(t, 1, run.Data.Stats.Errors)
	require.Len(t, run.Data.Failures, 1)
	assert.Equal(t, 4, run.Data.Failures[0].Line)

	code, out = execute(t, cfg, "--format", "json", "stats")
	require.Equal(t, ExitSuccess, code, out)

	var stats struct {
		Data core.Counts `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, core.Counts{Parents: 1, Children: 2, Attendance: 2}, stats.Data)

	// Re-running the same export is a no-op.
	code, _ = execute(t, cfg, "incremental", "--csv", csvPath)
	require.Equal(t, ExitSuccess, code)
	_, out = execute(t, cfg, "stats")
	assert.Contains(t, out, "Attendance: 2")
}

func TestIncrementalWithoutDatabaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.URL = ""

	code, out := execute(t, cfg, "incremental")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "DATABASE_URL")
}

func TestMigrateUpAndDown(t *testing.T) {
	cfg := testConfig(t)

	code, out := execute(t, cfg, "migrate")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "schema is up to date")

	code, out = execute(t, cfg, "migrate", "down")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "rolled back")

	code, _ = execute(t, cfg, "migrate", "sideways")
	assert.Equal(t, ExitCommandError, code)
}
