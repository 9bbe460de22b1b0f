package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/attendance/internal/core"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleReport() reportView {
	return reportView{
		RunReport: core.RunReport{
			RunID:     "run-1",
			Mode:      core.ModeBatch,
			StartedAt: time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
			Duration:  1500 * time.Millisecond,
			Stats: core.Stats{
				Submissions:         4,
				NewParents:          2,
				ExistingParents:     1,
				NewChildren:         3,
				ExistingChildren:    1,
				AttendanceRecorded:  3,
				AttendanceDuplicate: 1,
				Errors:              1,
				Warnings:            1,
			},
			Validation: &core.ValidationReport{},
			Failures: []core.RowFailure{
				{Sheet: "Second Service", Line: 3, Code: "ROW001", Reason: "missing parent ID"},
				{Line: 7, Code: "ROW001", Reason: "missing parent name"},
			},
		},
		Files: []string{"out/parents_final.csv", "out/children_final.csv", "out/attendance_final.csv"},
	}
}

func TestReportText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success(sampleReport()))

	newGoldie(t).Assert(t, "batch_report", buf.Bytes())
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Success(sampleReport()))

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID string     `json:"run_id"`
			Stats core.Stats `json:"stats"`
			Files []string   `json:"files"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, 4, resp.Data.Stats.Submissions)
	assert.Len(t, resp.Data.Files, 3)
}

func TestErrorOutput(t *testing.T) {
	err := fmt.Errorf("%w: HTTP 404", core.ErrSourceUnavailable)

	var text bytes.Buffer
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: &text}).Error(err, ""))
	assert.Contains(t, text.String(), "Error [SRC001]")
	assert.Contains(t, text.String(), "cause: row source unavailable: HTTP 404")

	var js bytes.Buffer
	require.NoError(t, (&OutputFormatter{Format: "json", Writer: &js}).Error(err, "run-7"))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(js.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SRC001", resp.Error.Code)
	assert.Equal(t, "run-7", resp.Error.RunID)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("boom")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: ExitFailure})))
}
