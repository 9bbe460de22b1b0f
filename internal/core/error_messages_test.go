package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "rejected row",
			err:      &RowError{Sheet: "form", Line: 4, Err: fmt.Errorf("%w: missing [IdentityKey]", ErrRowRejected)},
			wantCode: "ROW001",
		},
		{
			name:     "unknown parent",
			err:      fmt.Errorf("resolve child 1: %w", ErrUnknownParent),
			wantCode: "ROW002",
		},
		{
			name:     "row error without a known cause",
			err:      &RowError{Line: 9, Err: errors.New("disk full")},
			wantCode: "ROW003",
		},
		{
			name:     "source unavailable",
			err:      fmt.Errorf("%w: status 404", ErrSourceUnavailable),
			wantCode: "SRC001",
		},
		{
			name:     "invalid layout",
			err:      fmt.Errorf("%w: children must list 1-3 slots", ErrInvalidLayout),
			wantCode: "SRC002",
		},
		{
			name:     "store unavailable",
			err:      fmt.Errorf("%w: begin: boom", ErrStoreUnavailable),
			wantCode: "DB001",
		},
		{
			name:     "connection refused pattern",
			err:      errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode: "DB001",
		},
		{
			name:     "unique constraint pattern",
			err:      errors.New("UNIQUE constraint failed: attendance.child_id"),
			wantCode: "DB002",
		},
		{
			name:     "foreign key pattern inside row error",
			err:      &RowError{Line: 3, Err: errors.New("FOREIGN KEY constraint failed")},
			wantCode: "DB002",
		},
		{
			name:     "run in progress",
			err:      ErrRunInProgress,
			wantCode: "RUN001",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("run aborted: %w", context.Canceled),
			wantCode: "RUN002",
		},
		{
			name:     "unknown error",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned empty message")
			}
		})
	}
}

func TestRowErrorFormat(t *testing.T) {
	err := &RowError{Sheet: "Second Service", Line: 12, Err: ErrRowRejected}
	if got := err.Error(); got != "Second Service line 12: row rejected" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrRowRejected) {
		t.Error("RowError should unwrap to its cause")
	}

	noSheet := &RowError{Line: 3, Err: errors.New("x")}
	if got := noSheet.Error(); got != "line 3: x" {
		t.Errorf("Error() = %q", got)
	}
}
