package core

// error_messages.go defines the error taxonomy of a load run and maps errors to
// stable codes for the run report and the HTTP layer.
//
// Error codes:
//
//	ROW001 - Rejected row: parent name or identity key missing
//	ROW002 - Internal inconsistency: child resolved against an unknown parent
//	ROW003 - Row failed: unparsable timestamp or unexpected error while applying a row
//	SRC001 - Row source unavailable (download or read failed)
//	SRC002 - Layout error: layout file invalid
//	DB001  - Store unavailable (connect, begin or commit failed)
//	DB002  - Constraint violation raised by the store
//	RUN001 - A run is already in progress
//	RUN002 - Run cancelled
//	ERR000 - Unknown error
//
// Sentinel errors are matched with errors.Is first; technical driver errors
// fall back to case-insensitive pattern matching, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRowRejected marks a row missing its mandatory identity fields.
	ErrRowRejected = errors.New("row rejected")

	// ErrUnknownParent marks a child resolved against a parent id that does
	// not exist in the active scope. This is a defect in the engine, not a
	// data error.
	ErrUnknownParent = errors.New("internal inconsistency: unknown parent")

	// ErrSourceUnavailable wraps row source failures. These abort the run.
	ErrSourceUnavailable = errors.New("row source unavailable")

	// ErrStoreUnavailable wraps persisted store failures outside a row. These abort the run.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRunInProgress is returned when a run is triggered while another is active.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrInvalidLayout marks an unusable column layout.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrInvalidTimestamp marks a timestamp cell that is present but not in a
	// known format. The row fails (ROW003) instead of taking the run date.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// UserMessage provides a stable code with a human-readable message.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrRowRejected, UserMessage{
		Message: "Submission is missing the parent name or identity",
		Action:  "Fix the row in the source sheet; it will be picked up on the next run",
		Code:    "ROW001",
	}},
	{ErrUnknownParent, UserMessage{
		Message: "Child referenced a parent that was never resolved",
		Action:  "Report this run id; the loader produced an inconsistent state",
		Code:    "ROW002",
	}},
	{ErrSourceUnavailable, UserMessage{
		Message: "The attendance sheet could not be read",
		Action:  "Check the spreadsheet id and sharing settings, then retry the run",
		Code:    "SRC001",
	}},
	{ErrInvalidLayout, UserMessage{
		Message: "The column layout file is invalid",
		Action:  "Fix the layout file or remove it to use the built-in labels",
		Code:    "SRC002",
	}},
	{ErrStoreUnavailable, UserMessage{
		Message: "Unable to reach the attendance database",
		Action:  "Retry the run once the database is reachable",
		Code:    "DB001",
	}},
	{ErrRunInProgress, UserMessage{
		Message: "A load run is already in progress",
		Action:  "Wait for the current run to finish",
		Code:    "RUN001",
	}},
	{context.Canceled, UserMessage{
		Message: "The run was cancelled",
		Code:    "RUN002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The run timed out",
		Action:  "Retry the run; processed rows are already committed",
		Code:    "RUN002",
	}},
}

// errorPattern maps a technical error substring to a user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"unique constraint", UserMessage{Message: "A duplicate value was rejected by the store", Code: "DB002"}},
	{"violates unique", UserMessage{Message: "A duplicate value was rejected by the store", Code: "DB002"}},
	{"foreign key", UserMessage{Message: "Referenced record does not exist", Code: "DB002"}},
	{"connection refused", UserMessage{Message: "Unable to reach the attendance database", Code: "DB001"}},
	{"connection reset", UserMessage{Message: "Database connection was interrupted", Code: "DB001"}},
}

// rowFailed is the fallback for row-level errors that match nothing else.
var rowFailed = UserMessage{
	Message: "The row could not be applied",
	Action:  "Check the logs for the row's sheet and line",
	Code:    "ROW003",
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the run id",
	Code:    "ERR000",
}

// MapError converts an error to a coded message. Returns the zero value for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowFailed
	}

	return defaultMessage
}

// RowError locates a failure at a sheet line.
type RowError struct {
	Sheet string
	Line  int
	Err   error
}

func (e *RowError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("%s line %d: %v", e.Sheet, e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// failureOf converts a failed row result into a report entry.
func failureOf(r RowResult) RowFailure {
	return RowFailure{
		Sheet:  r.Sheet,
		Line:   r.Line,
		Code:   MapError(r.Err).Code,
		Reason: r.Err.Error(),
	}
}
