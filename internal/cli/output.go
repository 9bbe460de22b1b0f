package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run finished but its dataset failed validation
	ExitCommandError = 2 // Run aborted: bad arguments, unreadable source, store down
)

// ExitError carries an exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
	RunID   string // set when a run started before failing

	// Reported means the command already wrote its result; only the
	// exit code remains to be applied.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command result.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	renderText(w io.Writer)
}

// Success writes data.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes err with the coded message from core.MapError.
func (f *OutputFormatter) Error(err error, runID string) error {
	msg := core.MapError(err)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    msg.Code,
				Message: msg.Message,
				Action:  msg.Action,
				Details: err.Error(),
				RunID:   runID,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", msg.Code, msg.Message)
	if msg.Action != "" {
		fmt.Fprintf(f.Writer, "  %s\n", msg.Action)
	}
	fmt.Fprintf(f.Writer, "  cause: %v\n", err)
	return nil
}

// reportView is a run report plus the files a batch run wrote.
type reportView struct {
	core.RunReport
	Files []string `json:"files,omitempty"`
}

func (v reportView) renderText(w io.Writer) {
	r := v.RunReport
	s := r.Stats

	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, r.Mode)
	line := func(label string, value any) {
		fmt.Fprintf(w, "  %-21s %v\n", label+":", value)
	}
	line("Started", r.StartedAt.UTC().Format(time.RFC3339))
	line("Duration", r.Duration.Round(time.Millisecond))
	line("Submissions", s.Submissions)
	line("New parents", s.NewParents)
	line("Existing parents", s.ExistingParents)
	line("New children", s.NewChildren)
	line("Existing children", s.ExistingChildren)
	line("Attendance recorded", s.AttendanceRecorded)
	line("Attendance duplicate", s.AttendanceDuplicate)
	line("Warnings", s.Warnings)
	line("Errors", s.Errors)
	if r.Validation != nil {
		line("Validation", r.Validation.String())
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "Failures:")
		for _, f := range r.Failures {
			where := fmt.Sprintf("line %d", f.Line)
			if f.Sheet != "" {
				where = fmt.Sprintf("%s:%d", f.Sheet, f.Line)
			}
			fmt.Fprintf(w, "  %s  %s  %s\n", where, f.Code, f.Reason)
		}
	}
	if len(v.Files) > 0 {
		fmt.Fprintln(w, "Files:")
		for _, name := range v.Files {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

// countsView renders store counts.
type countsView core.Counts

func (c countsView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Parents:    %d\n", c.Parents)
	fmt.Fprintf(w, "Children:   %d\n", c.Children)
	fmt.Fprintf(w, "Attendance: %d\n", c.Attendance)
}
