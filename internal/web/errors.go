package web

// errors.go maps failures to JSON error responses.
//
// The technical error is logged with the request id; clients get the coded
// message from core.MapError and a status chosen by statusFor.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/attendance/internal/core"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"run_id,omitempty"`
}

var tooManyRuns = core.UserMessage{
	Message: "Too many run requests",
	Action:  "Wait a minute before triggering another run",
	Code:    "HTTP429",
}

var noRunYet = core.UserMessage{
	Message: "No run has completed since the server started",
	Action:  "Trigger a run with POST /api/runs",
	Code:    "RUN003",
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrSourceUnavailable), errors.Is(err, core.ErrInvalidLayout):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its coded message.
func respondError(w http.ResponseWriter, r *http.Request, err error, runID string) {
	status := statusFor(err)
	msg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
		"run_id", runID,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		RunID:   runID,
	})
}

// respondErrorJSON writes msg without logging.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
