package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/attendance/internal/logging"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Ping(r.Context()); err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.runner.Counts(r.Context())
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	report, ok := s.runner.Latest()
	if !ok {
		respondErrorJSON(w, noRunYet, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleTriggerRun runs an incremental sheet load and answers with its
// report. The run outlives a disconnected client; committed rows stay
// committed either way.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	logging.FromContext(ctx).Info("run triggered", "remote_addr", r.RemoteAddr)

	report, err := s.runner.RunIncrementalSheet(ctx)
	if err != nil {
		respondError(w, r, err, report.RunID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
