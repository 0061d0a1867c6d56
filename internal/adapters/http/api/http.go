// Package api serves a read-only view of a simulation run over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/tripsim/internal/adapters/http/swagger"
)

// Server wires HTTP routes for the run status API.
type Server struct {
	healthHandler *HealthHandler
	runHandler    *RunHandler
}

// NewServer creates a new API server reading from state.
func NewServer(state *RunState) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		runHandler:    NewRunHandler(state),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/run", MetricsMiddleware(s.runHandler.HandleRun, "run"))
	mux.HandleFunc("/run/diagnostics", MetricsMiddleware(s.runHandler.HandleDiagnostics, "diagnostics"))
	swagger.Register(mux)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
