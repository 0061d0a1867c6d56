package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	service "github.com/okian/tripsim/internal/app"
)

// Run states reported by GET /run.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// RunState tracks the single run a process executes. It is safe for
// concurrent use by the simulation and HTTP handlers.
type RunState struct {
	mu      sync.RWMutex
	status  string
	started time.Time
	report  *service.Report
	err     error
}

// NewRunState returns a pending state.
func NewRunState() *RunState {
	return &RunState{status: StatusPending}
}

// Start marks the run as running.
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	s.started = time.Now()
}

// Finish stores the report of a successful run.
func (s *RunState) Finish(rep *service.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFinished
	s.report = rep
}

// Fail records the error that ended the run.
func (s *RunState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = err
}

func (s *RunState) snapshot() (string, time.Time, *service.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.started, s.report, s.err
}

// RunResponse is the body of GET /run.
type RunResponse struct {
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// RunHandler serves the run status and its diagnostics.
type RunHandler struct {
	state *RunState
}

// NewRunHandler creates a handler reading from state.
func NewRunHandler(state *RunState) *RunHandler {
	if state == nil {
		panic("run state is nil")
	}
	return &RunHandler{state: state}
}

// HandleRun handles GET /run.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	status, started, rep, err := h.state.snapshot()
	resp := RunResponse{Status: status}
	if !started.IsZero() {
		resp.StartedAt = &started
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if rep != nil {
		sum := NewSummary(rep)
		resp.Summary = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDiagnostics handles GET /run/diagnostics. The optional iteration
// query parameter selects the rows of one calibration round.
func (h *RunHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	iteration := -1
	if q := r.URL.Query().Get("iteration"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_iteration", fmt.Errorf("%w: iteration %q", ErrBadRequest, q))
			return
		}
		iteration = n
	}

	_, _, rep, _ := h.state.snapshot()
	if rep == nil {
		writeError(w, http.StatusNotFound, "no_report", ErrNoReport)
		return
	}

	rows := make([]DiagnosticRow, 0, len(rep.Diagnostics))
	for _, d := range rep.Diagnostics {
		if iteration >= 0 && d.Iteration != iteration {
			continue
		}
		rows = append(rows, newDiagnosticRow(d))
	}
	writeJSON(w, http.StatusOK, rows)
}
