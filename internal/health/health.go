// Package health tracks the progress of a simulation run and serves the
// liveness and readiness probes for it.
package health

import (
	"net/http"
	"sync"
	"time"
)

// Run phases.
const (
	PhaseSetup   = "setup"
	PhaseRunning = "running"
	PhaseDone    = "done"
	PhaseFailed  = "failed"
)

// Progress is a point-in-time view of a run.
type Progress struct {
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename,omitempty"`
	Night     int       `json:"night"`
	MJD       float64   `json:"mjd"`
	Visits    int       `json:"visits"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is shared between the simulation loop and the status server.
// Safe for concurrent use. Setters on a nil Status are no-ops.
type Status struct {
	mu sync.RWMutex
	p  Progress
}

// NewStatus returns a Status in the setup phase.
func NewStatus() *Status {
	now := time.Now().UTC()
	return &Status{p: Progress{Phase: PhaseSetup, StartedAt: now, UpdatedAt: now}}
}

// SetPhase moves the run to a new phase.
func (s *Status) SetPhase(phase string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.p.Phase = phase
	s.p.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// SetFilename records the output database.
func (s *Status) SetFilename(name string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.p.Filename = name
	s.mu.Unlock()
}

// Update records the loop position.
func (s *Status) Update(night int, mjd float64, visits int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.p.Night, s.p.MJD, s.p.Visits = night, mjd, visits
	s.p.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// Progress returns a copy of the current progress.
func (s *Status) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" once the simulation loop has started, and 503
// while setting up or after a failure.
func (s *Status) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	switch s.Progress().Phase {
	case PhaseRunning, PhaseDone:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
	}
}
