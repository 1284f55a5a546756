package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		phase    string
		wantCode int
		wantBody string
	}{
		{PhaseSetup, http.StatusServiceUnavailable, "not ready\n"},
		{PhaseRunning, http.StatusOK, "ready\n"},
		{PhaseDone, http.StatusOK, "ready\n"},
		{PhaseFailed, http.StatusServiceUnavailable, "not ready\n"},
	}
	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			s := NewStatus()
			s.SetPhase(tt.phase)

			w := httptest.NewRecorder()
			s.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestUpdate(t *testing.T) {
	s := NewStatus()
	s.SetFilename("baseline_v5.1.0_10yrs.db")
	s.Update(12, 60808.1, 9000)

	p := s.Progress()
	if p.Night != 12 || p.MJD != 60808.1 || p.Visits != 9000 {
		t.Errorf("progress = %+v", p)
	}
	if p.Filename != "baseline_v5.1.0_10yrs.db" {
		t.Errorf("filename = %q", p.Filename)
	}
	if p.UpdatedAt.Before(p.StartedAt) {
		t.Errorf("UpdatedAt %v before StartedAt %v", p.UpdatedAt, p.StartedAt)
	}

	var nilStatus *Status
	nilStatus.Update(1, 2, 3)
}
