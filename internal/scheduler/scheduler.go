// Package scheduler defines the contract between the simulation loop and a
// survey scheduler, and provides a footprint-driven baseline implementation.
package scheduler

import (
	"github.com/star/surveyruns/internal/observatory"
)

// CoreScheduler decides what to observe next.
//
// The simulation loop calls Update with fresh conditions, then Request. If a
// visit is returned and executed, the completed observation is handed back
// through AddObservation.
type CoreScheduler interface {
	Update(c observatory.Conditions)
	Request() (observatory.Observation, bool)
	AddObservation(obs observatory.Observation)
	Snapshot() Snapshot
}

// Snapshot is the scheduler state saved between nights.
type Snapshot struct {
	MJD          float64        `json:"mjd"`
	Night        int            `json:"night"`
	Visits       int            `json:"visits"`
	VisitsByBand map[string]int `json:"visits_by_band"`
	ToOsDone     []int          `json:"toos_done"`
	ToOsPending  []int          `json:"toos_pending"`
}
