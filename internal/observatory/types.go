package observatory

import (
	"github.com/star/surveyruns/internal/too"
	"github.com/star/surveyruns/internal/transform"
)

// Observation is a single visit: requested by a scheduler, completed by the
// observatory. Fields after Note are filled in by Observe.
type Observation struct {
	ID       int
	RA       float64 // degrees
	Dec      float64 // degrees
	Band     string
	ExpTime  float64 // total open-shutter seconds for the visit
	NExp     int     // snaps the exposure is split into
	Note     string  // survey or region that asked for the visit
	TargetID int     // ToO event ID, -1 for survey visits
	HPID     int     // footprint pixel, -1 when not tied to one

	MJD       float64 // start of exposure
	Alt       float64 // degrees
	Az        float64 // degrees
	Airmass   float64
	SlewTime  float64 // seconds
	VisitTime float64 // seconds
	SunAlt    float64 // degrees
	MoonIllum float64 // percent
	Night     int
}

// Conditions is the snapshot of the observatory a scheduler decides from.
type Conditions struct {
	MJD   float64
	Night int
	LMST  float64 // radians
	Site  transform.Site

	SunAlt    float64
	MoonRA    float64
	MoonDec   float64
	MoonAlt   float64
	MoonIllum float64 // percent

	MountedBands []string
	CurrentBand  string
	TelAlt       float64
	TelAz        float64

	ActiveToOs []too.Event
}

// AltAz returns the horizontal position of an RA/Dec at the conditions' time.
func (c Conditions) AltAz(raDeg, decDeg float64) transform.Horizontal {
	return transform.HorizontalAtLST(raDeg, decDeg, c.LMST, c.Site.LatDeg)
}

// BandMounted reports whether band is in the filter changer.
func (c Conditions) BandMounted(band string) bool {
	for _, b := range c.MountedBands {
		if b == band {
			return true
		}
	}
	return false
}

// ToOSource supplies the target-of-opportunity events live at a time.
type ToOSource interface {
	Active(mjd float64) []too.Event
}
