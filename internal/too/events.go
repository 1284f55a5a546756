// Package too generates target-of-opportunity events and injects them into a
// running simulation.
package too

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/star/surveyruns/internal/healpix"
)

// EventType names the kind of transient that triggered a ToO.
type EventType string

const (
	GW        EventType = "gw"
	Neutrino  EventType = "neutrino"
	LensedBNS EventType = "lensed_bns"
	SSONight  EventType = "sso_night"
)

// Event is one ToO request.
type Event struct {
	ID       int
	Type     EventType
	MJDStart float64 // when the alert arrives
	Duration float64 // days the event stays observable
	RA       float64 // degrees
	Dec      float64 // degrees
	HPID     int     // pixel containing RA/Dec at the generation nside
	Bands    []string
	ExpTime  float64 // total exposure requested per band, seconds
}

// Expires returns the MJD after which the event is no longer active.
func (e Event) Expires() float64 {
	return e.MJDStart + e.Duration
}

// EventTable is the list of generated events, sorted by MJDStart.
type EventTable []Event

// profile describes how often a type fires and what follow-up it asks for.
type profile struct {
	perYear  float64
	duration float64
	bands    []string
	expTime  float64
}

var profiles = map[EventType]profile{
	GW:        {perYear: 10, duration: 3, bands: []string{"g", "r", "i"}, expTime: 120},
	Neutrino:  {perYear: 10, duration: 2, bands: []string{"g", "r"}, expTime: 30},
	LensedBNS: {perYear: 1, duration: 4, bands: []string{"g", "r"}, expTime: 180},
	SSONight:  {perYear: 2, duration: 1, bands: []string{"r"}, expTime: 30},
}

// eventTypes fixes iteration order so generation is reproducible.
var eventTypes = []EventType{GW, Neutrino, LensedBNS, SSONight}

// GenOptions controls event generation.
type GenOptions struct {
	Seed     uint64
	MJDStart float64
	Years    float64
}

// DefaultGenOptions covers a ten year survey from the baseline start date.
func DefaultGenOptions() GenOptions {
	return GenOptions{Seed: 42, MJDStart: 60796.0, Years: 10}
}

// Generate draws a reproducible set of events. scale multiplies every rate.
// Positions are isotropic; arrival times are uniform over the survey.
func Generate(scale float64, nside int, opts GenOptions) (EventTable, *Injector) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var table EventTable
	for _, typ := range eventTypes {
		p := profiles[typ]
		n := int(math.Round(p.perYear * opts.Years * scale))
		for i := 0; i < n; i++ {
			ra := rng.Float64() * 360
			dec := math.Asin(2*rng.Float64()-1) * 180 / math.Pi
			table = append(table, Event{
				Type:     typ,
				MJDStart: opts.MJDStart + rng.Float64()*opts.Years*365.25,
				Duration: p.duration,
				RA:       ra,
				Dec:      dec,
				HPID:     healpix.RaDec2Pix(nside, ra, dec),
				Bands:    append([]string(nil), p.bands...),
				ExpTime:  p.expTime,
			})
		}
	}

	sort.SliceStable(table, func(i, j int) bool { return table[i].MJDStart < table[j].MJDStart })
	for i := range table {
		table[i].ID = i
	}
	return table, NewInjector(table)
}
