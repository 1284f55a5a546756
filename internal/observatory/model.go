// Package observatory simulates the telescope and camera a scheduler drives:
// it tracks the clock, the pointing and the loaded filters, reports observing
// conditions and turns requested visits into completed observations.
package observatory

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/star/surveyruns/internal/transform"
)

// TwilightAlt is the sun altitude (degrees) below which the observatory observes.
const TwilightAlt = -12.0

var (
	// ErrNotObservable is returned when a target is outside the mount's altitude limits.
	ErrNotObservable = errors.New("target not observable")
	// ErrBandNotMounted is returned for visits in a filter that is not loaded.
	ErrBandNotMounted = errors.New("band not mounted")
)

const (
	coarseStepDays = 10.0 / 1440 // 10 minutes between coarse twilight scan steps
	fineTolDays    = 1.0 / 86400 // refine twilight crossings to 1 second
	nightSearchMax = 2.0         // days to search for the next night
)

// Model is the simulated observatory. Not safe for concurrent use; the
// simulation loop owns it.
type Model struct {
	site      transform.Site
	nside     int
	mjdStart  float64
	mjd       float64
	toos      ToOSource
	telescope TelescopeConfig
	camera    CameraConfig
	logger    *slog.Logger

	alt, az float64
	band    string
	mounted []string
	nextID  int
}

// New creates an observatory at site with its clock at mjdStart, parked at
// zenith. toos may be nil.
func New(site transform.Site, nside int, mjdStart float64, toos ToOSource, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model{
		site:      site,
		nside:     nside,
		mjdStart:  mjdStart,
		mjd:       mjdStart,
		toos:      toos,
		telescope: TMAMovement(100),
		camera:    DefaultCamera,
		logger:    logger,
		alt:       86.5,
		band:      "r",
		mounted:   []string{"u", "g", "r", "i", "z"},
	}
}

// SetupTelescope replaces the mount kinematic limits.
func (m *Model) SetupTelescope(cfg TelescopeConfig) {
	m.telescope = cfg
	m.logger.Debug("telescope configured",
		"az_max_speed", cfg.AzMaxSpeed,
		"az_accel", cfg.AzAccel,
		"alt_max_speed", cfg.AltMaxSpeed,
		"alt_accel", cfg.AltAccel,
		"settle_time", cfg.SettleTime,
	)
}

// SetupCamera sets the filter change and readout times in seconds.
func (m *Model) SetupCamera(bandChangeTime, readTime float64) {
	m.camera.BandChangeTime = bandChangeTime
	m.camera.ReadTime = readTime
	m.logger.Debug("camera configured", "band_change_time", bandChangeTime, "read_time", readTime)
}

// Telescope returns the current mount limits.
func (m *Model) Telescope() TelescopeConfig { return m.telescope }

// Camera returns the current camera timing.
func (m *Model) Camera() CameraConfig { return m.camera }

// Nside returns the resolution the observatory was configured for.
func (m *Model) Nside() int { return m.nside }

// MJD returns the current simulation time.
func (m *Model) MJD() float64 { return m.mjd }

// MJDStart returns the time the simulation started at.
func (m *Model) MJDStart() float64 { return m.mjdStart }

// AdvanceTo moves the clock forward. Times in the past are ignored.
func (m *Model) AdvanceTo(mjd float64) {
	if mjd > m.mjd {
		m.mjd = mjd
	}
}

// Advance moves the clock forward by seconds.
func (m *Model) Advance(seconds float64) {
	m.AdvanceTo(m.mjd + seconds/86400)
}

// MountBands loads filters into the changer. If the current filter is not
// among them the next visit pays a filter change.
func (m *Model) MountBands(bands []string) {
	m.mounted = slices.Clone(bands)
}

// Night returns the night number of mjd, counting from 1 at the start night.
// Nights roll over at local noon.
func (m *Model) Night(mjd float64) int {
	local := func(t float64) float64 { return math.Floor(t + m.site.LonDeg/360 - 0.5) }
	return int(local(mjd)-local(m.mjdStart)) + 1
}

// SunAlt returns the sun altitude at mjd.
func (m *Model) SunAlt(mjd float64) float64 {
	return transform.SunAltitude(mjd, m.site)
}

// IsNight reports whether the sun is below TwilightAlt now.
func (m *Model) IsNight() bool {
	return m.SunAlt(m.mjd) < TwilightAlt
}

// NextNightStart returns the next time at or after now when the sun is below
// TwilightAlt. A coarse scan finds the crossing, bisection refines it.
func (m *Model) NextNightStart() (float64, error) {
	if m.IsNight() {
		return m.mjd, nil
	}
	prev := m.mjd
	for t := m.mjd + coarseStepDays; t <= m.mjd+nightSearchMax; t += coarseStepDays {
		if m.SunAlt(t) < TwilightAlt {
			return m.refineTwilight(prev, t), nil
		}
		prev = t
	}
	return 0, fmt.Errorf("no night within %.0f days of MJD %.5f at %s", nightSearchMax, m.mjd, m.site.Name)
}

// refineTwilight bisects between a time above twilight and one below it.
func (m *Model) refineTwilight(above, below float64) float64 {
	for below-above > fineTolDays {
		mid := (above + below) / 2
		if m.SunAlt(mid) < TwilightAlt {
			below = mid
		} else {
			above = mid
		}
	}
	return below
}

// Conditions reports the observing conditions now.
func (m *Model) Conditions() Conditions {
	moon := transform.MoonPosition(m.mjd)
	lst := transform.LMST(m.mjd, m.site.LonDeg)
	c := Conditions{
		MJD:          m.mjd,
		Night:        m.Night(m.mjd),
		LMST:         lst,
		Site:         m.site,
		SunAlt:       m.SunAlt(m.mjd),
		MoonRA:       moon.RADeg,
		MoonDec:      moon.DecDeg,
		MoonIllum:    transform.MoonIllumination(m.mjd),
		MountedBands: slices.Clone(m.mounted),
		CurrentBand:  m.band,
		TelAlt:       m.alt,
		TelAz:        m.az,
	}
	c.MoonAlt = transform.HorizontalAtLST(moon.RADeg, moon.DecDeg, lst, m.site.LatDeg).AltDeg
	if m.toos != nil {
		c.ActiveToOs = m.toos.Active(m.mjd)
	}
	return c
}

// Observe slews to the requested target, changes filter if needed, takes the
// exposure and advances the clock. The returned observation carries the
// as-executed metadata.
func (m *Model) Observe(req Observation) (Observation, error) {
	if !slices.Contains(m.mounted, req.Band) {
		return Observation{}, fmt.Errorf("%w: %q (loaded %v)", ErrBandNotMounted, req.Band, m.mounted)
	}

	h := transform.EquatorialToHorizontal(req.RA, req.Dec, m.mjd, m.site)
	if h.AltDeg < m.telescope.AltMin || h.AltDeg > m.telescope.AltMax {
		return Observation{}, fmt.Errorf("%w: RA %.3f Dec %.3f at altitude %.2f", ErrNotObservable, req.RA, req.Dec, h.AltDeg)
	}

	slew := m.telescope.SlewTime(m.alt, m.az, h.AltDeg, h.AzDeg)
	if req.Band != m.band {
		slew = math.Max(slew, m.camera.BandChangeTime)
	}
	visit := m.camera.VisitTime(req.ExpTime, req.NExp)

	obs := req
	obs.ID = m.nextID
	obs.MJD = m.mjd + slew/86400
	// Re-evaluate the pointing at shutter open.
	h = transform.EquatorialToHorizontal(req.RA, req.Dec, obs.MJD, m.site)
	obs.Alt = h.AltDeg
	obs.Az = h.AzDeg
	obs.Airmass = transform.Airmass(h.AltDeg)
	obs.SlewTime = slew
	obs.VisitTime = visit
	obs.SunAlt = m.SunAlt(obs.MJD)
	obs.MoonIllum = transform.MoonIllumination(obs.MJD)
	obs.Night = m.Night(obs.MJD)

	m.nextID++
	m.alt, m.az = h.AltDeg, h.AzDeg
	m.band = req.Band
	m.mjd = obs.MJD + visit/86400

	return obs, nil
}
