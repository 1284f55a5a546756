// Package footprint builds labelled sky footprints: a HEALPix map in which
// every pixel belongs to at most one named region (Magellanic Clouds, low-dust
// wide-fast-deep, galactic bulge, ...) and carries a target weight per band.
//
// Regions are painted in PaintOrder. A region only claims pixels that no
// earlier region has labelled, so the order decides overlaps.
package footprint

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/transform"
)

// AreaMap holds the per-pixel sky coordinates and derived masks a footprint is
// painted from. Immutable after New; ReturnMaps allocates fresh output arrays
// on every call.
type AreaMap struct {
	cfg    Config
	logger *slog.Logger

	ra, dec       []float64
	galLon        []float64 // wrapped to (-180, 180]
	galLat        []float64
	eclipLat      []float64
	ebv           []float64
	lowDust       []bool
	euclidContour *contour
}

type options struct {
	nside  int
	dust   DustModel
	logger *slog.Logger
}

// Option customises AreaMap construction.
type Option func(*options)

// WithNside overrides the resolution from the Config.
func WithNside(nside int) Option {
	return func(o *options) { o.nside = nside }
}

// WithDust selects the dust model. The default is DefaultDust.
func WithDust(d DustModel) Option {
	return func(o *options) { o.dust = d }
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New precomputes the coordinates and masks for cfg.
func New(ctx context.Context, cfg Config, opts ...Option) (*AreaMap, error) {
	o := options{dust: DefaultDust, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.nside != 0 {
		cfg.Nside = o.nside
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("footprint config: %w", err)
	}

	start := time.Now()
	geom, err := healpix.NewGeometry(cfg.Nside)
	if err != nil {
		return nil, err
	}

	m := &AreaMap{
		cfg:    cfg,
		logger: o.logger,
		ra:     geom.RA,
		dec:    geom.Dec,
	}

	var gl []float64
	gl, m.galLat = transform.EquatorialToGalacticBatch(m.ra, m.dec)
	m.galLon = make([]float64, len(gl))
	for i, l := range gl {
		m.galLon[i] = transform.WrapDeg180(l)
	}
	_, m.eclipLat = transform.EquatorialToEclipticBatch(m.ra, m.dec)

	m.ebv, err = o.dust.EBV(cfg.Nside, m.galLat)
	if err != nil {
		return nil, fmt.Errorf("dust model: %w", err)
	}

	m.lowDust, err = m.smoothLowDust(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.EuclidContourFile != "" {
		m.euclidContour, err = loadContour(cfg.EuclidContourFile)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Debug("area map ready",
		"nside", cfg.Nside,
		"npix", len(m.ra),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Config returns the thresholds the map was built with.
func (m *AreaMap) Config() Config {
	return m.cfg
}

// Nside returns the map resolution.
func (m *AreaMap) Nside() int {
	return m.cfg.Nside
}

// Npix returns the number of pixels.
func (m *AreaMap) Npix() int {
	return len(m.ra)
}

// PixelCoords returns the RA/Dec (degrees) of a pixel centre.
func (m *AreaMap) PixelCoords(i int) (ra, dec float64) {
	return m.ra[i], m.dec[i]
}

// smoothLowDust thresholds the dust map at DustLimit, smooths the 0/1 mask
// with a Gaussian beam of SmoothingBeam FWHM and keeps pixels whose smoothed
// value exceeds SmoothingCutoff. Rows are split across CPUs.
func (m *AreaMap) smoothLowDust(ctx context.Context) ([]bool, error) {
	n := len(m.ra)
	raw := make([]float64, n)
	for i, e := range m.ebv {
		if e < m.cfg.DustLimit {
			raw[i] = 1
		}
	}

	out := make([]bool, n)
	if m.cfg.SmoothingBeam == 0 {
		for i, v := range raw {
			out[i] = v > m.cfg.SmoothingCutoff
		}
		return out, nil
	}

	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := range m.ra {
		sinRA, cosRA := math.Sincos(m.ra[i] * math.Pi / 180)
		sinDec, cosDec := math.Sincos(m.dec[i] * math.Pi / 180)
		x[i], y[i], z[i] = cosDec*cosRA, cosDec*sinRA, sinDec
	}

	sigma := m.cfg.SmoothingBeam / (2 * math.Sqrt(2*math.Ln2)) * math.Pi / 180
	cosCut := math.Cos(3 * sigma)
	twoSigma2 := 2 * sigma * sigma

	workers := runtime.NumCPU()
	chunk := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				var sum, wsum float64
				for j := 0; j < n; j++ {
					dot := x[i]*x[j] + y[i]*y[j] + z[i]*z[j]
					if dot < cosCut {
						continue
					}
					theta := math.Acos(math.Min(dot, 1))
					w := math.Exp(-theta * theta / twoSigma2)
					sum += w * raw[j]
					wsum += w
				}
				out[i] = wsum > 0 && sum/wsum > m.cfg.SmoothingCutoff
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("smoothing low-dust mask: %w", err)
	}
	return out, nil
}

// Contains reports whether pixel i falls inside region r's selection,
// regardless of whether an earlier region has already claimed it.
func (m *AreaMap) Contains(r Region, i int) bool {
	c := &m.cfg
	switch r {
	case MagellanicClouds:
		return transform.AngularSeparation(c.LMCRA, c.LMCDec, m.ra[i], m.dec[i]) < c.LMCRadius ||
			transform.AngularSeparation(c.SMCRA, c.SMCDec, m.ra[i], m.dec[i]) < c.SMCRadius

	case LowDustWFD:
		return m.dec[i] > c.LowDustDecMin && m.dec[i] < c.LowDustDecMax &&
			m.lowDust[i] && math.Abs(m.galLat[i]) >= c.AdjustHalves

	case Virgo:
		return transform.AngularSeparation(c.VirgoRA, c.VirgoDec, m.ra[i], m.dec[i]) < c.VirgoRadius

	case Bulge:
		return m.inBulge(i)

	case NES:
		return m.eclipLat[i] > c.EclatMin && m.eclipLat[i] < c.EclatMax &&
			m.dec[i] > c.EclipDecMin && math.Abs(m.galLon[i]) > c.NESGlonLimit

	case DustyPlane:
		dusty := !m.lowDust[i] || math.Abs(m.galLat[i]) < c.AdjustHalves
		return m.dec[i] > c.DustyDecMin && m.dec[i] < c.DustyDecMax &&
			dusty && math.Abs(m.galLat[i]) < c.GalLatWidthMax

	case EuclidOverlap:
		return m.euclidContour != nil && m.euclidContour.contains(m.ra[i], m.dec[i])

	case SCP:
		return m.dec[i] < c.SCPDecMax
	}
	return false
}

// inBulge is a bowtie around the galactic centre: the latitude half-width
// shrinks linearly from CenterWidth at l=0 to EndWidth at the longitude limits.
func (m *AreaMap) inBulge(i int) bool {
	c := &m.cfg
	lo := transform.WrapDeg180(c.GalLong1)
	hi := transform.WrapDeg180(c.GalLong2)
	l := m.galLon[i]
	if l <= lo || l >= hi {
		return false
	}
	if m.dec[i] >= c.GalDecMax {
		return false
	}

	halfSpan := math.Max(math.Abs(lo), math.Abs(hi))
	width := c.CenterWidth
	if halfSpan > 0 {
		width -= (c.CenterWidth - c.EndWidth) * math.Abs(l) / halfSpan
	}
	width = math.Min(width, c.GalLatWidthMax)
	return math.Abs(m.galLat[i]) < width
}

// Maps is the output of ReturnMaps.
type Maps struct {
	Nside   int
	Labels  []string  // one region label per pixel, "" when unclaimed
	Weights []Weights // per-pixel, per-band target weight
}

// Band returns a copy of one band's weight map.
func (mp *Maps) Band(band string) ([]float64, error) {
	idx, ok := BandIndex(band)
	if !ok {
		return nil, fmt.Errorf("unknown band %q", band)
	}
	out := make([]float64, len(mp.Weights))
	for i := range mp.Weights {
		out[i] = mp.Weights[i][idx]
	}
	return out, nil
}

// Counts returns the number of pixels per label. Unclaimed pixels are counted
// under the empty string.
func (mp *Maps) Counts() map[string]int {
	counts := make(map[string]int)
	for _, l := range mp.Labels {
		counts[l]++
	}
	return counts
}

// ReturnMaps paints every region in PaintOrder onto fresh zeroed maps.
// Regions missing from ratios are painted with zero weight in all bands so
// they still claim their pixels.
func (m *AreaMap) ReturnMaps(ratios Ratios) (*Maps, error) {
	return m.paint(PaintOrder, ratios)
}

func (m *AreaMap) paint(order []Region, ratios Ratios) (*Maps, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	n := len(m.ra)
	maps := &Maps{
		Nside:   m.cfg.Nside,
		Labels:  make([]string, n),
		Weights: make([]Weights, n),
	}

	for _, r := range order {
		w, err := ratios[r].weights()
		if err != nil {
			return nil, fmt.Errorf("ratios for %s: %w", r, err)
		}

		label := r.Label()
		claimed := 0
		for i := 0; i < n; i++ {
			if maps.Labels[i] != "" || !m.Contains(r, i) {
				continue
			}
			maps.Labels[i] = label
			maps.Weights[i] = w
			claimed++
		}
		m.logger.Debug("painted region", "region", label, "pixels", claimed)
	}

	return maps, nil
}
