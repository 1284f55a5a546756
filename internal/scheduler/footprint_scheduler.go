package scheduler

import (
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/too"
)

// Options tunes the footprint scheduler.
type Options struct {
	VisitExpTime float64 // seconds per standard visit
	VisitNExp    int     // snaps per standard visit
	UExpTime     float64 // u band visits are a single longer exposure
	MinAlt       float64 // degrees; survey visits below this are skipped
	MaxAlt       float64 // degrees; nothing above this is requested (mount zenith limit)
	MoonAvoid    float64 // degrees from the moon (when up) to stay clear of
	ToOMinAlt    float64 // degrees; ToO follow-up is taken down to this altitude
	SplitLong    bool    // split ToO exposures longer than VisitExpTime into standard visits
	Logger       *slog.Logger
}

// DefaultOptions returns the baseline tuning.
func DefaultOptions() Options {
	return Options{
		VisitExpTime: 30,
		VisitNExp:    2,
		UExpTime:     38,
		MinAlt:       30,
		MaxAlt:       86.5,
		MoonAvoid:    30,
		ToOMinAlt:    20,
	}
}

// currentBandBonus favours staying in the loaded filter, measured in units of
// visit deficit.
const currentBandBonus = 0.5

// tooPlan tracks the follow-up visits still owed to one event.
type tooPlan struct {
	event     too.Event
	remaining []observatory.Observation
}

// FootprintScheduler observes the footprint pixel that is furthest behind its
// target share of visits in one of the loaded bands, after any visible ToO
// follow-up. Not safe for concurrent use.
type FootprintScheduler struct {
	opts   Options
	logger *slog.Logger

	nside   int
	ra, dec []float64
	sinDec  []float64
	cosDec  []float64
	labels  []string
	weights []footprint.Weights
	wsum    footprint.Weights

	counts [][footprint.NumBands]int
	totals [footprint.NumBands]int

	cond     observatory.Conditions
	haveCond bool

	plans   map[int]*tooPlan
	tooDone map[int]bool
}

// NewFootprintScheduler builds a scheduler that follows the given maps.
func NewFootprintScheduler(maps *footprint.Maps, opts Options) (*FootprintScheduler, error) {
	geom, err := healpix.NewGeometry(maps.Nside)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	n := geom.Npix()
	s := &FootprintScheduler{
		opts:    opts,
		logger:  logger,
		nside:   maps.Nside,
		ra:      geom.RA,
		dec:     geom.Dec,
		sinDec:  make([]float64, n),
		cosDec:  make([]float64, n),
		labels:  maps.Labels,
		weights: maps.Weights,
		counts:  make([][footprint.NumBands]int, n),
		plans:   make(map[int]*tooPlan),
		tooDone: make(map[int]bool),
	}
	for i := 0; i < n; i++ {
		s.sinDec[i], s.cosDec[i] = math.Sincos(geom.Dec[i] * math.Pi / 180)
		for b := range s.wsum {
			s.wsum[b] += maps.Weights[i][b]
		}
	}
	return s, nil
}

// Update records the conditions and refreshes the ToO queue.
func (s *FootprintScheduler) Update(c observatory.Conditions) {
	s.cond = c
	s.haveCond = true

	live := make(map[int]bool, len(c.ActiveToOs))
	for _, e := range c.ActiveToOs {
		live[e.ID] = true
		if s.tooDone[e.ID] {
			continue
		}
		if _, ok := s.plans[e.ID]; !ok {
			s.plans[e.ID] = &tooPlan{event: e, remaining: s.planToO(e)}
			s.logger.Debug("ToO queued", "event_id", e.ID, "type", e.Type, "visits", len(s.plans[e.ID].remaining))
		}
	}
	for id, p := range s.plans {
		if !live[id] {
			s.logger.Debug("ToO expired", "event_id", id, "visits_missed", len(p.remaining))
			delete(s.plans, id)
		}
	}
}

// planToO lays out the visits an event asks for, one block per band.
func (s *FootprintScheduler) planToO(e too.Event) []observatory.Observation {
	var visits []observatory.Observation
	for _, band := range e.Bands {
		base := observatory.Observation{
			RA:       e.RA,
			Dec:      e.Dec,
			Band:     band,
			Note:     "ToO_" + string(e.Type),
			TargetID: e.ID,
			HPID:     e.HPID,
		}
		if s.opts.SplitLong && e.ExpTime > s.opts.VisitExpTime {
			n := int(math.Ceil(e.ExpTime / s.opts.VisitExpTime))
			for i := 0; i < n; i++ {
				v := base
				v.ExpTime = e.ExpTime / float64(n)
				v.NExp = s.opts.VisitNExp
				visits = append(visits, v)
			}
			continue
		}
		v := base
		v.ExpTime = e.ExpTime
		v.NExp = 1
		visits = append(visits, v)
	}
	return visits
}

// Request returns the next visit, or false when nothing is observable.
func (s *FootprintScheduler) Request() (observatory.Observation, bool) {
	if !s.haveCond {
		return observatory.Observation{}, false
	}
	if obs, ok := s.requestToO(); ok {
		return obs, true
	}
	return s.requestSurvey()
}

func (s *FootprintScheduler) requestToO() (observatory.Observation, bool) {
	ids := make([]int, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		p := s.plans[id]
		h := s.cond.AltAz(p.event.RA, p.event.Dec)
		if h.AltDeg < s.opts.ToOMinAlt || h.AltDeg > s.opts.MaxAlt {
			continue
		}
		for _, v := range p.remaining {
			if s.cond.BandMounted(v.Band) {
				return v, true
			}
		}
	}
	return observatory.Observation{}, false
}

func (s *FootprintScheduler) requestSurvey() (observatory.Observation, bool) {
	c := &s.cond
	sinLat, cosLat := math.Sincos(c.Site.LatDeg * math.Pi / 180)
	sinMinAlt := math.Sin(s.opts.MinAlt * math.Pi / 180)
	sinMaxAlt := math.Sin(s.opts.MaxAlt * math.Pi / 180)

	moonUp := c.MoonAlt > 0
	sinMoonDec, cosMoonDec := math.Sincos(c.MoonDec * math.Pi / 180)
	cosMoonAvoid := math.Cos(s.opts.MoonAvoid * math.Pi / 180)

	type bandInfo struct {
		idx   int
		name  string
		share float64 // visits per unit weight so far
	}
	var bands []bandInfo
	for _, name := range c.MountedBands {
		idx, ok := footprint.BandIndex(name)
		if !ok || s.wsum[idx] == 0 {
			continue
		}
		bands = append(bands, bandInfo{idx: idx, name: name, share: float64(s.totals[idx]+1) / s.wsum[idx]})
	}
	if len(bands) == 0 {
		return observatory.Observation{}, false
	}

	best, bestBand := -1, bandInfo{}
	bestScore := math.Inf(-1)
	for i := range s.ra {
		ha := c.LMST - s.ra[i]*math.Pi/180
		sinAlt := s.sinDec[i]*sinLat + s.cosDec[i]*cosLat*math.Cos(ha)
		if sinAlt < sinMinAlt || sinAlt > sinMaxAlt {
			continue
		}
		if moonUp {
			cosSep := s.sinDec[i]*sinMoonDec + s.cosDec[i]*cosMoonDec*math.Cos((s.ra[i]-c.MoonRA)*math.Pi/180)
			if cosSep > cosMoonAvoid {
				continue
			}
		}
		for _, b := range bands {
			w := s.weights[i][b.idx]
			if w == 0 {
				continue
			}
			score := w*b.share - float64(s.counts[i][b.idx])
			if b.name == c.CurrentBand {
				score += currentBandBonus
			}
			if score > bestScore {
				best, bestBand, bestScore = i, b, score
			}
		}
	}
	if best < 0 {
		return observatory.Observation{}, false
	}

	obs := observatory.Observation{
		RA:       s.ra[best],
		Dec:      s.dec[best],
		Band:     bestBand.name,
		ExpTime:  s.opts.VisitExpTime,
		NExp:     s.opts.VisitNExp,
		Note:     s.labels[best],
		TargetID: -1,
		HPID:     best,
	}
	if bestBand.name == "u" {
		obs.ExpTime = s.opts.UExpTime
		obs.NExp = 1
	}
	return obs, true
}

// AddObservation books a completed visit against the footprint or its ToO.
func (s *FootprintScheduler) AddObservation(obs observatory.Observation) {
	if obs.TargetID >= 0 {
		s.completeToO(obs)
		return
	}
	idx, ok := footprint.BandIndex(obs.Band)
	if !ok || obs.HPID < 0 || obs.HPID >= len(s.counts) {
		s.logger.Warn("observation outside the footprint", "id", obs.ID, "band", obs.Band, "hpid", obs.HPID)
		return
	}
	s.counts[obs.HPID][idx]++
	s.totals[idx]++
}

func (s *FootprintScheduler) completeToO(obs observatory.Observation) {
	p, ok := s.plans[obs.TargetID]
	if !ok {
		return
	}
	for i, v := range p.remaining {
		if v.Band == obs.Band {
			p.remaining = slices.Delete(p.remaining, i, i+1)
			break
		}
	}
	if len(p.remaining) == 0 {
		delete(s.plans, obs.TargetID)
		s.tooDone[obs.TargetID] = true
		s.logger.Debug("ToO complete", "event_id", obs.TargetID)
	}
}

// Snapshot reports the visit tallies and ToO progress.
func (s *FootprintScheduler) Snapshot() Snapshot {
	snap := Snapshot{
		MJD:          s.cond.MJD,
		Night:        s.cond.Night,
		VisitsByBand: make(map[string]int, footprint.NumBands),
	}
	for i, name := range footprint.Bands {
		snap.VisitsByBand[name] = s.totals[i]
		snap.Visits += s.totals[i]
	}
	for id := range s.tooDone {
		snap.ToOsDone = append(snap.ToOsDone, id)
	}
	for id := range s.plans {
		snap.ToOsPending = append(snap.ToOsPending, id)
	}
	sort.Ints(snap.ToOsDone)
	sort.Ints(snap.ToOsPending)
	return snap
}

// visitCount returns the visits taken of pixel hpid in band.
func (s *FootprintScheduler) visitCount(hpid int, band string) int {
	idx, ok := footprint.BandIndex(band)
	if !ok || hpid < 0 || hpid >= len(s.counts) {
		return 0
	}
	return s.counts[hpid][idx]
}
