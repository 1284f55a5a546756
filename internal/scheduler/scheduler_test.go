package scheduler

import (
	"context"
	"math"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/metrics"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/too"
	"github.com/star/surveyruns/internal/transform"
)

const testNside = 4

// uniformMaps labels every pixel "lowdust" with weight 1 in r only.
func uniformMaps(t *testing.T) *footprint.Maps {
	t.Helper()
	n := healpix.Nside2Npix(testNside)
	maps := &footprint.Maps{
		Nside:   testNside,
		Labels:  make([]string, n),
		Weights: make([]footprint.Weights, n),
	}
	r, _ := footprint.BandIndex("r")
	for i := range maps.Labels {
		maps.Labels[i] = "lowdust"
		maps.Weights[i][r] = 1
	}
	return maps
}

func newTestScheduler(t *testing.T, opts Options) *FootprintScheduler {
	t.Helper()
	s, err := NewFootprintScheduler(uniformMaps(t), opts)
	if err != nil {
		t.Fatalf("NewFootprintScheduler: %v", err)
	}
	return s
}

// darkConditions puts RA 0 on the meridian with the moon below the horizon.
func darkConditions() observatory.Conditions {
	return observatory.Conditions{
		MJD:          60800.2,
		Night:        5,
		LMST:         0,
		Site:         transform.RubinSite,
		SunAlt:       -30,
		MoonAlt:      -20,
		MountedBands: []string{"u", "g", "r", "i", "z"},
		CurrentBand:  "r",
	}
}

func TestRequestBeforeUpdate(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	if _, ok := s.Request(); ok {
		t.Fatal("Request before Update returned a visit")
	}
}

func TestRequestSurveyVisit(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	c := darkConditions()
	s.Update(c)

	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if obs.Band != "r" {
		t.Errorf("band = %q, want r", obs.Band)
	}
	if obs.TargetID != -1 || obs.Note != "lowdust" {
		t.Errorf("TargetID = %d, Note = %q; want -1, lowdust", obs.TargetID, obs.Note)
	}
	if obs.ExpTime != 30 || obs.NExp != 2 {
		t.Errorf("exposure = %v x %d, want 30 x 2", obs.ExpTime, obs.NExp)
	}
	if alt := c.AltAz(obs.RA, obs.Dec).AltDeg; alt < 30 {
		t.Errorf("altitude %.2f below the survey limit", alt)
	}
}

func TestAddObservationSpreadsVisits(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	s.Update(darkConditions())

	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		obs, ok := s.Request()
		if !ok {
			t.Fatalf("visit %d: nothing returned", i)
		}
		if seen[obs.HPID] {
			t.Fatalf("visit %d repeats pixel %d before others were covered", i, obs.HPID)
		}
		seen[obs.HPID] = true
		s.AddObservation(obs)
		if got := s.visitCount(obs.HPID, "r"); got != 1 {
			t.Fatalf("visitCount(%d, r) = %d, want 1", obs.HPID, got)
		}
	}

	snap := s.Snapshot()
	if snap.Visits != 5 || snap.VisitsByBand["r"] != 5 {
		t.Errorf("snapshot visits = %d (r %d), want 5", snap.Visits, snap.VisitsByBand["r"])
	}
	if snap.Night != 5 {
		t.Errorf("snapshot night = %d, want 5", snap.Night)
	}
}

func TestMoonAvoidance(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	c := darkConditions()
	// Moon at the zenith.
	c.MoonRA, c.MoonDec, c.MoonAlt = 0, transform.RubinSite.LatDeg, 89

	s.Update(c)
	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if sep := transform.AngularSeparation(obs.RA, obs.Dec, c.MoonRA, c.MoonDec); sep < 30 {
		t.Errorf("visit %.1f degrees from the moon", sep)
	}
}

// zenithConditions moves the site and sidereal time so pixel hpid sits one
// degree of hour angle from the zenith, about 89 degrees up.
func zenithConditions(t *testing.T, hpid int) observatory.Conditions {
	t.Helper()
	geom, err := healpix.NewGeometry(testNside)
	if err != nil {
		t.Fatal(err)
	}
	c := darkConditions()
	c.Site.LatDeg = geom.Dec[hpid]
	c.LMST = (geom.RA[hpid] + 1) * math.Pi / 180
	return c
}

func TestZenithLimit(t *testing.T) {
	zenith := healpix.RaDec2Pix(testNside, 0, -30)

	noCap := DefaultOptions()
	noCap.MaxAlt = 90
	tests := []struct {
		name   string
		opts   Options
		wantOK bool
	}{
		{"mount limit", DefaultOptions(), false},
		{"no limit", noCap, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only the zenith pixel is in the footprint.
			maps := uniformMaps(t)
			for i := range maps.Weights {
				if i != zenith {
					maps.Weights[i] = footprint.Weights{}
				}
			}
			s, err := NewFootprintScheduler(maps, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			c := zenithConditions(t, zenith)
			s.Update(c)

			obs, ok := s.Request()
			if ok != tt.wantOK {
				t.Fatalf("Request ok = %v, want %v (got pixel %d)", ok, tt.wantOK, obs.HPID)
			}
			if ok && obs.HPID != zenith {
				t.Errorf("HPID = %d, want %d", obs.HPID, zenith)
			}
		})
	}
}

func TestZenithLimitPicksAnotherPixel(t *testing.T) {
	zenith := healpix.RaDec2Pix(testNside, 0, -30)
	maps := uniformMaps(t)
	r, _ := footprint.BandIndex("r")
	maps.Weights[zenith][r] = 10
	s, err := NewFootprintScheduler(maps, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	c := zenithConditions(t, zenith)
	s.Update(c)

	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if obs.HPID == zenith {
		t.Fatal("requested the pixel at the zenith")
	}
	if alt := c.AltAz(obs.RA, obs.Dec).AltDeg; alt > observatory.TMAMovement(100).AltMax {
		t.Errorf("altitude %.2f above the mount limit", alt)
	}
}

func TestToOAtZenithWaits(t *testing.T) {
	zenith := healpix.RaDec2Pix(testNside, 0, -30)
	s := newTestScheduler(t, DefaultOptions())
	c := zenithConditions(t, zenith)
	e := zenithEvent(4)
	e.RA, e.Dec = c.LMST*180/math.Pi, c.Site.LatDeg
	e.HPID = zenith
	c.ActiveToOs = []too.Event{e}
	s.Update(c)

	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if obs.TargetID != -1 {
		t.Errorf("got ToO visit at altitude %.2f", c.AltAz(obs.RA, obs.Dec).AltDeg)
	}
	if got := s.Snapshot().ToOsPending; len(got) != 1 || got[0] != 4 {
		t.Errorf("ToOsPending = %v, want [4]", got)
	}
}

func TestNoWeightedBandMounted(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	c := darkConditions()
	c.MountedBands = []string{"u", "g", "i", "z", "y"}
	s.Update(c)
	if obs, ok := s.Request(); ok {
		t.Fatalf("got visit in %q with no weighted band loaded", obs.Band)
	}
}

func TestUBandExposure(t *testing.T) {
	maps := uniformMaps(t)
	u, _ := footprint.BandIndex("u")
	r, _ := footprint.BandIndex("r")
	for i := range maps.Weights {
		maps.Weights[i][u], maps.Weights[i][r] = 1, 0
	}
	s, err := NewFootprintScheduler(maps, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	s.Update(darkConditions())
	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if obs.Band != "u" || obs.ExpTime != 38 || obs.NExp != 1 {
		t.Errorf("got %s %v x %d, want u 38 x 1", obs.Band, obs.ExpTime, obs.NExp)
	}
}

func zenithEvent(id int) too.Event {
	return too.Event{
		ID:       id,
		Type:     too.GW,
		MJDStart: 60800,
		Duration: 3,
		RA:       10,
		Dec:      -35,
		HPID:     healpix.RaDec2Pix(testNside, 10, -35),
		Bands:    []string{"g", "r"},
		ExpTime:  120,
	}
}

func TestToOSplitLong(t *testing.T) {
	tests := []struct {
		name      string
		splitLong bool
		wantExp   []float64
	}{
		{"split", true, []float64{30, 30, 30, 30, 30, 30, 30, 30}},
		{"whole", false, []float64{120, 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SplitLong = tt.splitLong
			s := newTestScheduler(t, opts)

			c := darkConditions()
			c.ActiveToOs = []too.Event{zenithEvent(7)}

			var got []float64
			for i := 0; i < 20; i++ {
				s.Update(c)
				obs, ok := s.Request()
				if !ok || obs.TargetID != 7 {
					break
				}
				if obs.Note != "ToO_gw" {
					t.Errorf("note = %q", obs.Note)
				}
				got = append(got, obs.ExpTime)
				s.AddObservation(obs)
			}
			if diff := cmp.Diff(tt.wantExp, got); diff != "" {
				t.Errorf("ToO exposures mismatch (-want +got):\n%s", diff)
			}

			snap := s.Snapshot()
			if diff := cmp.Diff([]int{7}, snap.ToOsDone); diff != "" {
				t.Errorf("ToOsDone mismatch (-want +got):\n%s", diff)
			}
			if len(snap.ToOsPending) != 0 {
				t.Errorf("ToOsPending = %v, want empty", snap.ToOsPending)
			}
			if snap.Visits != 0 {
				t.Errorf("ToO visits counted against the footprint: %d", snap.Visits)
			}
		})
	}
}

func TestToOBelowHorizonFallsBackToSurvey(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	c := darkConditions()
	e := zenithEvent(3)
	e.RA, e.Dec = 180, 60
	c.ActiveToOs = []too.Event{e}
	s.Update(c)

	obs, ok := s.Request()
	if !ok {
		t.Fatal("no visit returned")
	}
	if obs.TargetID != -1 {
		t.Errorf("got ToO visit for a target below the horizon")
	}
	if got := s.Snapshot().ToOsPending; len(got) != 1 || got[0] != 3 {
		t.Errorf("ToOsPending = %v, want [3]", got)
	}
}

func TestToOExpires(t *testing.T) {
	s := newTestScheduler(t, DefaultOptions())
	c := darkConditions()
	c.ActiveToOs = []too.Event{zenithEvent(1)}
	s.Update(c)

	c.ActiveToOs = nil
	s.Update(c)
	snap := s.Snapshot()
	if len(snap.ToOsPending) != 0 || len(snap.ToOsDone) != 0 {
		t.Errorf("expired ToO still tracked: pending %v done %v", snap.ToOsPending, snap.ToOsDone)
	}
	obs, ok := s.Request()
	if !ok || obs.TargetID != -1 {
		t.Errorf("expected a survey visit after expiry, got %+v", obs)
	}
}

func TestFactory(t *testing.T) {
	nside, sched, err := Factory(context.Background(), FactoryOptions{Nside: 8, Footprint: "smallfp1"})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if nside != 8 {
		t.Errorf("nside = %d, want 8", nside)
	}
	sched.Update(darkConditions())
	if _, ok := sched.Request(); !ok {
		t.Error("factory scheduler found nothing to observe at night")
	}

	if _, _, err := Factory(context.Background(), FactoryOptions{Nside: 8, Footprint: "nope"}); err == nil {
		t.Error("expected error for unknown footprint")
	}
}

func TestFactoryPublishesFootprintPixels(t *testing.T) {
	if _, _, err := Factory(context.Background(), FactoryOptions{Nside: 8, Footprint: "smallfp2"}); err != nil {
		t.Fatalf("Factory: %v", err)
	}

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		`surveyruns_footprint_pixels{footprint="smallfp2",region="lowdust"}`,
		`surveyruns_footprint_pixels{footprint="smallfp2",region="none"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %s", want)
		}
	}
}
