package simrunner

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/health"
	"github.com/star/surveyruns/internal/obsdb"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/scheduler"
	"github.com/star/surveyruns/internal/snapshot"
	"github.com/star/surveyruns/internal/transform"
)

const testNside = 4

// newSim returns an observatory at mjd and a scheduler that wants r-band
// visits everywhere.
func newSim(t *testing.T, mjd float64) (*observatory.Model, scheduler.CoreScheduler) {
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
	sched, err := scheduler.NewFootprintScheduler(maps, scheduler.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return observatory.New(transform.RubinSite, testNside, mjd, nil, nil), sched
}

func TestRunOneDay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	model, sched := newSim(t, 60796.0)
	status := health.NewStatus()

	obs, err := Run(ctx, model, sched, Options{
		Duration:    1,
		Filename:    filepath.Join(dir, "test_1yrs.db"),
		DeletePast:  true,
		ExtraInfo:   map[string]string{"exec command": "surveyruns --nside 4"},
		SnapshotDir: filepath.Join(dir, "snaps"),
		FlushEvery:  100,
		Status:      status,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs) < 100 {
		t.Fatalf("only %d visits in a night", len(obs))
	}

	for i, o := range obs {
		if o.ID != i {
			t.Fatalf("visit %d has ID %d", i, o.ID)
		}
		if i > 0 && o.MJD <= obs[i-1].MJD {
			t.Fatalf("visit %d at %.6f not after %.6f", i, o.MJD, obs[i-1].MJD)
		}
		// The night check happens before the slew, so allow a little slack.
		if o.SunAlt > observatory.TwilightAlt+1 {
			t.Fatalf("visit %d with sun at %.2f", i, o.SunAlt)
		}
		// Targets are picked above 30 degrees and may sink during the slew.
		if o.Alt < 28 {
			t.Fatalf("visit %d at altitude %.2f", i, o.Alt)
		}
		if o.MJD > 60797.005 {
			t.Fatalf("visit %d at %.5f after the end of the run", i, o.MJD)
		}
	}

	db, err := obsdb.Open(ctx, filepath.Join(dir, "test_1yrs.db"), nil)
	if err != nil {
		t.Fatalf("output database not written: %v", err)
	}
	defer db.Close()
	n, err := db.CountObservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(obs) {
		t.Errorf("stored %d visits, returned %d", n, len(obs))
	}

	nights, err := snapshot.NewStore(filepath.Join(dir, "snaps"), 0).Nights()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(nights, 1) {
		t.Errorf("snapshot nights = %v, want night 1", nights)
	}

	p := status.Progress()
	if p.Phase != health.PhaseDone || p.Visits != len(obs) {
		t.Errorf("status = %+v, want done with %d visits", p, len(obs))
	}
}

func TestRunWritesDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "limit.db")
	model, sched := newSim(t, 60796.0)

	obs, err := Run(ctx, model, sched, Options{
		Duration:   1,
		Filename:   path,
		VisitLimit: 25,
		FlushEvery: 10,
		ExtraInfo:  map[string]string{"git hash": "Not in git repo"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs) != 25 {
		t.Fatalf("got %d visits, want the limit of 25", len(obs))
	}

	db, err := obsdb.Open(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	counts, err := db.BandCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["r"] != 25 {
		t.Errorf("stored r visits = %d, want 25", counts["r"])
	}
	info, err := db.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info["git hash"] != "Not in git repo" {
		t.Errorf("info = %v", info)
	}
}

func TestRunStartsAtNextNight(t *testing.T) {
	model, sched := newSim(t, 60796.6)
	obs, err := Run(context.Background(), model, sched, Options{Duration: 1, VisitLimit: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d visits, want 1", len(obs))
	}
	if obs[0].MJD < 60796.9 {
		t.Errorf("first visit at %.4f, before evening twilight", obs[0].MJD)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model, sched := newSim(t, 60796.0)

	obs, err := Run(ctx, model, sched, Options{Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(obs) != 0 {
		t.Errorf("got %d visits from a cancelled run", len(obs))
	}
}

func TestRunRefusesExistingOutput(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "exists.db")
	db, err := obsdb.Create(ctx, path, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	model, sched := newSim(t, 60796.0)
	if _, err := Run(ctx, model, sched, Options{Duration: 1, Filename: path}); !errors.Is(err, obsdb.ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
}

type fixedBands []string

func (b fixedBands) Bands(observatory.Conditions) []string { return b }

func TestRunMountsBands(t *testing.T) {
	model, sched := newSim(t, 60796.0)
	obs, err := Run(context.Background(), model, sched, Options{
		Duration:      0.3,
		BandScheduler: fixedBands{"g", "i"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs) != 0 {
		t.Errorf("got %d visits with no weighted band loaded", len(obs))
	}
	if got := model.Conditions().MountedBands; !slices.Equal(got, []string{"g", "i"}) {
		t.Errorf("mounted bands = %v", got)
	}
	if model.MJD() < 60796.3 {
		t.Errorf("clock at %.4f, idle time was not advanced", model.MJD())
	}
}
