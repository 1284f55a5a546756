package baseline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/runinfo"
	"github.com/star/surveyruns/internal/scheduler"
	"github.com/star/surveyruns/internal/too"
)

type fakeGit struct{}

func (fakeGit) Head(context.Context, string) (string, error) { return "", errors.New("no repo") }

// stubScheduler never has anything to observe.
type stubScheduler struct{}

func (stubScheduler) Update(observatory.Conditions) {}
func (stubScheduler) Request() (observatory.Observation, bool) {
	return observatory.Observation{}, false
}
func (stubScheduler) AddObservation(observatory.Observation) {}
func (stubScheduler) Snapshot() scheduler.Snapshot           { return scheduler.Snapshot{} }

// recorder captures what GenScheduler hands to its collaborators.
type recorder struct {
	factoryNside int
	factoryOpts  scheduler.FactoryOptions
	factoryErr   error
	runErr       error

	ran    bool
	params RunParams
}

func (r *recorder) deps() Deps {
	return Deps{
		Factory: func(_ context.Context, opts scheduler.FactoryOptions) (int, scheduler.CoreScheduler, error) {
			r.factoryOpts = opts
			if r.factoryErr != nil {
				return 0, nil, r.factoryErr
			}
			return r.factoryNside, stubScheduler{}, nil
		},
		Run: func(_ context.Context, s scheduler.CoreScheduler, p RunParams) (*observatory.Model, scheduler.CoreScheduler, []observatory.Observation, error) {
			r.ran = true
			r.params = p
			return nil, s, nil, r.runErr
		},
		RunInfo: runinfo.Options{
			Args:       []string{"/opt/runs/baseline.py", "--no_too"},
			Git:        fakeGit{},
			Executable: os.Executable,
		},
	}
}

func TestGenSchedulerNoToO(t *testing.T) {
	rec := &recorder{factoryNside: 32}
	args := DefaultArgs()
	args.NoToO = true

	res, err := GenScheduler(context.Background(), args, rec.deps())
	if err != nil {
		t.Fatalf("GenScheduler: %v", err)
	}
	if !rec.ran {
		t.Fatal("runner not called")
	}
	if rec.params.EventTable != nil {
		t.Errorf("event table = %d events, want nil", len(rec.params.EventTable))
	}
	if rec.params.ToOs != nil {
		t.Error("ToO injector is not nil")
	}
	if res.EventCount != 0 {
		t.Errorf("EventCount = %d, want 0", res.EventCount)
	}
}

func TestGenSchedulerWithToO(t *testing.T) {
	rec := &recorder{factoryNside: 32}
	if _, err := GenScheduler(context.Background(), DefaultArgs(), rec.deps()); err != nil {
		t.Fatalf("GenScheduler: %v", err)
	}
	if len(rec.params.EventTable) == 0 {
		t.Fatal("no ToO events generated")
	}
	if rec.params.ToOs.Len() != len(rec.params.EventTable) {
		t.Errorf("injector holds %d events, table %d", rec.params.ToOs.Len(), len(rec.params.EventTable))
	}
	for _, e := range rec.params.EventTable {
		if e.MJDStart < SurveyStartMJD {
			t.Fatalf("event %d starts at %.2f, before the survey", e.ID, e.MJDStart)
		}
	}
}

func TestGenSchedulerParams(t *testing.T) {
	rec := &recorder{factoryNside: 16}
	args := DefaultArgs()
	args.NoToO = true
	args.DBRoot = "baseline"
	args.OutDir = "out"
	args.MJDPlus = 2
	args.SplitLong = true
	args.Footprint = "smallfp2"
	args.SnapshotDir = "snaps"

	res, err := GenScheduler(context.Background(), args, rec.deps())
	if err != nil {
		t.Fatalf("GenScheduler: %v", err)
	}

	want := filepath.Join("out", "baseline_v5.1.0_") + "10yrs.db"
	if rec.params.Filename != want || res.Filename != want {
		t.Errorf("filename = %q (result %q), want %q", rec.params.Filename, res.Filename, want)
	}
	if rec.params.SurveyStartMJD != SurveyStartMJD+2 {
		t.Errorf("start = %v, want %v", rec.params.SurveyStartMJD, SurveyStartMJD+2)
	}
	if rec.params.Nside != 16 {
		t.Errorf("nside = %d, want the factory's 16", rec.params.Nside)
	}
	if rec.factoryOpts.Nside != 32 || !rec.factoryOpts.SplitLong || rec.factoryOpts.Footprint != "smallfp2" {
		t.Errorf("factory options = %+v", rec.factoryOpts)
	}
	if rec.params.IllumLimit != 40 || rec.params.ReadTime != 3.07 || rec.params.BandChangeTime != 140 || rec.params.TMAPercent != 40 {
		t.Errorf("run params = %+v", rec.params)
	}
	if rec.params.SnapshotDir != "snaps" {
		t.Errorf("snapshot dir = %q", rec.params.SnapshotDir)
	}
	if got := rec.params.ExtraInfo[runinfo.KeyGitHash]; got != runinfo.NotInGitRepo {
		t.Errorf("git hash = %q", got)
	}
	if got := rec.params.ExtraInfo[runinfo.KeyExecCommand]; got != "/opt/runs/baseline.py --no_too" {
		t.Errorf("exec command = %q", got)
	}
}

func TestGenSchedulerSetupOnly(t *testing.T) {
	rec := &recorder{factoryNside: 32}
	args := DefaultArgs()
	args.SetupOnly = true
	args.NoToO = true

	res, err := GenScheduler(context.Background(), args, rec.deps())
	if err != nil {
		t.Fatalf("GenScheduler: %v", err)
	}
	if rec.ran {
		t.Error("runner called with setup only")
	}
	if res.Scheduler == nil || res.Nside != 32 {
		t.Errorf("result = %+v, want scheduler and nside", res)
	}
	if res.Filename != "" || res.Observations != nil {
		t.Errorf("setup only produced run output: %+v", res)
	}
}

func TestGenSchedulerErrors(t *testing.T) {
	errFactory := errors.New("factory broke")
	errRun := errors.New("runner broke")

	rec := &recorder{factoryErr: errFactory}
	if _, err := GenScheduler(context.Background(), DefaultArgs(), rec.deps()); err != errFactory {
		t.Errorf("factory failure: err = %v, want it unchanged", err)
	}
	if rec.ran {
		t.Error("runner called after factory failure")
	}

	rec = &recorder{factoryNside: 32, runErr: errRun}
	args := DefaultArgs()
	args.NoToO = true
	if _, err := GenScheduler(context.Background(), args, rec.deps()); err != errRun {
		t.Errorf("runner failure: err = %v, want it unchanged", err)
	}
}

func TestRunSched(t *testing.T) {
	n := healpix.Nside2Npix(4)
	maps := &footprint.Maps{Nside: 4, Labels: make([]string, n), Weights: make([]footprint.Weights, n)}
	for i := range maps.Labels {
		maps.Labels[i] = "lowdust"
		maps.Weights[i] = footprint.Weights{1, 1, 1, 1, 1, 1}
	}
	sched, err := scheduler.NewFootprintScheduler(maps, scheduler.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	table, injector := too.Generate(0, 4, too.DefaultGenOptions())
	p := DefaultRunParams()
	p.Nside = 4
	p.SurveyLength = 0.05
	p.EventTable = table
	p.ToOs = injector

	model, got, obs, err := RunSched(context.Background(), sched, p)
	if err != nil {
		t.Fatalf("RunSched: %v", err)
	}
	if got != sched {
		t.Error("RunSched returned a different scheduler")
	}
	if len(obs) == 0 {
		t.Fatal("no observations in a night-time hour")
	}
	if model.Telescope() != observatory.TMAMovement(40) {
		t.Errorf("telescope = %+v, want 40%% TMA", model.Telescope())
	}
	if c := model.Camera(); c.BandChangeTime != 140 || c.ReadTime != 3.07 {
		t.Errorf("camera = %+v", c)
	}
	if model.Nside() != 4 || model.MJDStart() != SurveyStartMJD {
		t.Errorf("model nside %d start %v", model.Nside(), model.MJDStart())
	}
}

func TestRunSchedNilInjector(t *testing.T) {
	p := DefaultRunParams()
	p.Nside = 4
	p.SurveyLength = 0.01
	model, _, _, err := RunSched(context.Background(), stubScheduler{}, p)
	if err != nil {
		t.Fatalf("RunSched: %v", err)
	}
	if active := model.Conditions().ActiveToOs; active != nil {
		t.Errorf("active ToOs = %v, want none", active)
	}
}
