// Package baseline assembles and launches a baseline survey simulation: ToO
// events, provenance, the scheduler, the observatory and the simulation loop.
package baseline

import (
	"context"
	"log/slog"

	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/health"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/runinfo"
	"github.com/star/surveyruns/internal/scheduler"
	"github.com/star/surveyruns/internal/simrunner"
	"github.com/star/surveyruns/internal/too"
	"github.com/star/surveyruns/internal/transform"
)

const (
	// FileEnd is the version suffix of output database names.
	FileEnd = "v5.1.0_"
	// SurveyStartMJD is the nominal survey start.
	SurveyStartMJD = 60796.0
	// ToOScale multiplies the nominal ToO event rates.
	ToOScale = 1.0

	DefaultSurveyLength   = 3652.5 // days
	DefaultIllumLimit     = 40.0   // percent
	DefaultReadTime       = 3.07   // seconds
	DefaultBandChangeTime = 140.0  // seconds
	DefaultTMAPercent     = 40.0
)

// RunParams configures RunSched.
type RunParams struct {
	SurveyLength     float64 // days
	Nside            int
	Filename         string
	Verbose          bool
	ExtraInfo        map[string]string
	IllumLimit       float64
	SurveyStartMJD   float64
	EventTable       too.EventTable
	ToOs             *too.Injector
	SnapshotDir      string
	SnapshotMaxFiles int
	ReadTime         float64
	BandChangeTime   float64
	TMAPercent       float64
	Status           *health.Status
	Logger           *slog.Logger
}

// DefaultRunParams returns the baseline settings for a one year run.
func DefaultRunParams() RunParams {
	return RunParams{
		SurveyLength:   365.25,
		Nside:          healpix.DefaultNside,
		IllumLimit:     DefaultIllumLimit,
		SurveyStartMJD: SurveyStartMJD,
		ReadTime:       DefaultReadTime,
		BandChangeTime: DefaultBandChangeTime,
		TMAPercent:     DefaultTMAPercent,
	}
}

// RunSched builds the observatory for p and simulates sched on it. Errors
// from the simulation loop are returned unchanged.
func RunSched(ctx context.Context, sched scheduler.CoreScheduler, p RunParams) (*observatory.Model, scheduler.CoreScheduler, []observatory.Observation, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// A nil *too.Injector must not become a non-nil interface.
	var toos observatory.ToOSource
	if p.ToOs != nil {
		toos = p.ToOs
		logger.Debug("ToO injector attached", "events", p.ToOs.Len())
	}

	obsModel := observatory.New(transform.RubinSite, p.Nside, p.SurveyStartMJD, toos, logger)
	obsModel.SetupTelescope(observatory.TMAMovement(p.TMAPercent))
	obsModel.SetupCamera(p.BandChangeTime, p.ReadTime)

	observations, err := simrunner.Run(ctx, obsModel, sched, simrunner.Options{
		Duration:         p.SurveyLength,
		Filename:         p.Filename,
		DeletePast:       true,
		Verbose:          p.Verbose,
		ExtraInfo:        p.ExtraInfo,
		BandScheduler:    observatory.SimpleBandScheduler{IllumLimit: p.IllumLimit},
		EventTable:       p.EventTable,
		SnapshotDir:      p.SnapshotDir,
		SnapshotMaxFiles: p.SnapshotMaxFiles,
		Status:           p.Status,
		Logger:           logger,
	})
	return obsModel, sched, observations, err
}

// Args are the command-line settings of a run.
type Args struct {
	Verbose      bool
	SurveyLength float64 // days
	OutDir       string
	DBRoot       string
	SetupOnly    bool
	Nside        int
	MJDPlus      float64 // days added to the survey start
	SplitLong    bool
	SnapshotDir  string
	NoToO        bool
	Footprint    string
}

// DefaultArgs returns the command-line defaults.
func DefaultArgs() Args {
	return Args{
		SurveyLength: DefaultSurveyLength,
		Nside:        healpix.DefaultNside,
		Footprint:    "current",
	}
}

// SchedulerFactory builds a scheduler and reports its resolution.
type SchedulerFactory func(ctx context.Context, opts scheduler.FactoryOptions) (int, scheduler.CoreScheduler, error)

// Runner runs a scheduler; RunSched is the production implementation.
type Runner func(ctx context.Context, sched scheduler.CoreScheduler, p RunParams) (*observatory.Model, scheduler.CoreScheduler, []observatory.Observation, error)

// Deps are the collaborators GenScheduler uses. Zero values select the
// production implementations.
type Deps struct {
	Factory          SchedulerFactory
	Run              Runner
	RunInfo          runinfo.Options // DBRoot, FileEnd and OutDir are taken from Args
	SnapshotMaxFiles int
	TMAPercent       float64
	Status           *health.Status
	Logger           *slog.Logger
}

// Result is what GenScheduler produced. With SetupOnly only Scheduler,
// Nside and Info are set.
type Result struct {
	Observatory  *observatory.Model
	Scheduler    scheduler.CoreScheduler
	Observations []observatory.Observation
	Nside        int
	Filename     string
	Info         runinfo.Info
	EventCount   int
}

// GenScheduler runs the baseline flow: generate ToO events unless disabled,
// capture provenance, build the scheduler and simulate.
func GenScheduler(ctx context.Context, args Args, deps Deps) (*Result, error) {
	factory := deps.Factory
	if factory == nil {
		factory = scheduler.Factory
	}
	run := deps.Run
	if run == nil {
		run = RunSched
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tmaPercent := deps.TMAPercent
	if tmaPercent == 0 {
		tmaPercent = DefaultTMAPercent
	}

	start := SurveyStartMJD + args.MJDPlus

	var (
		eventTable too.EventTable
		injector   *too.Injector
	)
	if !args.NoToO {
		gen := too.DefaultGenOptions()
		gen.MJDStart = start
		gen.Years = args.SurveyLength / 365.25
		eventTable, injector = too.Generate(ToOScale, args.Nside, gen)
		logger.Info("generated ToO events", "count", len(eventTable), "scale", ToOScale)
	}

	riOpts := deps.RunInfo
	riOpts.DBRoot = args.DBRoot
	riOpts.FileEnd = FileEnd
	riOpts.OutDir = args.OutDir
	if riOpts.Logger == nil {
		riOpts.Logger = logger
	}
	fileroot, info := runinfo.SetRunInfo(ctx, riOpts)

	nside, sched, err := factory(ctx, scheduler.FactoryOptions{
		Nside:     args.Nside,
		Footprint: args.Footprint,
		SplitLong: args.SplitLong,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Scheduler: sched, Nside: nside, Info: info, EventCount: len(eventTable)}
	if args.SetupOnly {
		logger.Info("setup only, not simulating", "nside", nside)
		return res, nil
	}

	years := runinfo.Years(args.SurveyLength)
	res.Filename = runinfo.DBFilename(fileroot, years)

	p := RunParams{
		SurveyLength:     args.SurveyLength,
		Nside:            nside,
		Filename:         res.Filename,
		Verbose:          args.Verbose,
		ExtraInfo:        info,
		IllumLimit:       DefaultIllumLimit,
		SurveyStartMJD:   start,
		EventTable:       eventTable,
		ToOs:             injector,
		SnapshotDir:      args.SnapshotDir,
		SnapshotMaxFiles: deps.SnapshotMaxFiles,
		ReadTime:         DefaultReadTime,
		BandChangeTime:   DefaultBandChangeTime,
		TMAPercent:       tmaPercent,
		Status:           deps.Status,
		Logger:           logger,
	}
	res.Observatory, res.Scheduler, res.Observations, err = run(ctx, sched, p)
	if err != nil {
		return res, err
	}
	return res, nil
}
