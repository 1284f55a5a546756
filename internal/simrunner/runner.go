// Package simrunner drives a scheduler against the simulated observatory
// night by night and records what was observed.
package simrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/surveyruns/internal/health"
	"github.com/star/surveyruns/internal/metrics"
	"github.com/star/surveyruns/internal/obsdb"
	"github.com/star/surveyruns/internal/observatory"
	"github.com/star/surveyruns/internal/scheduler"
	"github.com/star/surveyruns/internal/snapshot"
	"github.com/star/surveyruns/internal/too"
)

const (
	// idleStep is how far the clock moves when the scheduler has nothing to offer.
	idleStep = 300.0 // seconds
	// rejectStep is how far the clock moves after the observatory refuses a visit.
	rejectStep = 30.0 // seconds
	// defaultFlushEvery is the DB write batch size.
	defaultFlushEvery = 1000
)

// Options configures a run.
type Options struct {
	Duration         float64 // days of survey to simulate
	Filename         string  // output database; empty skips writing one
	DeletePast       bool    // replace an existing output database
	VisitLimit       int     // stop after this many visits; 0 means no limit
	Verbose          bool
	ExtraInfo        map[string]string
	BandScheduler    observatory.BandScheduler // nil keeps the mounted filters
	EventTable       too.EventTable
	SnapshotDir      string // empty disables nightly snapshots
	SnapshotMaxFiles int
	FlushEvery       int
	Status           *health.Status
	Logger           *slog.Logger
}

// Run simulates from the model's current time for opts.Duration days and
// returns the completed observations in execution order.
func Run(ctx context.Context, model *observatory.Model, sched scheduler.CoreScheduler, opts Options) ([]observatory.Observation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}
	progressLevel := slog.LevelDebug
	if opts.Verbose {
		progressLevel = slog.LevelInfo
	}

	var db *obsdb.DB
	if opts.Filename != "" {
		var err error
		db, err = obsdb.Create(ctx, opts.Filename, opts.DeletePast, logger)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.WriteInfo(ctx, opts.ExtraInfo); err != nil {
			return nil, fmt.Errorf("writing run info: %w", err)
		}
		if err := db.WriteEvents(ctx, opts.EventTable); err != nil {
			return nil, fmt.Errorf("writing ToO events: %w", err)
		}
		opts.Status.SetFilename(opts.Filename)
	}

	var snaps *snapshot.Store
	if opts.SnapshotDir != "" {
		snaps = snapshot.NewStore(opts.SnapshotDir, opts.SnapshotMaxFiles)
	}

	r := &run{
		model:  model,
		sched:  sched,
		db:     db,
		snaps:  snaps,
		logger: logger,
	}

	start := time.Now()
	end := model.MJD() + opts.Duration
	night := 0
	pending := 0
	logger.Info("simulation starting",
		"mjd_start", model.MJD(),
		"mjd_end", end,
		"filename", opts.Filename,
		"visit_limit", opts.VisitLimit,
	)
	opts.Status.SetPhase(health.PhaseRunning)

	for model.MJD() < end {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, pending, night)
			return r.observations, err
		}

		if !model.IsNight() {
			next, err := model.NextNightStart()
			if err != nil {
				return r.observations, err
			}
			if next >= end {
				break
			}
			model.AdvanceTo(next)
			continue
		}

		c := model.Conditions()
		if c.Night != night {
			if night > 0 {
				r.snapshot(night)
			}
			if opts.BandScheduler != nil {
				model.MountBands(opts.BandScheduler.Bands(c))
				c = model.Conditions()
			}
			logger.Log(ctx, progressLevel, "night start",
				"night", c.Night,
				"mjd", c.MJD,
				"bands", c.MountedBands,
				"moon_illum", c.MoonIllum,
				"visits", len(r.observations),
			)
			night = c.Night
		}

		sched.Update(c)
		req, ok := sched.Request()
		if !ok {
			model.Advance(idleStep)
			metrics.AddIdle(idleStep)
			continue
		}

		obs, err := model.Observe(req)
		if errors.Is(err, observatory.ErrNotObservable) || errors.Is(err, observatory.ErrBandNotMounted) {
			logger.Debug("visit rejected", "error", err, "note", req.Note)
			model.Advance(rejectStep)
			continue
		}
		if err != nil {
			return r.observations, fmt.Errorf("observing: %w", err)
		}

		sched.AddObservation(obs)
		r.observations = append(r.observations, obs)
		metrics.RecordVisit(obs.Band, obs.Note, obs.SlewTime)
		metrics.SetSimTime(obs.MJD, obs.Night)
		opts.Status.Update(obs.Night, obs.MJD, len(r.observations))

		pending++
		if pending >= flushEvery {
			if err := r.flush(ctx, pending); err != nil {
				return r.observations, err
			}
			pending = 0
		}

		if opts.VisitLimit > 0 && len(r.observations) >= opts.VisitLimit {
			logger.Info("visit limit reached", "visits", len(r.observations))
			break
		}
	}

	if err := r.finish(ctx, pending, night); err != nil {
		return r.observations, err
	}
	opts.Status.SetPhase(health.PhaseDone)

	logger.Info("simulation complete",
		"visits", len(r.observations),
		"nights", night,
		"mjd_end", model.MJD(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return r.observations, nil
}

type run struct {
	model        *observatory.Model
	sched        scheduler.CoreScheduler
	db           *obsdb.DB
	snaps        *snapshot.Store
	logger       *slog.Logger
	observations []observatory.Observation
}

// flush writes the last n observations to the database.
func (r *run) flush(ctx context.Context, n int) error {
	if r.db == nil || n == 0 {
		return nil
	}
	batch := r.observations[len(r.observations)-n:]
	if err := r.db.InsertObservations(ctx, batch); err != nil {
		return fmt.Errorf("writing observations: %w", err)
	}
	return nil
}

// finish flushes outstanding visits and snapshots the last night. It uses a
// fresh context so a cancelled run still keeps what it observed.
func (r *run) finish(ctx context.Context, pending, night int) error {
	writeCtx := context.WithoutCancel(ctx)
	if err := r.flush(writeCtx, pending); err != nil {
		return err
	}
	if night > 0 {
		r.snapshot(night)
	}
	return nil
}

// snapshot saves scheduler state; failures are logged and the run continues.
func (r *run) snapshot(night int) {
	if r.snaps == nil {
		return
	}
	if err := r.snaps.Write(night, r.sched.Snapshot()); err != nil {
		r.logger.Warn("snapshot failed", "night", night, "error", err)
	}
}
