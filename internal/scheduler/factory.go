package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/metrics"
)

// FactoryOptions selects the scheduler configuration.
type FactoryOptions struct {
	Nside     int
	Footprint string // built-in variant name or YAML path
	SplitLong bool
	Logger    *slog.Logger
}

// Factory builds the baseline scheduler and reports the resolution it runs at.
func Factory(ctx context.Context, opts FactoryOptions) (int, CoreScheduler, error) {
	nside := opts.Nside
	if nside == 0 {
		nside = healpix.DefaultNside
	}
	name := opts.Footprint
	if name == "" {
		name = "current"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v, err := footprint.Build(ctx, name, footprint.WithNside(nside), footprint.WithLogger(logger))
	if err != nil {
		return 0, nil, fmt.Errorf("building footprint: %w", err)
	}
	maps, err := v.Maps()
	if err != nil {
		return 0, nil, fmt.Errorf("painting footprint %s: %w", v.Name, err)
	}
	metrics.SetFootprintPixels(v.Name, maps.Counts())

	so := DefaultOptions()
	so.SplitLong = opts.SplitLong
	so.Logger = logger
	sched, err := NewFootprintScheduler(maps, so)
	if err != nil {
		return 0, nil, err
	}

	logger.Info("scheduler ready", "footprint", v.Name, "nside", nside, "split_long", opts.SplitLong)
	return nside, sched, nil
}
