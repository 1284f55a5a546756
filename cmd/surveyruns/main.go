package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/star/surveyruns/internal/api"
	"github.com/star/surveyruns/internal/baseline"
	"github.com/star/surveyruns/internal/health"
	"github.com/star/surveyruns/internal/runinfo"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	args := baseline.DefaultArgs()
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "surveyruns",
		Short: "Configure and run a baseline survey scheduling simulation",
		Long: `Builds the baseline scheduler, the simulated observatory and the ToO event
table, then simulates the survey and writes the visits to
<out_dir>/<dbroot>_v5.1.0_<years>yrs.db.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd.Context(), cmd.OutOrStdout(), args, metricsAddr)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&args.Verbose, "verbose", false, "Print more output")
	f.Float64Var(&args.SurveyLength, "survey_length", args.SurveyLength, "Survey length in days")
	f.StringVar(&args.OutDir, "out_dir", "", "Output directory")
	f.StringVar(&args.DBRoot, "dbroot", "", "Database root")
	f.BoolVar(&args.SetupOnly, "setup_only", false, "Only construct scheduler, do not simulate")
	f.IntVar(&args.Nside, "nside", args.Nside, "Nside should be set to default (32) except for tests.")
	f.Float64Var(&args.MJDPlus, "mjd_plus", 0, "number of days to add to the mjd start")
	f.BoolVar(&args.SplitLong, "split_long", false, "Split long ToO exposures into standard visit lengths")
	f.StringVar(&args.SnapshotDir, "snapshot_dir", "", "Directory for scheduler snapshots.")
	f.BoolVar(&args.NoToO, "no_too", false, "Do not inject target-of-opportunity events")
	f.StringVar(&args.Footprint, "footprint", args.Footprint, "Footprint variant (current, smallfp1, smallfp2) or a YAML file")
	f.StringVar(&metricsAddr, "metrics_addr", "", "Serve status and metrics on this address while running")

	cmd.AddCommand(newFootprintCmd(), newSummaryCmd())
	return cmd
}

func runSimulation(ctx context.Context, out io.Writer, args baseline.Args, metricsAddr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(out, args.Verbose)
	cfg := loadRunConfig(logger)
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	// Stop cleanly on SIGINT/SIGTERM; visits observed so far are still written.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := health.NewStatus()
	if cfg.MetricsAddr != "" {
		srvCtx, cancel := context.WithCancel(context.Background())
		srv := api.NewServer(cfg.MetricsAddr, logger, status)
		errc, err := srv.Start(srvCtx)
		if err != nil {
			cancel()
			logger.Error("status server failed to start", "addr", cfg.MetricsAddr, "error", err)
			return err
		}
		defer func() {
			cancel()
			if err := <-errc; err != nil {
				logger.Error("status server error", "error", err)
			}
		}()
	}

	res, err := baseline.GenScheduler(ctx, args, baseline.Deps{
		RunInfo: runinfo.Options{
			SchedulerRepo: cfg.SchedulerRepo,
			Logger:        logger,
		},
		SnapshotMaxFiles: cfg.SnapshotMaxFiles,
		TMAPercent:       cfg.TMAPercent,
		Status:           status,
		Logger:           logger,
	})
	if err != nil {
		status.SetPhase(health.PhaseFailed)
		if errors.Is(err, context.Canceled) {
			visits := 0
			if res != nil {
				visits = len(res.Observations)
			}
			logger.Warn("simulation interrupted", "visits", visits)
		} else {
			logger.Error("simulation failed", "error", err)
		}
		return err
	}

	if args.SetupOnly {
		logger.Info("scheduler constructed", "nside", res.Nside, "run_id", res.Info[runinfo.KeyRunID])
		return nil
	}

	logger.Info("run complete",
		"filename", res.Filename,
		"visits", len(res.Observations),
		"too_events", res.EventCount,
		"run_id", res.Info[runinfo.KeyRunID],
	)
	return nil
}
