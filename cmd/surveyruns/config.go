package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/star/surveyruns/internal/baseline"
	"github.com/star/surveyruns/internal/snapshot"
)

// runConfig holds the settings that come from the environment rather than
// flags.
type runConfig struct {
	SchedulerRepo    string
	MetricsAddr      string
	SnapshotMaxFiles int
	TMAPercent       float64
}

func loadRunConfig(logger *slog.Logger) runConfig {
	cfg := runConfig{
		SnapshotMaxFiles: snapshot.DefaultMaxFiles,
		TMAPercent:       baseline.DefaultTMAPercent,
	}

	cfg.SchedulerRepo = os.Getenv("SURVEYRUNS_SCHEDULER_REPO")
	cfg.MetricsAddr = os.Getenv("SURVEYRUNS_METRICS_ADDR")

	if v := os.Getenv("SURVEYRUNS_SNAPSHOT_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SURVEYRUNS_SNAPSHOT_MAX_FILES value, using default", "value", v, "default", cfg.SnapshotMaxFiles)
		} else {
			cfg.SnapshotMaxFiles = n
		}
	}

	if v := os.Getenv("SURVEYRUNS_TMA_PERCENT"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p <= 0 || p > 125 {
			logger.Warn("invalid SURVEYRUNS_TMA_PERCENT value, using default", "value", v, "default", cfg.TMAPercent)
		} else {
			cfg.TMAPercent = p
		}
	}

	logger.Info("run config",
		"scheduler_repo", cfg.SchedulerRepo,
		"metrics_addr", cfg.MetricsAddr,
		"snapshot_max_files", cfg.SnapshotMaxFiles,
		"tma_percent", cfg.TMAPercent,
	)

	return cfg
}
