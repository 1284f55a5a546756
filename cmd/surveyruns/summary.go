package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/obsdb"
	"github.com/star/surveyruns/internal/scheduler"
	"github.com/star/surveyruns/internal/snapshot"
)

func newSummaryCmd() *cobra.Command {
	var snapshotDir string
	cmd := &cobra.Command{
		Use:   "summary DBFILE",
		Short: "Print the provenance and visit counts of a finished run",
		Long: `Opens a simulation output database and prints its info table, the number of
visits and ToO events, and visits per band. With --snapshot_dir, also prints
the nights kept on disk and the latest scheduler snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := newLogger(cmd.ErrOrStderr(), false)

			db, err := obsdb.Open(ctx, args[0], logger)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if err := printRunSummary(ctx, out, db); err != nil {
				return err
			}
			if snapshotDir == "" {
				return nil
			}
			return printLatestSnapshot(out, snapshot.NewStore(snapshotDir, 0))
		},
	}
	cmd.Flags().StringVar(&snapshotDir, "snapshot_dir", "", "Scheduler snapshot directory of the run")
	return cmd
}

func printRunSummary(ctx context.Context, w io.Writer, db *obsdb.DB) error {
	info, err := db.Info(ctx)
	if err != nil {
		return fmt.Errorf("reading info: %w", err)
	}
	visits, err := db.CountObservations(ctx)
	if err != nil {
		return fmt.Errorf("counting visits: %w", err)
	}
	events, err := db.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	bands, err := db.BandCounts(ctx)
	if err != nil {
		return fmt.Errorf("counting bands: %w", err)
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", db.Path())
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, info[k])
	}
	fmt.Fprintf(tw, "  visits\t%d\n", visits)
	fmt.Fprintf(tw, "  too events\t%d\n", events)
	for _, b := range footprint.Bands {
		if n, ok := bands[b]; ok {
			fmt.Fprintf(tw, "  %s\t%d\n", b, n)
		}
	}
	return tw.Flush()
}

func printLatestSnapshot(w io.Writer, store *snapshot.Store) error {
	var snap scheduler.Snapshot
	night, err := store.LoadLatest(&snap)
	if errors.Is(err, snapshot.ErrNoSnapshots) {
		fmt.Fprintf(w, "no snapshots in %s\n", store.Dir())
		return nil
	}
	if err != nil {
		return err
	}
	nights, err := store.Nights()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "snapshots kept for nights %v\n", nights)
	fmt.Fprintf(w, "night %d: %d visits, ToOs done %d, pending %d\n",
		night, snap.Visits, len(snap.ToOsDone), len(snap.ToOsPending))
	return nil
}
