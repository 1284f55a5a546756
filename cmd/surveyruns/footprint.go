package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/star/surveyruns/internal/footprint"
	"github.com/star/surveyruns/internal/healpix"
	"github.com/star/surveyruns/internal/metrics"
)

func newFootprintCmd() *cobra.Command {
	var (
		nside   int
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "footprint VARIANT [OTHER]",
		Short: "Print per-region pixel counts of a footprint, or the diff between two",
		Long: `Builds a footprint variant (current, smallfp1, smallfp2 or a YAML file) and
prints how many pixels each region claimed. With a second variant, also prints
how many pixels changed region between the two.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), verbose)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			opts := []footprint.Option{footprint.WithNside(nside), footprint.WithLogger(logger)}

			first, err := buildMaps(ctx, args[0], opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printCounts(out, args[0], first)
			if err := printBandWeights(out, first); err != nil {
				return err
			}

			if len(args) == 1 {
				return nil
			}
			second, err := buildMaps(ctx, args[1], opts)
			if err != nil {
				return err
			}
			printCounts(out, args[1], second)

			changes, err := footprint.Diff(first, second)
			if err != nil {
				return err
			}
			printTransitions(out, args[0], args[1], changes)
			return nil
		},
	}
	cmd.Flags().IntVar(&nside, "nside", healpix.DefaultNside, "HEALPix resolution")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log build details")
	return cmd
}

func buildMaps(ctx context.Context, name string, opts []footprint.Option) (*footprint.Maps, error) {
	v, err := footprint.Build(ctx, name, opts...)
	if err != nil {
		return nil, err
	}
	maps, err := v.Maps()
	if err != nil {
		return nil, fmt.Errorf("painting %s: %w", v.Name, err)
	}
	metrics.SetFootprintPixels(v.Name, maps.Counts())
	return maps, nil
}

func printCounts(w io.Writer, name string, maps *footprint.Maps) {
	counts := maps.Counts()
	area := healpix.PixelArea(maps.Nside)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s (nside %d)\tpixels\tdeg2\t\n", name, maps.Nside)
	for _, r := range footprint.PaintOrder {
		n := counts[r.Label()]
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t\n", r.Label(), n, float64(n)*area)
	}
	fmt.Fprintf(tw, "%s\t%d\t%.0f\t\n", "(none)", counts[""], float64(counts[""])*area)
	tw.Flush()
	fmt.Fprintln(w)
}

// printBandWeights lists how many pixels each band is scheduled in and their
// summed target weight.
func printBandWeights(w io.Writer, maps *footprint.Maps) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "band\tpixels\tweight\t\n")
	for _, b := range footprint.Bands {
		weights, err := maps.Band(b)
		if err != nil {
			return err
		}
		var n int
		var sum float64
		for _, v := range weights {
			if v > 0 {
				n++
				sum += v
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t\n", b, n, sum)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func printTransitions(w io.Writer, a, b string, changes []footprint.PixelChange) {
	fmt.Fprintf(w, "%s -> %s: %d pixels changed\n", a, b, len(changes))
	trans := footprint.Transitions(changes)
	keys := make([]string, 0, len(trans))
	for k := range trans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, trans[k])
	}
}
