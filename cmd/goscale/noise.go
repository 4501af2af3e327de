package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/goscale/pkg/scale"
)

func noiseCommand(g *globals) *cobra.Command {
	var (
		samples  int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "noise",
		Short: "Measure raw reading noise with a constant load",
		Long: `noise takes a series of raw readings without processing them and reports
their spread. Use it with an empty or constant load to choose window
capacities and the deadband.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Scale.ReadInterval
			}

			dev, _, err := openDevice(cfg)
			if err != nil {
				return err
			}
			defer dev.Close()

			slog.Info("measuring noise", "samples", samples, "interval", interval)
			n, err := scale.MeasureNoise(cmd.Context(), dev, samples, interval)
			if err != nil {
				return err
			}
			return printNoise(cmd.OutOrStdout(), n, cfg.Scale.ScaleFactor)
		},
	}

	cmd.Flags().IntVarP(&samples, "samples", "n", 100, "number of readings to take")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 100*time.Millisecond, "spacing between readings (defaults to scale.read_interval)")
	return cmd
}

func printNoise(out io.Writer, n scale.Noise, scaleFactor float32) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "samples\t%d\t\n", n.Samples)
	fmt.Fprintf(w, "failures\t%d\t\n", n.Failures)
	fmt.Fprintf(w, "mean\t%.1f\t\n", n.Mean)
	fmt.Fprintf(w, "std dev\t%.2f\t\n", n.StdDev)
	fmt.Fprintf(w, "min\t%.0f\t\n", n.Min)
	fmt.Fprintf(w, "max\t%.0f\t\n", n.Max)
	fmt.Fprintf(w, "peak to peak\t%.0f\t\n", n.PeakToPeak())
	if scaleFactor != 0 {
		fmt.Fprintf(w, "std dev (weight)\t%.3f\t\n", n.Weight(scaleFactor))
	}
	return w.Flush()
}
