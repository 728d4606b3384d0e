package cmd

import (
	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/benchmark"
	"github.com/unclesp1d3r/meshcrack/lib/display"
)

var (
	benchmarkLength  int //nolint:gochecknoglobals // Cobra flag target
	benchmarkBatches int //nolint:gochecknoglobals // Cobra flag target
)

// benchmarkCmd measures the accelerator's brute-force throughput.
var benchmarkCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "benchmark",
	Short: "Measure accelerator throughput",
	Long:  "Measure how many room names per second the accelerator filters.\nResults are cached per device; use --force to measure again.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		manager := benchmark.NewManager(accel.NewExecutor(accel.ConfigFromState()))

		result, cached, err := manager.Run(cmd.Context(), benchmarkLength, benchmarkBatches)
		if err != nil {
			return err
		}

		display.Benchmark(result, cached)

		return nil
	},
}

func init() {
	flags := benchmarkCmd.Flags()
	flags.IntVar(&benchmarkLength, "length", benchmark.DefaultLength, "Room-name length to enumerate")
	flags.IntVar(&benchmarkBatches, "batches", benchmark.DefaultBatches, "Number of batches to time")
	flags.Bool("force", false, "Ignore cached results")

	bindLocalFlag(benchmarkCmd, "force_benchmark", "force")
}
