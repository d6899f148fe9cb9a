package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/evgsim/benchmarks"
)

func newBenchCmd() *cobra.Command {
	var (
		gpu      gpuFlags
		csv      bool
		jsonOut  bool
		coreOnly bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the timing microbenchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gpu.load()
			if err != nil {
				return err
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Config:  cfg,
				Output:  cmd.OutOrStdout(),
				Verbose: verbose,
			})
			if coreOnly {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results, err := harness.RunAll()
			if err != nil {
				return err
			}

			switch {
			case jsonOut:
				return harness.PrintJSON(results)
			case csv:
				harness.PrintCSV(results)
			default:
				harness.PrintResults(results)
			}
			return nil
		},
	}

	gpu.register(cmd)
	cmd.Flags().BoolVar(&csv, "csv", false, "Output results in CSV format")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results in JSON format")
	cmd.Flags().BoolVar(&coreOnly, "core", false, "Run only the core benchmarks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Print each result as soon as it is available")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}
