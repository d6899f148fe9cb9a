// Package main provides the evgsim command line tool.
//
// Usage:
//
//	evgsim run kernels/vector_add.json
//	evgsim run -v --policy greedy --sqlite stats kernels/lds_reduce.json
//	evgsim bench --csv
//	evgsim inspect kernels/lds_reduce.json
//	evgsim config > gpu.json
package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "evgsim",
		Short: "EvgSim is a cycle-level timing simulator for Evergreen-class GPUs.",
		Long: `EvgSim simulates the compute units of an Evergreen-class GPU cycle by
cycle. Kernels are described in JSON, the simulated GPU is configured with a
JSON file, and statistics can be printed or stored in a SQLite database.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newInspectCmd())

	return root
}
