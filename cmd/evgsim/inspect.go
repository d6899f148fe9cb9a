package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/evgsim/loader"
	"github.com/sarchlab/evgsim/report"
	"github.com/sarchlab/evgsim/timing/gpu"
)

func newInspectCmd() *cobra.Command {
	var flags gpuFlags

	cmd := &cobra.Command{
		Use:   "inspect <kernel.json>",
		Short: "Print the program and the occupancy of a kernel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			kernel, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			r, err := kernel.NDRange(cfg.WavefrontSize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report.PrintProgram(out, kernel.Name, kernel.Program)
			_, _ = fmt.Fprintf(out, "\nWork-groups:             %d\n", len(r.WorkGroups))
			_, _ = fmt.Fprintf(out, "Wavefronts per group:    %d\n", r.WavefrontsPerWorkGroup())
			_, _ = fmt.Fprintf(out, "Registers per work-item: %d\n", r.RegistersPerWorkItem)
			_, _ = fmt.Fprintf(out, "Work-groups per CU:      %d\n", gpu.WorkGroupsPerCU(cfg, r))
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
