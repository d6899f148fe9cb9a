package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/evgsim/timing/config"
)

// gpuFlags are the device options shared by the run and bench commands.
type gpuFlags struct {
	configPath string
	policy     string
	numCUs     int
	maxCycles  int
}

func (f *gpuFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "",
		"Path to GPU configuration JSON file")
	cmd.Flags().StringVar(&f.policy, "policy", "",
		"Wavefront scheduling policy (round-robin or greedy)")
	cmd.Flags().IntVar(&f.numCUs, "cus", 0,
		"Number of compute units (0 keeps the configured value)")
	cmd.Flags().IntVar(&f.maxCycles, "max-cycles", 0,
		"Stop the simulation after this many cycles (0 keeps the configured value)")
}

// load builds the device configuration from the file and the overrides.
func (f *gpuFlags) load() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
	}

	if f.policy != "" {
		cfg.SchedulingPolicy = config.SchedulingPolicy(f.policy)
	}
	if f.numCUs > 0 {
		cfg.NumComputeUnits = f.numCUs
	}
	if f.maxCycles > 0 {
		cfg.MaxCycles = f.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default GPU configuration",
		Long: `Print the default GPU configuration as JSON. The output can be edited
and passed back to run or bench with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if output != "" {
				return cfg.SaveConfig(output)
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize config: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the configuration to a file instead of stdout")

	return cmd
}
