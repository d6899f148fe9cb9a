package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/sarchlab/evgsim/loader"
	"github.com/sarchlab/evgsim/report"
	"github.com/sarchlab/evgsim/timing/gpu"
)

// errStalled is returned when the simulation stopped making progress, so
// that scripts can tell a stall from a completed run.
var errStalled = errors.New("simulation stalled")

type runFlags struct {
	gpu        gpuFlags
	verbose    bool
	trace      bool
	perCU      bool
	sqlite     string
	cpuProfile string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <kernel.json>",
		Short: "Simulate a kernel",
		Long: `Simulate a kernel described by a JSON file and print the statistics of
the run. The simulation stops when all work-groups finished, when the cycle
limit is reached, or when no compute unit makes progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(cmd, args[0], &f)
		},
	}

	f.gpu.register(cmd)
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false,
		"Log device events to stderr")
	cmd.Flags().BoolVar(&f.trace, "trace", false,
		"Log every uop fetch and retirement (implies -v)")
	cmd.Flags().BoolVar(&f.perCU, "per-cu", false,
		"Print statistics of every compute unit")
	cmd.Flags().StringVar(&f.sqlite, "sqlite", "",
		"Store the statistics in the named SQLite database")
	cmd.Flags().StringVar(&f.cpuProfile, "cpuprofile", "",
		"Write a CPU profile to file")

	return cmd
}

func runKernel(cmd *cobra.Command, path string, f *runFlags) error {
	cfg, err := f.gpu.load()
	if err != nil {
		return err
	}

	kernel, err := loader.Load(path)
	if err != nil {
		return err
	}

	r, err := kernel.NDRange(cfg.WavefrontSize)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if f.verbose || f.trace {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level}))

	opts := []gpu.Option{gpu.WithLogger(logger)}
	if f.trace {
		opts = append(opts, gpu.WithHook(report.NewUopTracer(logger, slog.LevelDebug)))
	}

	d, err := gpu.NewDevice(cfg, opts...)
	if err != nil {
		return err
	}

	if f.cpuProfile != "" {
		pf, err := os.Create(f.cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer func() { _ = pf.Close() }()

		if err := pprof.StartCPUProfile(pf); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	res, err := d.Run(r)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.PrintSummary(out, kernel.Name, res)
	if f.perCU {
		report.PrintPerCU(out, res)
	}

	if f.sqlite != "" {
		if err := storeResult(f.sqlite, kernel.Name, res); err != nil {
			return err
		}
	}

	if res.Reason == gpu.TerminationStalled {
		return errStalled
	}
	return nil
}

func storeResult(name, kernel string, res *gpu.Result) error {
	w := report.NewSQLiteWriter(name)
	if err := w.Init(); err != nil {
		_ = w.Close()
		return err
	}

	if _, err := w.WriteResult(kernel, res); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
