// Package benchmarks provides the kernel benchmark harness for EvgSim
// calibration.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/gpu"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Termination is Finished, MaxCycles, or Stalled
	Termination string `json:"termination"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// Instructions counts CF, ALU, and fetch instructions
	Instructions uint64 `json:"instructions"`

	// IPC is instructions per cycle across the device
	IPC float64 `json:"ipc"`

	ALUBundles      uint64  `json:"alu_bundles"`
	VLIWUtilization float64 `json:"vliw_utilization"`

	// Stall counters summed over compute units
	ALUDepStalls    uint64 `json:"alu_dep_stalls"`
	LDSStalls       uint64 `json:"lds_stalls"`
	LoadQueueStalls uint64 `json:"load_queue_stalls"`
	GlobalMemStalls uint64 `json:"global_mem_stalls"`

	L1Hits   uint64 `json:"l1_hits"`
	L1Misses uint64 `json:"l1_misses"`
	L2Hits   uint64 `json:"l2_hits"`
	L2Misses uint64 `json:"l2_misses"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`

	// HostRSS is the resident memory of the simulator process after the
	// run, 0 if it cannot be read.
	HostRSS uint64 `json:"host_rss_bytes"`
}

// Benchmark defines a single benchmark kernel.
type Benchmark struct {
	Name        string
	Description string

	Program    *insts.Program
	GlobalSize int
	LocalSize  int

	LocalMemPerWorkGroup int
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Config is the simulated GPU. Nil selects config.DefaultConfig.
	Config *config.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints every result as soon as it is available
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Config: config.DefaultConfig(),
		Output: os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(cfg HarnessConfig) *Harness {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Config == nil {
		cfg.Config = config.DefaultConfig()
	}
	return &Harness{
		config:     cfg,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. It stops at the first
// benchmark that cannot be launched.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %d cycles, IPC %.3f (%s)\n",
				result.Name, result.SimulatedCycles, result.IPC, result.Termination)
		}
	}

	return results, nil
}

// runBenchmark simulates a single benchmark on a fresh device.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	d, err := gpu.NewDevice(h.config.Config)
	if err != nil {
		return BenchmarkResult{}, err
	}

	var opts []emu.NDRangeOption
	if bench.LocalMemPerWorkGroup > 0 {
		opts = append(opts, emu.WithLocalMemPerWorkGroup(bench.LocalMemPerWorkGroup))
	}
	r, err := emu.NewNDRange(bench.Program, bench.GlobalSize, bench.LocalSize,
		h.config.Config.WavefrontSize, opts...)
	if err != nil {
		return BenchmarkResult{}, err
	}

	start := time.Now()
	res, err := d.Run(r)
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	s := res.Stats
	t := s.Total
	return BenchmarkResult{
		Name:            bench.Name,
		Description:     bench.Description,
		Termination:     res.Reason.String(),
		SimulatedCycles: res.Cycles,
		Instructions:    t.Instructions(),
		IPC:             s.IPC(),
		ALUBundles:      t.ALUBundles,
		VLIWUtilization: t.VLIWUtilization(),
		ALUDepStalls:    t.ALUDepStalls,
		LDSStalls:       t.LDSReadStalls + t.LDSWriteStalls,
		LoadQueueStalls: t.TEXLoadQueueStalls,
		GlobalMemStalls: t.GlobalMemReadStalls + t.GlobalMemWriteStalls,
		L1Hits:          s.L1.Hits,
		L1Misses:        s.L1.Misses,
		L2Hits:          s.L2.Hits,
		L2Misses:        s.L2.Misses,
		WallTime:        wallTime,
		HostRSS:         hostRSS(),
	}, nil
}

// hostRSS returns the resident set size of the current process.
func hostRSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return 0
	}
	return mem.RSS
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== EvgSim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Termination: %s\n", r.Termination)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:  %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions:      %d\n", r.Instructions)
		_, _ = fmt.Fprintf(h.config.Output, "  IPC:               %.3f\n", r.IPC)
		_, _ = fmt.Fprintf(h.config.Output, "  ALU Bundles:       %d\n", r.ALUBundles)
		_, _ = fmt.Fprintf(h.config.Output, "  VLIW Utilization:  %.1f%%\n", 100*r.VLIWUtilization)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Stalls ---")
		_, _ = fmt.Fprintf(h.config.Output, "  ALU Dependence:    %d\n", r.ALUDepStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  LDS:               %d\n", r.LDSStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Load Queue:        %d\n", r.LoadQueueStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Global Memory:     %d\n", r.GlobalMemStalls)

		if r.L1Hits > 0 || r.L1Misses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- L1 ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.L1Hits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.L1Misses)
		}
		if r.L2Hits > 0 || r.L2Misses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- L2 ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.L2Hits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.L2Misses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		if r.HostRSS > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Host RSS:  %.1f MiB\n",
				float64(r.HostRSS)/(1<<20))
		}
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,termination,cycles,instructions,ipc,alu_bundles,vliw_utilization,alu_dep_stalls,lds_stalls,load_queue_stalls,global_mem_stalls,l1_hits,l1_misses,l2_hits,l2_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Termination,
			r.SimulatedCycles,
			r.Instructions,
			r.IPC,
			r.ALUBundles,
			r.VLIWUtilization,
			r.ALUDepStalls,
			r.LDSStalls,
			r.LoadQueueStalls,
			r.GlobalMemStalls,
			r.L1Hits,
			r.L1Misses,
			r.L2Hits,
			r.L2Misses,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp string         `json:"timestamp"`
	Config    *config.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageIPC        float64       `json:"average_ipc"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.Instructions
		totalWallTime += r.WallTime
	}

	avgIPC := float64(0)
	if totalCycles > 0 {
		avgIPC = float64(totalInstructions) / float64(totalCycles)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config:    h.config.Config,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageIPC:        avgIPC,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
