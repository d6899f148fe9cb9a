// Package report turns simulation results into text summaries, SQLite
// databases, and uop traces.
package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/evgsim/timing/gpu"
)

// PrintSummary writes a human-readable summary of a kernel simulation.
func PrintSummary(w io.Writer, kernel string, res *gpu.Result) {
	s := res.Stats
	t := s.Total

	cycles := res.Cycles
	if cycles == 0 {
		cycles = 1
	}

	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Kernel: %s\n", kernel)
	_, _ = fmt.Fprintf(w, "Termination: %s\n", res.Reason)
	_, _ = fmt.Fprintf(w, "Total Cycles: %d\n", res.Cycles)
	_, _ = fmt.Fprintf(w, "Total Instructions: %d\n", t.Instructions())
	_, _ = fmt.Fprintf(w, "IPC: %.3f\n", s.IPC())
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Instructions:\n")
	_, _ = fmt.Fprintf(w, "  CF:          %d\n", t.CFInsts)
	_, _ = fmt.Fprintf(w, "  ALU bundles: %d (%d instructions, %.1f%% slot utilization)\n",
		t.ALUBundles, t.ALUInsts, 100*t.VLIWUtilization())
	_, _ = fmt.Fprintf(w, "  LDS:         %d\n", t.LDSInsts)
	_, _ = fmt.Fprintf(w, "  TEX:         %d\n", t.TEXInsts)
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Stalls:\n")
	_, _ = fmt.Fprintf(w, "  ALU dependence:  %8d (%5.1f%%)\n",
		t.ALUDepStalls, percent(t.ALUDepStalls, cycles))
	_, _ = fmt.Fprintf(w, "  ALU fetch queue: %8d (%5.1f%%)\n",
		t.ALUFetchStalls, percent(t.ALUFetchStalls, cycles))
	_, _ = fmt.Fprintf(w, "  LDS read/write:  %8d (%5.1f%%)\n",
		t.LDSReadStalls+t.LDSWriteStalls, percent(t.LDSReadStalls+t.LDSWriteStalls, cycles))
	_, _ = fmt.Fprintf(w, "  TEX load queue:  %8d (%5.1f%%)\n",
		t.TEXLoadQueueStalls, percent(t.TEXLoadQueueStalls, cycles))
	_, _ = fmt.Fprintf(w, "  Global memory:   %8d (%5.1f%%)\n",
		t.GlobalMemReadStalls+t.GlobalMemWriteStalls,
		percent(t.GlobalMemReadStalls+t.GlobalMemWriteStalls, cycles))
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Memory:\n")
	_, _ = fmt.Fprintf(w, "  Global reads:  %d\n", t.GlobalReads)
	_, _ = fmt.Fprintf(w, "  Global writes: %d\n", t.GlobalWrites)
	if s.L1.Reads+s.L1.Writes > 0 {
		_, _ = fmt.Fprintf(w, "  L1 hit rate:   %.1f%%\n", 100*s.L1.HitRate())
		_, _ = fmt.Fprintf(w, "  L2 hit rate:   %.1f%%\n", 100*s.L2.HitRate())
		_, _ = fmt.Fprintf(w, "  DRAM accesses: %d\n", s.Memory.DRAMAccesses)
	}
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Work-groups: %d mapped, %d unmapped\n",
		t.MappedWorkGroups, t.UnmappedWorkGroups)
}

// PrintPerCU writes one line of counters per compute unit.
func PrintPerCU(w io.Writer, res *gpu.Result) {
	_, _ = fmt.Fprintf(w, "%4s %10s %8s %8s %8s %8s %6s\n",
		"CU", "cycles", "cf", "alu", "tex", "wgs", "ipc")
	for i, s := range res.Stats.PerCU {
		ipc := 0.0
		if s.ActiveCycles > 0 {
			ipc = float64(s.Instructions()) / float64(s.ActiveCycles)
		}
		_, _ = fmt.Fprintf(w, "%4d %10d %8d %8d %8d %8d %6.3f\n",
			i, s.ActiveCycles, s.CFInsts, s.ALUInsts, s.TEXInsts,
			s.UnmappedWorkGroups, ipc)
	}
}

func percent(n, total uint64) float64 {
	return 100 * float64(n) / float64(total)
}
