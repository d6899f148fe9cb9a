package gpu

import (
	"github.com/sarchlab/evgsim/timing/cu"
	"github.com/sarchlab/evgsim/timing/memsys"
)

// TerminationReason tells why a simulation stopped.
type TerminationReason int

// Termination reasons.
const (
	// TerminationFinished means all work-groups finished.
	TerminationFinished TerminationReason = iota
	// TerminationMaxCycles means the configured cycle limit was reached.
	TerminationMaxCycles
	// TerminationStalled means no compute unit made progress for
	// StallThreshold cycles.
	TerminationStalled
)

func (r TerminationReason) String() string {
	switch r {
	case TerminationFinished:
		return "Finished"
	case TerminationMaxCycles:
		return "MaxCycles"
	case TerminationStalled:
		return "Stalled"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a kernel simulation.
type Result struct {
	Reason TerminationReason
	Cycles uint64
	Stats  Statistics
}

// Statistics aggregates the counters of the device.
type Statistics struct {
	Cycles uint64

	// Total sums the counters of all compute units.
	Total cu.Stats
	PerCU []cu.Stats

	// Memory statistics are only filled in for the built-in hierarchy.
	Memory memsys.HierarchyStats
	L1     memsys.CacheStats
	L2     memsys.CacheStats
}

// IPC returns the instructions executed per cycle across the device.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Total.Instructions()) / float64(s.Cycles)
}

// Statistics collects the current counters of the device.
func (d *Device) Statistics() Statistics {
	s := Statistics{
		Cycles: d.cycle,
		PerCU:  make([]cu.Stats, len(d.cus)),
	}

	for i, c := range d.cus {
		s.PerCU[i] = c.Stats()
		s.Total.Add(s.PerCU[i])
	}

	if d.hierarchy != nil {
		s.Memory = d.hierarchy.Stats()
		s.L2 = d.hierarchy.L2Stats()
		for i := range d.cus {
			l1 := d.hierarchy.L1Stats(i)
			s.L1.Reads += l1.Reads
			s.L1.Writes += l1.Writes
			s.L1.Hits += l1.Hits
			s.L1.Misses += l1.Misses
			s.L1.Evictions += l1.Evictions
			s.L1.Writebacks += l1.Writebacks
		}
	}

	return s
}
