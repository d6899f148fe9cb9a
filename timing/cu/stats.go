package cu

import "github.com/sarchlab/evgsim/insts"

// Stats holds the counters of one compute unit.
type Stats struct {
	// ActiveCycles counts the cycles the compute unit was ticked.
	ActiveCycles uint64

	// CF engine
	CFInsts           uint64
	ALUClauseTriggers uint64
	TEXClauseTriggers uint64
	GlobalWrites      uint64
	CFExecuteStalls   uint64

	// ALU engine
	ALUBundles uint64
	ALUInsts   uint64
	LDSInsts   uint64
	// VLIWOccupancy[n] counts bundles with n instructions.
	VLIWOccupancy  [insts.MaxSlots + 1]uint64
	ALUFetchStalls uint64
	ALUDepStalls   uint64
	LDSReadStalls  uint64
	LDSWriteStalls uint64
	ALULaneGroups  uint64
	ALUWakeups     uint64

	// TEX engine
	TEXInsts             uint64
	GlobalReads          uint64
	TEXFetchStalls       uint64
	TEXLoadQueueStalls   uint64
	GlobalMemReadStalls  uint64
	GlobalMemWriteStalls uint64

	MappedWorkGroups   uint64
	UnmappedWorkGroups uint64
	RetiredUops        uint64
}

// Instructions returns the number of CF instructions, ALU instructions, and
// fetch instructions executed.
func (s Stats) Instructions() uint64 {
	return s.CFInsts + s.ALUInsts + s.TEXInsts
}

// VLIWUtilization returns the average fraction of occupied bundle slots.
func (s Stats) VLIWUtilization() float64 {
	if s.ALUBundles == 0 {
		return 0
	}
	return float64(s.ALUInsts) / float64(s.ALUBundles*insts.MaxSlots)
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.ActiveCycles += other.ActiveCycles
	s.CFInsts += other.CFInsts
	s.ALUClauseTriggers += other.ALUClauseTriggers
	s.TEXClauseTriggers += other.TEXClauseTriggers
	s.GlobalWrites += other.GlobalWrites
	s.CFExecuteStalls += other.CFExecuteStalls
	s.ALUBundles += other.ALUBundles
	s.ALUInsts += other.ALUInsts
	s.LDSInsts += other.LDSInsts
	for i := range s.VLIWOccupancy {
		s.VLIWOccupancy[i] += other.VLIWOccupancy[i]
	}
	s.ALUFetchStalls += other.ALUFetchStalls
	s.ALUDepStalls += other.ALUDepStalls
	s.LDSReadStalls += other.LDSReadStalls
	s.LDSWriteStalls += other.LDSWriteStalls
	s.ALULaneGroups += other.ALULaneGroups
	s.ALUWakeups += other.ALUWakeups
	s.TEXInsts += other.TEXInsts
	s.GlobalReads += other.GlobalReads
	s.TEXFetchStalls += other.TEXFetchStalls
	s.TEXLoadQueueStalls += other.TEXLoadQueueStalls
	s.GlobalMemReadStalls += other.GlobalMemReadStalls
	s.GlobalMemWriteStalls += other.GlobalMemWriteStalls
	s.MappedWorkGroups += other.MappedWorkGroups
	s.UnmappedWorkGroups += other.UnmappedWorkGroups
	s.RetiredUops += other.RetiredUops
}
