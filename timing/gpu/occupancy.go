package gpu

import (
	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/timing/config"
)

// WorkGroupsPerCU returns how many work-groups of a kernel fit on one compute
// unit. It is the smallest of the work-group, wavefront, register, and local
// memory limits. Register and local memory usage are rounded up to their
// allocation granularity.
func WorkGroupsPerCU(cfg *config.Config, r *emu.NDRange) int {
	n := cfg.MaxWorkGroupsPerCU

	n = min(n, cfg.MaxWavefrontsPerCU/r.WavefrontsPerWorkGroup())

	if r.RegistersPerWorkItem > 0 {
		regs := roundUp(r.RegistersPerWorkItem*r.LocalSize, cfg.RegisterAllocSize)
		n = min(n, cfg.NumRegisters/regs)
	}

	if r.LocalMemPerWorkGroup > 0 {
		mem := roundUp(r.LocalMemPerWorkGroup, cfg.LocalMemAllocSize)
		n = min(n, cfg.LocalMemSize/mem)
	}

	return n
}

func roundUp(n, granularity int) int {
	return (n + granularity - 1) / granularity * granularity
}
