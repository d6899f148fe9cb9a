// Package cu provides the cycle-level timing model of a compute unit.
//
// A compute unit runs three engines. The CF engine fetches control-flow
// instructions of the mapped wavefronts and hands clause triggers to the ALU
// engine (VLIW bundles) or the TEX engine (global memory fetches). Every
// engine runs its stages in reverse pipeline order within a cycle, so a uop
// never advances two stages in one cycle.
//
// The compute unit is single-threaded. It is driven by Tick and by the map
// and unmap calls of the device that owns it.
package cu

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/timing/memsys"
)

// Emulator executes the next instruction of a wavefront and reports its side
// effects.
type Emulator interface {
	ExecuteCF(wf *emu.Wavefront) emu.CFResult
	ExecuteALU(wf *emu.Wavefront) emu.ALUResult
	ExecuteTEX(wf *emu.Wavefront) emu.TEXResult
}

// GlobalMemory is the device memory shared by all compute units. Access
// increments the witness and decrements it when the access completes.
type GlobalMemory interface {
	CanAccess(cuID int) bool
	Access(cuID int, kind memsys.AccessKind, addr uint64, witness *int)
}

// LocalMemory is the local data share of one compute unit. It is ticked by
// the compute unit at the start of every cycle.
type LocalMemory interface {
	Tick(cycle uint64)
	CanAccess() bool
	Access(kind memsys.AccessKind, addr uint64, witness *int)
}

// Hook positions of a compute unit. The item of uop hooks is a *uop.Uop, the
// item of work-group hooks is an *emu.WorkGroup.
var (
	HookPosUopFetch          = &sim.HookPos{Name: "UopFetch"}
	HookPosUopRetire         = &sim.HookPos{Name: "UopRetire"}
	HookPosWorkGroupMapped   = &sim.HookPos{Name: "WorkGroupMapped"}
	HookPosWorkGroupUnmapped = &sim.HookPos{Name: "WorkGroupUnmapped"}
)
