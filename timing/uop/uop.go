// Package uop defines the micro-operation record that tracks one instruction
// instance through the compute unit pipelines, and the arena that recycles
// those records.
package uop

import (
	"log"

	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/memsys"
)

// Fixed capacities of a uop record.
const (
	MaxInputDeps  = 32
	MaxOutputDeps = 16

	// MaxLanes is the widest wavefront a uop can describe.
	MaxLanes = 64

	// MaxLaneAccesses is the number of memory accesses one lane can make for
	// one instruction.
	MaxLaneAccesses = insts.MaxSlots
)

// Handle refers to a uop in a Store. Handles are recycled after Free.
type Handle int32

// NoHandle refers to no uop.
const NoHandle Handle = -1

// LaneAccess is one memory access of one lane.
type LaneAccess struct {
	Kind memsys.AccessKind
	Addr uint64
	Size uint32
}

// Lane holds the memory side effects of one work-item.
type Lane struct {
	Accesses    [MaxLaneAccesses]LaneAccess
	NumAccesses int
}

// Uop is one in-flight instruction instance of one wavefront.
type Uop struct {
	handle Handle
	live   bool

	// ID is unique across the device, IDInCU within the compute unit.
	ID     uint64
	IDInCU uint64

	// Wavefront is the compute unit local wavefront index, WorkGroupSlot
	// the mapping slot of its work-group.
	Wavefront     int
	WorkGroupSlot int

	Kind    insts.ClauseKind
	CFInst  *insts.CFInst
	Bundle  *insts.ALUBundle
	TEXInst *insts.TEXInst

	// Trigger is the clause a CF uop starts, or ClauseCF.
	Trigger insts.ClauseKind

	// Last marks the last uop of a clause, or for CF uops, of the wavefront.
	Last bool

	GlobalMemWrite bool

	inputs     [MaxInputDeps]Dep
	numInputs  int
	outputs    [MaxOutputDeps]Dep
	numOutputs int

	Ready bool

	// Dependents are the uops waiting for this uop's first write-back.
	Dependents []Handle

	// ReadyCycle is the cycle when the uop may leave the fetch buffer.
	ReadyCycle uint64
	FetchCycle uint64

	NumLaneGroups      int
	LaneGroupsExecuted int
	LaneGroupsWritten  int

	Lanes    [MaxLanes]Lane
	NumLanes int

	// Witness counts outstanding memory accesses.
	Witness int

	// Blocks holds coalesced memory blocks still to be issued.
	Blocks []uint64
}

// Handle returns the handle of the uop in its Store.
func (u *Uop) Handle() Handle {
	return u.handle
}

// Inst returns the instruction the uop carries.
func (u *Uop) Inst() insts.Inst {
	switch u.Kind {
	case insts.ClauseALU:
		return u.Bundle
	case insts.ClauseTEX:
		return u.TEXInst
	default:
		return u.CFInst
	}
}

// Inputs returns the dependence slots the uop reads.
func (u *Uop) Inputs() []Dep {
	return u.inputs[:u.numInputs]
}

// Outputs returns the dependence slots the uop writes.
func (u *Uop) Outputs() []Dep {
	return u.outputs[:u.numOutputs]
}

// AddInput adds a slot to the input dependences. Duplicates and DepNone are
// ignored.
func (u *Uop) AddInput(d Dep) {
	if d == DepNone || contains(u.inputs[:u.numInputs], d) {
		return
	}
	if u.numInputs == MaxInputDeps {
		log.Panicf("uop %d: too many input dependences", u.ID)
	}
	u.inputs[u.numInputs] = d
	u.numInputs++
}

// AddOutput adds a slot to the output dependences. Duplicates and DepNone are
// ignored.
func (u *Uop) AddOutput(d Dep) {
	if d == DepNone || contains(u.outputs[:u.numOutputs], d) {
		return
	}
	if u.numOutputs == MaxOutputDeps {
		log.Panicf("uop %d: too many output dependences", u.ID)
	}
	u.outputs[u.numOutputs] = d
	u.numOutputs++
}

// AddLaneAccess records a memory access of a lane.
func (u *Uop) AddLaneAccess(lane int, access LaneAccess) {
	if lane < 0 || lane >= MaxLanes {
		log.Panicf("uop %d: lane %d out of range", u.ID, lane)
	}

	l := &u.Lanes[lane]
	if l.NumAccesses == MaxLaneAccesses {
		log.Panicf("uop %d: too many accesses on lane %d", u.ID, lane)
	}
	l.Accesses[l.NumAccesses] = access
	l.NumAccesses++

	if lane >= u.NumLanes {
		u.NumLanes = lane + 1
	}
}

// CoalesceAccesses fills Blocks with the distinct blocks of the lane
// accesses of the given kind. An access that crosses a block boundary
// touches every block it overlaps.
func (u *Uop) CoalesceAccesses(kind memsys.AccessKind, blockSize uint64) {
	u.Blocks = u.Blocks[:0]
	for i := 0; i < u.NumLanes; i++ {
		l := &u.Lanes[i]
		for j := 0; j < l.NumAccesses; j++ {
			a := &l.Accesses[j]
			if a.Kind != kind {
				continue
			}

			end := a.Addr + uint64(max(a.Size, 1))
			for addr := a.Addr / blockSize * blockSize; addr < end; addr += blockSize {
				u.Blocks = memsys.AppendBlock(u.Blocks, addr, blockSize)
			}
		}
	}
}

// HasAccesses returns true if any lane has an access of the given kind.
func (u *Uop) HasAccesses(kind memsys.AccessKind) bool {
	for i := 0; i < u.NumLanes; i++ {
		l := &u.Lanes[i]
		for j := 0; j < l.NumAccesses; j++ {
			if l.Accesses[j].Kind == kind {
				return true
			}
		}
	}
	return false
}

func (u *Uop) reset() {
	dependents := u.Dependents[:0]
	blocks := u.Blocks[:0]

	*u = Uop{
		handle:     u.handle,
		Dependents: dependents,
		Blocks:     blocks,
	}
}

func contains(deps []Dep, d Dep) bool {
	for _, x := range deps {
		if x == d {
			return true
		}
	}
	return false
}
