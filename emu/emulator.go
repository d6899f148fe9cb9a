package emu

import (
	"log"

	"github.com/sarchlab/evgsim/insts"
)

// LaneAccess is the memory footprint of one work-item for one instruction.
type LaneAccess struct {
	Lane int
	Addr uint64
	Size uint32
}

// CFResult describes an executed control-flow instruction.
type CFResult struct {
	Inst *insts.CFInst

	// Trigger is the clause the wavefront entered by executing Inst.
	Trigger insts.ClauseKind

	// Last is true if the wavefront has no instruction left after Inst and
	// the clause it triggered.
	Last bool

	GlobalWrites []LaneAccess
}

// ALUResult describes an executed VLIW bundle.
type ALUResult struct {
	Bundle     *insts.ALUBundle
	ClauseDone bool
	LDSReads   []LaneAccess
	LDSWrites  []LaneAccess
}

// TEXResult describes an executed fetch instruction.
type TEXResult struct {
	Inst        *insts.TEXInst
	ClauseDone  bool
	GlobalReads []LaneAccess
}

// Emulator executes instructions on behalf of wavefronts.
//
// The access slices in returned results are reused; they are valid until the
// next Execute call.
type Emulator struct {
	cfCount  uint64
	aluCount uint64
	texCount uint64

	writes []LaneAccess
	reads  []LaneAccess
}

// NewEmulator creates a new Emulator.
func NewEmulator() *Emulator {
	return &Emulator{
		writes: make([]LaneAccess, 0, MaxWavefrontSize*insts.MaxSlots),
		reads:  make([]LaneAccess, 0, MaxWavefrontSize*insts.MaxSlots),
	}
}

// InstructionCount returns the number of CF instructions, ALU bundles, and
// fetch instructions executed.
func (e *Emulator) InstructionCount() (cf, alu, tex uint64) {
	return e.cfCount, e.aluCount, e.texCount
}

// ExecuteCF executes the next control-flow instruction of a wavefront.
func (e *Emulator) ExecuteCF(wf *Wavefront) CFResult {
	if wf.ClauseKind != insts.ClauseCF || !wf.Eligible() {
		log.Panicf("wavefront %d cannot execute CF (clause %s, state %d)",
			wf.ID, wf.ClauseKind, wf.State)
	}

	prog := wf.WorkGroup.NDRange.Program
	inst := &prog.CF[wf.CFPC]
	wf.CFPC++
	e.cfCount++

	e.writes = e.writes[:0]
	result := CFResult{Inst: inst}

	switch inst.Op {
	case insts.CFOpALUClause:
		wf.ClauseKind = insts.ClauseALU
		wf.clause = inst.Clause
		wf.clausePC = 0
	case insts.CFOpTEXClause:
		wf.ClauseKind = insts.ClauseTEX
		wf.clause = inst.Clause
		wf.clausePC = 0
	case insts.CFOpMemWrite:
		for lane := 0; lane < wf.NumWorkItems; lane++ {
			e.writes = append(e.writes, LaneAccess{
				Lane: lane,
				Addr: inst.Mem.Address(wf.GlobalID(lane)),
				Size: inst.Mem.Size,
			})
		}
		result.GlobalWrites = e.writes
	case insts.CFOpBarrier:
		if !inst.EndOfProgram {
			wf.WorkGroup.arriveAtBarrier(wf)
		}
	}

	result.Trigger = wf.ClauseKind

	if inst.EndOfProgram {
		wf.State = WavefrontFinished
		wf.WorkGroup.tryReleaseBarrier()
		result.Last = true
	}

	return result
}

// ExecuteALU executes the next bundle of the wavefront's ALU clause.
func (e *Emulator) ExecuteALU(wf *Wavefront) ALUResult {
	if wf.ClauseKind != insts.ClauseALU {
		log.Panicf("wavefront %d is not in an ALU clause", wf.ID)
	}

	clause := wf.WorkGroup.NDRange.Program.ALUClauses[wf.clause]
	bundle := &clause[wf.clausePC]
	wf.clausePC++
	e.aluCount++

	e.reads = e.reads[:0]
	e.writes = e.writes[:0]

	for i := range bundle.Insts {
		inst := &bundle.Insts[i]
		if !inst.IsLDS() {
			continue
		}

		for lane := 0; lane < wf.NumWorkItems; lane++ {
			access := LaneAccess{
				Lane: lane,
				Addr: inst.LDS.Address(wf.LocalID(lane)),
				Size: inst.LDS.Size,
			}
			if inst.Op == insts.ALUOpLDSRead {
				e.reads = append(e.reads, access)
			} else {
				e.writes = append(e.writes, access)
			}
		}
	}

	result := ALUResult{
		Bundle:    bundle,
		LDSReads:  e.reads,
		LDSWrites: e.writes,
	}

	if wf.clausePC == len(clause) {
		wf.ClauseKind = insts.ClauseCF
		result.ClauseDone = true
	}

	return result
}

// ExecuteTEX executes the next fetch of the wavefront's TEX clause.
func (e *Emulator) ExecuteTEX(wf *Wavefront) TEXResult {
	if wf.ClauseKind != insts.ClauseTEX {
		log.Panicf("wavefront %d is not in a TEX clause", wf.ID)
	}

	clause := wf.WorkGroup.NDRange.Program.TEXClauses[wf.clause]
	inst := &clause[wf.clausePC]
	wf.clausePC++
	e.texCount++

	e.reads = e.reads[:0]
	for lane := 0; lane < wf.NumWorkItems; lane++ {
		e.reads = append(e.reads, LaneAccess{
			Lane: lane,
			Addr: inst.Mem.Address(wf.GlobalID(lane)),
			Size: inst.Mem.Size,
		})
	}

	result := TEXResult{Inst: inst, GlobalReads: e.reads}

	if wf.clausePC == len(clause) {
		wf.ClauseKind = insts.ClauseCF
		result.ClauseDone = true
	}

	return result
}
