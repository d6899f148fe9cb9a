package insts

// CFOp identifies a control-flow instruction.
type CFOp uint8

// Control-flow opcodes.
const (
	CFOpNop CFOp = iota
	CFOpALUClause
	CFOpTEXClause
	CFOpMemWrite
	CFOpBarrier
)

// ClauseKind tells which engine executes a wavefront's current instructions.
type ClauseKind uint8

// Clause kinds.
const (
	ClauseCF ClauseKind = iota
	ClauseALU
	ClauseTEX
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseCF:
		return "CF"
	case ClauseALU:
		return "ALU"
	case ClauseTEX:
		return "TEX"
	default:
		return "Unknown"
	}
}

// MemOperand describes the memory footprint of one instruction. Work-item i
// touches Size bytes at Base + i*Stride, where i is the global ID for global
// memory and the local ID for local memory.
type MemOperand struct {
	Base   uint64 `json:"base"`
	Stride uint64 `json:"stride"`
	Size   uint32 `json:"size"`
}

// Address returns the address touched by the work-item with the given ID.
func (m MemOperand) Address(id int) uint64 {
	return m.Base + uint64(id)*m.Stride
}

// CFInst is a control-flow instruction.
type CFInst struct {
	Op CFOp

	// Clause indexes Program.ALUClauses or Program.TEXClauses for clause
	// triggering instructions.
	Clause int

	// Mem is the global store footprint of CFOpMemWrite.
	Mem MemOperand

	// EndOfProgram marks the last instruction of the kernel.
	EndOfProgram bool
}

// Size returns the encoded size of the instruction.
func (i *CFInst) Size() int {
	return CFInstSize
}

// TriggersClause returns the clause kind the instruction starts, or ClauseCF.
func (i *CFInst) TriggersClause() ClauseKind {
	switch i.Op {
	case CFOpALUClause:
		return ClauseALU
	case CFOpTEXClause:
		return ClauseTEX
	default:
		return ClauseCF
	}
}

// IsGlobalMemWrite returns true if the instruction stores to global memory.
func (i *CFInst) IsGlobalMemWrite() bool {
	return i.Op == CFOpMemWrite
}
