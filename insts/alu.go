package insts

// Slot is a VLIW lane of an ALU bundle.
type Slot uint8

// VLIW slots. X, Y, Z, and W are the vector slots, T is the transcendental
// slot.
const (
	SlotX Slot = iota
	SlotY
	SlotZ
	SlotW
	SlotT
)

func (s Slot) String() string {
	return [...]string{"x", "y", "z", "w", "t"}[s]
}

// ALUOp identifies the class of an ALU instruction.
type ALUOp uint8

// ALU instruction classes.
const (
	ALUOpArith ALUOp = iota
	ALUOpLDSRead
	ALUOpLDSWrite
)

// OperandKind tells where an operand lives.
type OperandKind uint8

// Operand kinds.
const (
	OperandNone OperandKind = iota
	OperandGPR
	OperandPV
	OperandPS
	OperandLDSQueue
	OperandConst
	OperandLiteral
)

// Operand is a source or destination of an ALU instruction.
type Operand struct {
	Kind  OperandKind
	Index int
}

// GPR returns a general purpose register operand.
func GPR(index int) Operand {
	return Operand{Kind: OperandGPR, Index: index}
}

// PV returns the previous-vector accumulator operand.
func PV() Operand {
	return Operand{Kind: OperandPV}
}

// PS returns the previous-scalar accumulator operand.
func PS() Operand {
	return Operand{Kind: OperandPS}
}

// LDSQueue returns the local memory output queue operand.
func LDSQueue() Operand {
	return Operand{Kind: OperandLDSQueue}
}

// Const returns a constant buffer operand.
func Const(index int) Operand {
	return Operand{Kind: OperandConst, Index: index}
}

// Literal returns a literal operand.
func Literal(index int) Operand {
	return Operand{Kind: OperandLiteral, Index: index}
}

// ALUInst is one instruction of a VLIW bundle.
type ALUInst struct {
	Op   ALUOp
	Slot Slot
	Dst  Operand
	Srcs []Operand

	// LDS is the local memory footprint of LDS reads and writes.
	LDS MemOperand
}

// Arith builds an arithmetic instruction.
func Arith(slot Slot, dst Operand, srcs ...Operand) ALUInst {
	return ALUInst{Op: ALUOpArith, Slot: slot, Dst: dst, Srcs: srcs}
}

// LDSRead builds a local memory read that pushes into the LDS output queue.
func LDSRead(slot Slot, addr Operand, mem MemOperand) ALUInst {
	return ALUInst{Op: ALUOpLDSRead, Slot: slot, Srcs: []Operand{addr}, LDS: mem}
}

// LDSWrite builds a local memory write.
func LDSWrite(slot Slot, addr, data Operand, mem MemOperand) ALUInst {
	return ALUInst{
		Op:   ALUOpLDSWrite,
		Slot: slot,
		Srcs: []Operand{addr, data},
		LDS:  mem,
	}
}

// IsLDS returns true for local memory instructions.
func (i *ALUInst) IsLDS() bool {
	return i.Op == ALUOpLDSRead || i.Op == ALUOpLDSWrite
}

// ALUBundle is a VLIW bundle of up to five instructions.
type ALUBundle struct {
	Insts    []ALUInst
	Literals int
}

// Size returns the encoded size of the bundle.
func (b *ALUBundle) Size() int {
	return len(b.Insts)*ALUInstSize + b.Literals*LiteralSize
}

// HasLDSRead returns true if any instruction reads local memory.
func (b *ALUBundle) HasLDSRead() bool {
	for i := range b.Insts {
		if b.Insts[i].Op == ALUOpLDSRead {
			return true
		}
	}
	return false
}

// HasLDSWrite returns true if any instruction writes local memory.
func (b *ALUBundle) HasLDSWrite() bool {
	for i := range b.Insts {
		if b.Insts[i].Op == ALUOpLDSWrite {
			return true
		}
	}
	return false
}
