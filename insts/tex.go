package insts

// TEXOp identifies a fetch instruction.
type TEXOp uint8

// Fetch opcodes.
const (
	TEXOpFetch TEXOp = iota
	TEXOpSample
)

// TEXInst is a global memory or image fetch.
type TEXInst struct {
	Op  TEXOp
	Dst int
	Src int
	Mem MemOperand
}

// Size returns the encoded size of the instruction.
func (i *TEXInst) Size() int {
	return TEXInstSize
}
