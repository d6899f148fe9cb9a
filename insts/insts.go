// Package insts provides the Evergreen-style kernel instruction model consumed
// by the emulator and the timing simulator.
//
// A kernel program is a list of control-flow (CF) instructions. Some CF
// instructions trigger a secondary clause: an ALU clause is a list of VLIW
// bundles, and a TEX clause is a list of fetch instructions. Instructions carry
// only what the timing model needs: operand registers, local memory usage, and
// the per-work-item memory footprint.
//
// Usage:
//
//	prog := insts.NewProgram()
//	alu := prog.AddALUClause(insts.ALUBundle{Insts: []insts.ALUInst{
//		insts.Arith(insts.SlotX, insts.GPR(1), insts.GPR(0), insts.GPR(0)),
//	}})
//	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
//	prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})
package insts

// Encoding sizes in bytes.
const (
	CFInstSize       = 8
	ALUInstSize      = 8
	LiteralSize      = 4
	TEXInstSize      = 16
	MaxSlots         = 5
	MaxLiterals      = 4
	MaxALUSrcs       = 3
	NumGPRs          = 128
	MaxALUBundleSize = MaxSlots*ALUInstSize + MaxLiterals*LiteralSize
)

// Inst is one of *CFInst, *ALUBundle, or *TEXInst.
type Inst interface {
	// Size returns the encoded size in bytes.
	Size() int
}
