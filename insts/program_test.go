package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/insts"
)

var _ = Describe("Program", func() {
	var prog *insts.Program

	BeforeEach(func() {
		prog = insts.NewProgram()
	})

	It("should reject an empty program", func() {
		Expect(prog.Validate()).To(MatchError(ContainSubstring("no CF")))
	})

	It("should require end of program on the last instruction", func() {
		prog.AddCF(insts.CFInst{Op: insts.CFOpNop})
		Expect(prog.Validate()).To(MatchError(ContainSubstring("end the program")))
	})

	It("should reject end of program before the last instruction", func() {
		prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})
		prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})
		Expect(prog.Validate()).To(HaveOccurred())
	})

	It("should reject out-of-range clauses", func() {
		prog.AddCF(insts.CFInst{
			Op: insts.CFOpALUClause, Clause: 3, EndOfProgram: true,
		})
		Expect(prog.Validate()).To(MatchError(ContainSubstring("out of range")))
	})

	It("should reject a slot used twice", func() {
		c := prog.AddALUClause(insts.ALUBundle{Insts: []insts.ALUInst{
			insts.Arith(insts.SlotX, insts.GPR(1), insts.GPR(0)),
			insts.Arith(insts.SlotX, insts.GPR(2), insts.GPR(0)),
		}})
		prog.AddCF(insts.CFInst{
			Op: insts.CFOpALUClause, Clause: c, EndOfProgram: true,
		})
		Expect(prog.Validate()).To(MatchError(ContainSubstring("used twice")))
	})

	It("should reject a global write without size", func() {
		prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, EndOfProgram: true})
		Expect(prog.Validate()).To(HaveOccurred())
	})

	It("should accept a well formed program", func() {
		alu := prog.AddALUClause(insts.ALUBundle{Insts: []insts.ALUInst{
			insts.Arith(insts.SlotX, insts.GPR(4), insts.GPR(0), insts.GPR(1)),
		}})
		tex := prog.AddTEXClause(insts.TEXInst{
			Op: insts.TEXOpFetch, Dst: 0, Src: 7,
			Mem: insts.MemOperand{Base: 0x1000, Stride: 4, Size: 4},
		})
		prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
		prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
		prog.AddCF(insts.CFInst{
			Op:           insts.CFOpMemWrite,
			Mem:          insts.MemOperand{Base: 0x8000, Stride: 4, Size: 4},
			EndOfProgram: true,
		})

		Expect(prog.Validate()).To(Succeed())
		Expect(prog.NumGPRsUsed()).To(Equal(8))
	})
})
