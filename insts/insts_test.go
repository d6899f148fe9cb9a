package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have a zero CFInst", func() {
		var i insts.CFInst
		Expect(i).To(BeZero())
	})

	It("should size bundles by instructions and literals", func() {
		b := &insts.ALUBundle{
			Insts: []insts.ALUInst{
				insts.Arith(insts.SlotX, insts.GPR(1), insts.GPR(0)),
				insts.Arith(insts.SlotY, insts.GPR(2), insts.Literal(0)),
			},
			Literals: 2,
		}
		Expect(b.Size()).To(Equal(2*insts.ALUInstSize + 2*insts.LiteralSize))
	})

	It("should compute the maximal bundle size", func() {
		Expect(insts.MaxALUBundleSize).To(Equal(56))
	})

	It("should compute per work-item addresses", func() {
		m := insts.MemOperand{Base: 0x1000, Stride: 4, Size: 4}
		Expect(m.Address(0)).To(Equal(uint64(0x1000)))
		Expect(m.Address(3)).To(Equal(uint64(0x100C)))
	})

	It("should classify clause triggers", func() {
		Expect((&insts.CFInst{Op: insts.CFOpALUClause}).TriggersClause()).
			To(Equal(insts.ClauseALU))
		Expect((&insts.CFInst{Op: insts.CFOpTEXClause}).TriggersClause()).
			To(Equal(insts.ClauseTEX))
		Expect((&insts.CFInst{Op: insts.CFOpMemWrite}).TriggersClause()).
			To(Equal(insts.ClauseCF))
	})

	It("should detect LDS usage in a bundle", func() {
		b := &insts.ALUBundle{Insts: []insts.ALUInst{
			insts.LDSWrite(insts.SlotX, insts.GPR(0), insts.GPR(1),
				insts.MemOperand{Stride: 4, Size: 4}),
		}}
		Expect(b.HasLDSWrite()).To(BeTrue())
		Expect(b.HasLDSRead()).To(BeFalse())
	})
})
