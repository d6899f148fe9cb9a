package loader_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/loader"
)

const scaleKernel = `{
  "name": "scale",
  "global_size": 256,
  "local_size": 64,
  "registers_per_work_item": 8,
  "cf": [
    {"op": "tex", "clause": 0},
    {"op": "alu", "clause": 0},
    {"op": "mem_write", "mem": {"base": 8192, "stride": 4, "size": 4},
     "end_of_program": true}
  ],
  "alu_clauses": [[
    {"insts": [
      {"slot": "x", "dst": "R2", "srcs": ["R1", "KC0"]},
      {"slot": "t", "dst": "R3", "srcs": ["PV", "L0"]}
    ], "literals": 1}
  ]],
  "tex_clauses": [[
    {"dst": 1, "mem": {"base": 0, "stride": 4, "size": 4}}
  ]]
}`

var _ = Describe("Kernel loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "kernel-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Context("with a valid kernel file", func() {
		var k *loader.Kernel

		BeforeEach(func() {
			var err error
			k, err = loader.Load(write("scale.json", scaleKernel))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read the ND-range sizes", func() {
			Expect(k.Name).To(Equal("scale"))
			Expect(k.GlobalSize).To(Equal(256))
			Expect(k.LocalSize).To(Equal(64))
			Expect(k.RegistersPerWorkItem).To(Equal(8))
		})

		It("should build the control-flow program", func() {
			Expect(k.Program.CF).To(HaveLen(3))
			Expect(k.Program.CF[0].Op).To(Equal(insts.CFOpTEXClause))
			Expect(k.Program.CF[1].Op).To(Equal(insts.CFOpALUClause))
			Expect(k.Program.CF[2].IsGlobalMemWrite()).To(BeTrue())
			Expect(k.Program.CF[2].EndOfProgram).To(BeTrue())
			Expect(k.Program.CF[2].Mem.Base).To(Equal(uint64(8192)))
		})

		It("should decode bundle operands", func() {
			bundle := k.Program.ALUClauses[0][0]
			Expect(bundle.Literals).To(Equal(1))
			Expect(bundle.Size()).To(Equal(2*insts.ALUInstSize + insts.LiteralSize))
			Expect(bundle.Insts[0].Srcs).To(Equal([]insts.Operand{insts.GPR(1), insts.Const(0)}))
			Expect(bundle.Insts[1].Slot).To(Equal(insts.SlotT))
			Expect(bundle.Insts[1].Srcs).To(Equal([]insts.Operand{insts.PV(), insts.Literal(0)}))
		})

		It("should build an ND-range with the kernel's register usage", func() {
			r, err := k.NDRange(64)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.WorkGroups).To(HaveLen(4))
			Expect(r.RegistersPerWorkItem).To(Equal(8))
		})

		It("should reject an ND-range with an unsupported wavefront size", func() {
			_, err := k.NDRange(128)
			Expect(err).To(MatchError(ContainSubstring("scale")))
		})
	})

	It("should load the bundled sample kernels", func() {
		for _, name := range []string{"vector_add.json", "lds_reduce.json"} {
			k, err := loader.Load(filepath.Join("..", "kernels", name))
			Expect(err).NotTo(HaveOccurred(), name)

			_, err = k.NDRange(64)
			Expect(err).NotTo(HaveOccurred(), name)
		}
	})

	It("should report a missing file", func() {
		_, err := loader.Load(filepath.Join(tempDir, "missing.json"))
		Expect(err).To(MatchError(ContainSubstring("failed to read kernel file")))
	})

	DescribeTable("invalid kernels",
		func(content, message string) {
			_, err := loader.Parse([]byte(content))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("malformed JSON", `{"cf": [`, "failed to parse kernel"),
		Entry("unknown field",
			`{"global_size": 64, "local_size": 64, "threads": 3}`, "unknown field"),
		Entry("unknown CF op",
			`{"global_size": 64, "local_size": 64,
			  "cf": [{"op": "jump", "end_of_program": true}]}`, "unknown CF op"),
		Entry("missing end of program",
			`{"global_size": 64, "local_size": 64, "cf": [{"op": "nop"}]}`,
			"end the program"),
		Entry("clause out of range",
			`{"global_size": 64, "local_size": 64,
			  "cf": [{"op": "alu", "clause": 2, "end_of_program": true}]}`,
			"out of range"),
		Entry("bad operand",
			`{"global_size": 64, "local_size": 64,
			  "cf": [{"op": "alu", "clause": 0, "end_of_program": true}],
			  "alu_clauses": [[{"insts": [{"slot": "x", "dst": "R1", "srcs": ["Q7"]}]}]]}`,
			"unknown operand"),
		Entry("bad slot",
			`{"global_size": 64, "local_size": 64,
			  "cf": [{"op": "alu", "clause": 0, "end_of_program": true}],
			  "alu_clauses": [[{"insts": [{"slot": "v", "dst": "R1"}]}]]}`,
			"unknown slot"),
		Entry("LDS access without size",
			`{"global_size": 64, "local_size": 64,
			  "cf": [{"op": "alu", "clause": 0, "end_of_program": true}],
			  "alu_clauses": [[{"insts": [{"op": "lds_read", "slot": "x", "srcs": ["R0"]}]}]]}`,
			"zero size"),
		Entry("missing sizes",
			`{"cf": [{"op": "nop", "end_of_program": true}]}`,
			"must be > 0"),
	)
})

var _ = Describe("ParseOperand", func() {
	DescribeTable("operand names",
		func(s string, want insts.Operand) {
			got, err := loader.ParseOperand(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("register", "R12", insts.GPR(12)),
		Entry("lower case register", "r3", insts.GPR(3)),
		Entry("previous vector", "PV", insts.PV()),
		Entry("previous scalar", "ps", insts.PS()),
		Entry("LDS queue", "QA.pop", insts.LDSQueue()),
		Entry("constant", "KC4", insts.Const(4)),
		Entry("literal", "L2", insts.Literal(2)),
	)

	It("should reject a register without index", func() {
		_, err := loader.ParseOperand("R")
		Expect(err).To(HaveOccurred())
	})
})
