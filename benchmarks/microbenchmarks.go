package benchmarks

import "github.com/sarchlab/evgsim/insts"

// GetMicrobenchmarks returns the standard set of synthetic kernels. Each one
// stresses one part of the compute unit.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		vectorAdd(),
		aluDependencyChain(),
		wideVLIW(),
		ldsReduction(),
		memoryGather(),
	}
}

// GetCoreBenchmarks returns a small set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		vectorAdd(),
		aluDependencyChain(),
		ldsReduction(),
	}
}

func mem(base, stride uint64) insts.MemOperand {
	return insts.MemOperand{Base: base, Stride: stride, Size: 4}
}

func bundle(is ...insts.ALUInst) insts.ALUBundle {
	return insts.ALUBundle{Insts: is}
}

// 1. Vector add: two streaming loads, one add, one store.
func vectorAdd() Benchmark {
	prog := insts.NewProgram()
	tex := prog.AddTEXClause(
		insts.TEXInst{Op: insts.TEXOpFetch, Dst: 1, Mem: mem(0x000000, 4)},
		insts.TEXInst{Op: insts.TEXOpFetch, Dst: 2, Mem: mem(0x100000, 4)},
	)
	alu := prog.AddALUClause(
		bundle(insts.Arith(insts.SlotX, insts.GPR(3), insts.GPR(1), insts.GPR(2))),
	)
	prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
	prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, Mem: mem(0x200000, 4), EndOfProgram: true})

	return Benchmark{
		Name:        "vector_add",
		Description: "c[i] = a[i] + b[i] - streaming global memory bandwidth",
		Program:     prog,
		GlobalSize:  4096,
		LocalSize:   64,
	}
}

// 2. ALU dependency chain: every bundle reads the previous bundle's PV.
func aluDependencyChain() Benchmark {
	prog := insts.NewProgram()

	bundles := []insts.ALUBundle{
		bundle(insts.Arith(insts.SlotX, insts.GPR(1), insts.GPR(0), insts.Literal(0))),
	}
	for i := 0; i < 31; i++ {
		bundles = append(bundles,
			bundle(insts.Arith(insts.SlotX, insts.GPR(1), insts.PV(), insts.GPR(0))))
	}
	for i := range bundles {
		bundles[i].Literals = 1
	}
	alu := prog.AddALUClause(bundles...)

	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
	prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, Mem: mem(0, 4), EndOfProgram: true})

	return Benchmark{
		Name:        "alu_dependency_chain",
		Description: "32 dependent bundles - measures processing element latency",
		Program:     prog,
		GlobalSize:  1024,
		LocalSize:   64,
	}
}

// 3. Wide VLIW: five independent operations per bundle.
func wideVLIW() Benchmark {
	prog := insts.NewProgram()

	slots := []insts.Slot{insts.SlotX, insts.SlotY, insts.SlotZ, insts.SlotW, insts.SlotT}
	var bundles []insts.ALUBundle
	for b := 0; b < 16; b++ {
		var is []insts.ALUInst
		for s, slot := range slots {
			dst := 8 + (b%2)*5 + s
			is = append(is, insts.Arith(slot, insts.GPR(dst), insts.GPR(s), insts.Const(s)))
		}
		bundles = append(bundles, bundle(is...))
	}
	alu := prog.AddALUClause(bundles...)

	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
	prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, Mem: mem(0, 4), EndOfProgram: true})

	return Benchmark{
		Name:        "wide_vliw",
		Description: "16 bundles of 5 independent operations - measures VLIW throughput",
		Program:     prog,
		GlobalSize:  1024,
		LocalSize:   64,
	}
}

// 4. LDS reduction: a tree reduction in local memory with barriers.
func ldsReduction() Benchmark {
	prog := insts.NewProgram()

	tex := prog.AddTEXClause(insts.TEXInst{Op: insts.TEXOpFetch, Dst: 1, Mem: mem(0, 4)})
	store := prog.AddALUClause(
		bundle(insts.LDSWrite(insts.SlotX, insts.GPR(0), insts.GPR(1), mem(0, 4))),
	)
	step := prog.AddALUClause(
		bundle(insts.LDSRead(insts.SlotX, insts.GPR(0), mem(0, 8))),
		bundle(insts.LDSRead(insts.SlotX, insts.GPR(0), mem(4, 8))),
		bundle(insts.Arith(insts.SlotX, insts.GPR(2), insts.LDSQueue(), insts.LDSQueue())),
		bundle(insts.LDSWrite(insts.SlotX, insts.GPR(0), insts.PV(), mem(0, 4))),
	)

	prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: store})
	for i := 0; i < 6; i++ {
		prog.AddCF(insts.CFInst{Op: insts.CFOpBarrier})
		prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: step})
	}
	prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, Mem: mem(0x100000, 4), EndOfProgram: true})

	return Benchmark{
		Name:                 "lds_reduction",
		Description:          "tree reduction in local memory - measures LDS and barrier cost",
		Program:              prog,
		GlobalSize:           2048,
		LocalSize:            256,
		LocalMemPerWorkGroup: 1024,
	}
}

// 5. Memory gather: strided loads that touch one cache block per lane.
func memoryGather() Benchmark {
	prog := insts.NewProgram()

	var fetches []insts.TEXInst
	for i := 0; i < 4; i++ {
		fetches = append(fetches, insts.TEXInst{
			Op:  insts.TEXOpFetch,
			Dst: i + 1,
			Mem: mem(uint64(i)*0x1000000, 256),
		})
	}
	tex := prog.AddTEXClause(fetches...)
	alu := prog.AddALUClause(
		bundle(
			insts.Arith(insts.SlotX, insts.GPR(5), insts.GPR(1), insts.GPR(2)),
			insts.Arith(insts.SlotY, insts.GPR(6), insts.GPR(3), insts.GPR(4)),
		),
		bundle(insts.Arith(insts.SlotX, insts.GPR(7), insts.PV(), insts.GPR(6))),
	)

	prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
	prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
	prog.AddCF(insts.CFInst{Op: insts.CFOpMemWrite, Mem: mem(0x8000000, 4), EndOfProgram: true})

	return Benchmark{
		Name:        "memory_gather",
		Description: "4 uncoalesced gathers per work-item - measures memory latency tolerance",
		Program:     prog,
		GlobalSize:  1024,
		LocalSize:   64,
	}
}
