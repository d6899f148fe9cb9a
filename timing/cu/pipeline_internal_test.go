package cu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

type liveUops struct {
	alu  []*uop.Uop
	live map[*uop.Uop]bool

	fetched, retired int
}

func newLiveUops() *liveUops {
	return &liveUops{live: make(map[*uop.Uop]bool)}
}

func (l *liveUops) Func(ctx sim.HookCtx) {
	u, ok := ctx.Item.(*uop.Uop)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosUopFetch:
		l.fetched++
		l.live[u] = true
		if u.Kind == insts.ClauseALU {
			l.alu = append(l.alu, u)
		}
	case HookPosUopRetire:
		l.retired++
		delete(l.live, u)
	}
}

// bufferedUops counts how many pipeline buffers hold each uop.
func bufferedUops(cu *ComputeUnit) map[*uop.Uop]int {
	held := make(map[*uop.Uop]int)
	add := func(us ...*uop.Uop) {
		for _, u := range us {
			if u != nil {
				held[u]++
			}
		}
	}
	peek := func(b sim.Buffer) {
		if item := b.Peek(); item != nil {
			add(item.(*uop.Uop))
		}
	}

	add(cu.cf.fetchBuffer...)
	add(cu.cf.instBuffer...)
	add(cu.cf.completeQueue...)

	add(cu.alu.pending...)
	add(cu.alu.finished...)
	add(cu.alu.fetchQueue...)
	peek(cu.alu.instBuffer)
	peek(cu.alu.execBuffer)

	add(cu.tex.pending...)
	add(cu.tex.finished...)
	add(cu.tex.fetchQueue...)
	peek(cu.tex.instBuffer)
	add(cu.tex.loadQueue...)

	return held
}

// heldMemory accepts every global access and completes none until released.
type heldMemory struct {
	witnesses []*int
	released  bool
}

func (m *heldMemory) CanAccess(int) bool { return true }

func (m *heldMemory) Access(_ int, _ memsys.AccessKind, _ uint64, w *int) {
	if m.released {
		return
	}
	*w++
	m.witnesses = append(m.witnesses, w)
}

func (m *heldMemory) release() {
	m.released = true
	for _, w := range m.witnesses {
		*w--
	}
	m.witnesses = nil
}

var _ = Describe("ComputeUnit pipeline", func() {
	var (
		cfg  *config.Config
		prog *insts.Program
		mem  *memsys.Hierarchy
		cu   *ComputeUnit
		hook *liveUops
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.NumComputeUnits = 1
		cfg.WavefrontSize = 16
		cfg.NumStreamCores = 4

		prog = insts.NewProgram()
		hook = newLiveUops()
		mem = memsys.NewHierarchy(cfg)
		cu = NewComputeUnit(0, cfg, emu.NewEmulator(), mem)
		cu.AcceptHook(hook)
	})

	It("should wake consumers at the producer's first write-back", func() {
		alu := prog.AddALUClause(
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.Arith(insts.SlotX, insts.GPR(1), insts.GPR(0)),
			}},
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.Arith(insts.SlotX, insts.GPR(2), insts.GPR(1)),
			}},
		)
		prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
		prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})

		r, err := emu.NewNDRange(prog, 16, 16, 16)
		Expect(err).NotTo(HaveOccurred())
		cu.SetOccupancy(1, 1)
		cu.MapWorkGroup(r.WorkGroups[0])

		woken := false
		for cycle := uint64(1); cycle < 200 && !woken; cycle++ {
			mem.Tick(cycle)
			cu.Tick(cycle)

			if len(hook.alu) < 2 {
				continue
			}
			producer, consumer := hook.alu[0], hook.alu[1]
			Expect(producer.NumLaneGroups).To(Equal(4))

			if producer.LaneGroupsWritten == 0 {
				Expect(consumer.Ready).To(BeFalse())
				owner, found := cu.alu.deps.Producer(uop.GPRDep(1))
				Expect(found).To(BeTrue())
				Expect(owner).To(Equal(producer.Handle()))
				continue
			}

			Expect(producer.LaneGroupsWritten).To(Equal(1))
			Expect(consumer.Ready).To(BeTrue())

			_, found := cu.alu.deps.Producer(uop.GPRDep(1))
			Expect(found).To(BeFalse())

			owner, found := cu.alu.deps.Producer(uop.DepPV)
			Expect(found).To(BeTrue())
			Expect(owner).To(Equal(consumer.Handle()))

			woken = true
		}

		Expect(woken).To(BeTrue())
	})

	It("should keep every uop in at most one buffer", func() {
		tex := prog.AddTEXClause(
			insts.TEXInst{Op: insts.TEXOpFetch, Dst: 1,
				Mem: insts.MemOperand{Base: 0x1000, Stride: 4, Size: 4}},
			insts.TEXInst{Op: insts.TEXOpFetch, Dst: 3,
				Mem: insts.MemOperand{Base: 0x2000, Stride: 8, Size: 4}},
		)
		produce := prog.AddALUClause(
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.Arith(insts.SlotX, insts.GPR(2), insts.GPR(1), insts.GPR(3)),
			}},
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.LDSWrite(insts.SlotX, insts.GPR(0), insts.GPR(2),
					insts.MemOperand{Base: 0, Stride: 4, Size: 4}),
			}},
		)
		consume := prog.AddALUClause(
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.LDSRead(insts.SlotX, insts.GPR(0),
					insts.MemOperand{Base: 4, Stride: 4, Size: 4}),
			}},
			insts.ALUBundle{Insts: []insts.ALUInst{
				insts.Arith(insts.SlotX, insts.GPR(4), insts.LDSQueue()),
				insts.Arith(insts.SlotY, insts.GPR(5), insts.GPR(2)),
				insts.Arith(insts.SlotT, insts.GPR(6), insts.PV()),
			}},
		)
		prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
		prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: produce})
		prog.AddCF(insts.CFInst{Op: insts.CFOpBarrier})
		prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: consume})
		prog.AddCF(insts.CFInst{
			Op:           insts.CFOpMemWrite,
			Mem:          insts.MemOperand{Base: 0x8000, Stride: 4, Size: 4},
			EndOfProgram: true,
		})

		r, err := emu.NewNDRange(prog, 64, 32, 16)
		Expect(err).NotTo(HaveOccurred())
		cu.SetOccupancy(2, r.WavefrontsPerWorkGroup())
		for _, wg := range r.WorkGroups {
			cu.MapWorkGroup(wg)
		}

		cycle := uint64(0)
		for !r.Finished() {
			cycle++
			Expect(cycle).To(BeNumerically("<", 5000))

			mem.Tick(cycle)
			cu.Tick(cycle)

			held := bufferedUops(cu)
			for u, n := range held {
				Expect(hook.live).To(HaveKey(u))
				Expect(n).To(Equal(1), "uop %d held by %d buffers", u.ID, n)
			}
			for u := range hook.live {
				draining := u.Kind == insts.ClauseALU &&
					u.LaneGroupsExecuted == u.NumLaneGroups
				if draining {
					Expect(held).NotTo(HaveKey(u))
				} else {
					Expect(held).To(HaveKey(u))
				}
			}
			Expect(len(hook.live)).To(Equal(cu.store.Live() - len(cu.trash)))
		}

		Expect(hook.retired).To(Equal(hook.fetched))
		Expect(cu.NumWorkGroups()).To(Equal(0))

		cu.Tick(cycle + 1)
		Expect(cu.store.Live()).To(Equal(0))
		Expect(cu.alu.deps.Live()).To(Equal(0))
		Expect(cu.alu.heap.Len()).To(Equal(0))
	})

	Describe("Stalls", func() {
		fetches := func(n int) []insts.TEXInst {
			var out []insts.TEXInst
			for i := 0; i < n; i++ {
				out = append(out, insts.TEXInst{
					Op:  insts.TEXOpFetch,
					Dst: i,
					Mem: insts.MemOperand{Base: uint64(0x1000 * (i + 1)), Stride: 4, Size: 4},
				})
			}
			return out
		}

		start := func(c *ComputeUnit) *emu.NDRange {
			r, err := emu.NewNDRange(prog, 16, 16, 16)
			Expect(err).NotTo(HaveOccurred())
			c.SetOccupancy(1, 1)
			c.MapWorkGroup(r.WorkGroups[0])
			return r
		}

		It("should hold a fetch in the instruction buffer while the load queue is full", func() {
			cfg.TEXLoadQueueSize = 2
			tex := prog.AddTEXClause(fetches(4)...)
			prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
			prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})

			held := &heldMemory{}
			cu = NewComputeUnit(0, cfg, emu.NewEmulator(), held)
			cu.AcceptHook(hook)
			r := start(cu)

			cycle := uint64(0)
			for len(cu.tex.loadQueue) < 2 || cu.tex.instBuffer.Peek() == nil {
				cycle++
				Expect(cycle).To(BeNumerically("<", 100))
				cu.Tick(cycle)
			}

			blocked := cu.tex.instBuffer.Peek().(*uop.Uop)
			stalls := cu.Stats().TEXLoadQueueStalls
			for i := 0; i < 10; i++ {
				cycle++
				cu.Tick(cycle)

				Expect(cu.LoadQueueLen()).To(Equal(2))
				Expect(cu.tex.instBuffer.Peek()).To(BeIdenticalTo(blocked))
				Expect(blocked.Blocks).NotTo(BeEmpty())
			}
			Expect(cu.Stats().TEXLoadQueueStalls).To(Equal(stalls + 10))
			Expect(held.witnesses).To(HaveLen(2))

			held.release()
			for !r.Finished() {
				cycle++
				Expect(cycle).To(BeNumerically("<", 500))
				cu.Tick(cycle)
			}
			Expect(hook.retired).To(Equal(hook.fetched))
			Expect(cu.Stats().TEXInsts).To(Equal(uint64(4)))
		})

		It("should not fetch an ALU bundle past the fetch queue budget", func() {
			cfg.ALUFetchQueueSize = insts.MaxALUBundleSize
			var bundles []insts.ALUBundle
			for i := 0; i < 4; i++ {
				bundles = append(bundles, insts.ALUBundle{Insts: []insts.ALUInst{
					insts.Arith(insts.SlotX, insts.GPR(i+1), insts.GPR(0)),
				}})
			}
			alu := prog.AddALUClause(bundles...)
			prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
			prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})

			cu = NewComputeUnit(0, cfg, emu.NewEmulator(), mem)
			cu.AcceptHook(hook)
			r := start(cu)

			stalled := 0
			for cycle := uint64(1); !r.Finished(); cycle++ {
				Expect(cycle).To(BeNumerically("<", 500))

				var head *uop.Uop
				if len(cu.alu.fetchQueue) > 0 {
					head = cu.alu.fetchQueue[0]
				}
				stalls := cu.Stats().ALUFetchStalls

				mem.Tick(cycle)
				cu.Tick(cycle)

				Expect(len(cu.alu.fetchQueue)).To(BeNumerically("<=", 1))
				if cu.Stats().ALUFetchStalls > stalls {
					Expect(cu.alu.fetchQueue).To(HaveLen(1))
					Expect(cu.alu.fetchQueue[0]).To(BeIdenticalTo(head))
					stalled++
				}
			}

			Expect(stalled).To(BeNumerically(">", 0))
			Expect(cu.Stats().ALUBundles).To(Equal(uint64(4)))
		})

		It("should not fetch a TEX instruction past the fetch queue budget", func() {
			cfg.TEXFetchQueueSize = insts.TEXInstSize
			tex := prog.AddTEXClause(fetches(4)...)
			prog.AddCF(insts.CFInst{Op: insts.CFOpTEXClause, Clause: tex})
			prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})

			cu = NewComputeUnit(0, cfg, emu.NewEmulator(), mem)
			cu.AcceptHook(hook)
			r := start(cu)

			stalled := 0
			for cycle := uint64(1); !r.Finished(); cycle++ {
				Expect(cycle).To(BeNumerically("<", 2000))

				var head *uop.Uop
				if len(cu.tex.fetchQueue) > 0 {
					head = cu.tex.fetchQueue[0]
				}
				stalls := cu.Stats().TEXFetchStalls

				mem.Tick(cycle)
				cu.Tick(cycle)

				Expect(len(cu.tex.fetchQueue)).To(BeNumerically("<=", 1))
				if cu.Stats().TEXFetchStalls > stalls {
					Expect(cu.tex.fetchQueue).To(HaveLen(1))
					Expect(cu.tex.fetchQueue[0]).To(BeIdenticalTo(head))
					stalled++
				}
			}

			Expect(stalled).To(BeNumerically(">", 0))
			Expect(cu.Stats().TEXInsts).To(Equal(uint64(4)))
		})

		It("should hold a local memory read in the instruction buffer without a free port", func() {
			cfg.LocalMemNumPorts = 1
			cfg.LocalMemBlockSize = 256
			alu := prog.AddALUClause(
				insts.ALUBundle{Insts: []insts.ALUInst{
					insts.LDSRead(insts.SlotX, insts.GPR(0),
						insts.MemOperand{Base: 0, Stride: 256, Size: 4}),
				}},
				insts.ALUBundle{Insts: []insts.ALUInst{
					insts.Arith(insts.SlotX, insts.GPR(1), insts.LDSQueue()),
				}},
			)
			prog.AddCF(insts.CFInst{Op: insts.CFOpALUClause, Clause: alu})
			prog.AddCF(insts.CFInst{Op: insts.CFOpNop, EndOfProgram: true})

			cu = NewComputeUnit(0, cfg, emu.NewEmulator(), mem)
			cu.AcceptHook(hook)
			r := start(cu)

			cycle := uint64(0)
			for cu.Stats().LDSReadStalls == 0 {
				cycle++
				Expect(cycle).To(BeNumerically("<", 100))
				mem.Tick(cycle)
				cu.Tick(cycle)
			}

			read := cu.alu.instBuffer.Peek().(*uop.Uop)
			Expect(read.Blocks).To(HaveLen(15))
			for remaining := 14; remaining > 0; remaining-- {
				cycle++
				mem.Tick(cycle)
				cu.Tick(cycle)

				Expect(cu.alu.instBuffer.Peek()).To(BeIdenticalTo(read))
				Expect(read.Blocks).To(HaveLen(remaining))
			}

			for !r.Finished() {
				cycle++
				Expect(cycle).To(BeNumerically("<", 500))
				mem.Tick(cycle)
				cu.Tick(cycle)
			}
			Expect(cu.Stats().LDSReadStalls).To(Equal(uint64(15)))
		})
	})
})
