package uop_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

var _ = Describe("Store", func() {
	var store *uop.Store

	BeforeEach(func() {
		store = uop.NewStore(nil)
	})

	It("should hand out increasing identifiers", func() {
		a := store.Alloc()
		b := store.Alloc()

		Expect(b.ID).To(BeNumerically(">", a.ID))
		Expect(b.IDInCU).To(Equal(a.IDInCU + 1))
		Expect(store.Live()).To(Equal(2))
	})

	It("should share device identifiers between stores", func() {
		ids := &uop.IDSource{}
		s1 := uop.NewStore(ids)
		s2 := uop.NewStore(ids)

		a := s1.Alloc()
		b := s2.Alloc()

		Expect(b.ID).To(Equal(a.ID + 1))
		Expect(a.IDInCU).To(Equal(uint64(1)))
		Expect(b.IDInCU).To(Equal(uint64(1)))
	})

	It("should recycle freed records", func() {
		a := store.Alloc()
		h := a.Handle()
		store.Free(a)

		b := store.Alloc()
		Expect(b.Handle()).To(Equal(h))
		Expect(store.Live()).To(Equal(1))
	})

	It("should clear recycled records", func() {
		a := store.Alloc()
		a.AddInput(uop.GPRDep(3))
		a.AddOutput(uop.DepPV)
		a.Ready = true
		a.Dependents = append(a.Dependents, 7)
		a.AddLaneAccess(2, uop.LaneAccess{Kind: memsys.Load, Addr: 64, Size: 4})
		a.Witness = 3
		store.Free(a)

		b := store.Alloc()
		Expect(b.Inputs()).To(BeEmpty())
		Expect(b.Outputs()).To(BeEmpty())
		Expect(b.Ready).To(BeFalse())
		Expect(b.Dependents).To(BeEmpty())
		Expect(b.NumLanes).To(Equal(0))
		Expect(b.Lanes[2].NumAccesses).To(Equal(0))
		Expect(b.Witness).To(Equal(0))
	})

	It("should keep pointers stable while growing", func() {
		first := store.Alloc()
		first.Wavefront = 42

		for i := 0; i < 1000; i++ {
			store.Alloc()
		}

		Expect(store.Get(first.Handle())).To(BeIdenticalTo(first))
		Expect(first.Wavefront).To(Equal(42))
	})

	It("should panic on double free", func() {
		a := store.Alloc()
		store.Free(a)
		Expect(func() { store.Free(a) }).To(Panic())
	})

	It("should panic when getting a freed uop", func() {
		a := store.Alloc()
		store.Free(a)
		Expect(func() { store.Get(a.Handle()) }).To(Panic())
	})
})

var _ = Describe("Uop", func() {
	var u *uop.Uop

	BeforeEach(func() {
		u = uop.NewStore(nil).Alloc()
	})

	It("should ignore duplicate and empty dependences", func() {
		u.AddInput(uop.GPRDep(1))
		u.AddInput(uop.GPRDep(1))
		u.AddInput(uop.DepNone)
		u.AddOutput(uop.DepLDS)
		u.AddOutput(uop.DepLDS)

		Expect(u.Inputs()).To(Equal([]uop.Dep{uop.GPRDep(1)}))
		Expect(u.Outputs()).To(Equal([]uop.Dep{uop.DepLDS}))
	})

	It("should panic when the input list overflows", func() {
		for i := 0; i < uop.MaxInputDeps; i++ {
			u.AddInput(uop.GPRDep(i))
		}
		Expect(func() { u.AddInput(uop.DepPS) }).To(Panic())
	})

	It("should panic when the output list overflows", func() {
		for i := 0; i < uop.MaxOutputDeps; i++ {
			u.AddOutput(uop.GPRDep(i))
		}
		Expect(func() { u.AddOutput(uop.DepPV) }).To(Panic())
	})

	It("should panic when a lane has too many accesses", func() {
		access := uop.LaneAccess{Kind: memsys.Store, Addr: 0, Size: 4}
		for i := 0; i < uop.MaxLaneAccesses; i++ {
			u.AddLaneAccess(0, access)
		}
		Expect(func() { u.AddLaneAccess(0, access) }).To(Panic())
	})

	It("should coalesce lane accesses by kind", func() {
		for lane := 0; lane < 8; lane++ {
			u.AddLaneAccess(lane, uop.LaneAccess{
				Kind: memsys.Load, Addr: uint64(lane * 16), Size: 4,
			})
		}
		u.AddLaneAccess(0, uop.LaneAccess{Kind: memsys.Store, Addr: 1000, Size: 4})

		u.CoalesceAccesses(memsys.Load, 64)
		Expect(u.Blocks).To(Equal([]uint64{0, 64}))

		u.CoalesceAccesses(memsys.Store, 64)
		Expect(u.Blocks).To(Equal([]uint64{960}))

		Expect(u.HasAccesses(memsys.Store)).To(BeTrue())
	})

	It("should coalesce every block an access overlaps", func() {
		u.AddLaneAccess(0, uop.LaneAccess{Kind: memsys.Load, Addr: 60, Size: 8})
		u.AddLaneAccess(1, uop.LaneAccess{Kind: memsys.Load, Addr: 120, Size: 144})
		u.AddLaneAccess(2, uop.LaneAccess{Kind: memsys.Load, Addr: 256, Size: 0})

		u.CoalesceAccesses(memsys.Load, 64)
		Expect(u.Blocks).To(Equal([]uint64{0, 64, 128, 192, 256}))
		Expect(u.HasAccesses(memsys.Store)).To(BeFalse())
	})
})

var _ = Describe("Dep", func() {
	It("should map operands to slots", func() {
		Expect(uop.OperandDep(insts.GPR(0))).To(Equal(uop.DepGPR0))
		Expect(uop.OperandDep(insts.GPR(127))).To(Equal(uop.DepPV - 1))
		Expect(uop.OperandDep(insts.PV())).To(Equal(uop.DepPV))
		Expect(uop.OperandDep(insts.PS())).To(Equal(uop.DepPS))
		Expect(uop.OperandDep(insts.LDSQueue())).To(Equal(uop.DepLDS))
		Expect(uop.OperandDep(insts.Const(3))).To(Equal(uop.DepNone))
		Expect(uop.OperandDep(insts.Literal(0))).To(Equal(uop.DepNone))
	})

	It("should name slots", func() {
		Expect(uop.GPRDep(5).String()).To(Equal("r5"))
		Expect(uop.DepPS.String()).To(Equal("ps"))
		Expect(uop.DepLDS.String()).To(Equal("lds"))
	})
})
