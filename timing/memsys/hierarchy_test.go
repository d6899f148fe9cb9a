package memsys_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/memsys"
)

var _ = Describe("Hierarchy", func() {
	var (
		cfg *config.Config
		mem *memsys.Hierarchy
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.NumComputeUnits = 2
		cfg.L1HitLatency = 4
		cfg.L2HitLatency = 20
		cfg.DRAMLatency = 100
		cfg.MaxOutstandingGlobalAccesses = 2
		mem = memsys.NewHierarchy(cfg)
		mem.Tick(0)
	})

	completeAt := func(witness *int) uint64 {
		for cycle := uint64(1); cycle < 1000; cycle++ {
			mem.Tick(cycle)
			if *witness == 0 {
				return cycle
			}
		}
		return 0
	}

	It("should take the DRAM path on a cold miss", func() {
		var witness int
		mem.Access(0, memsys.Load, 0x1000, &witness)
		Expect(witness).To(Equal(1))
		Expect(completeAt(&witness)).To(Equal(uint64(124)))
		Expect(mem.Stats().DRAMAccesses).To(Equal(uint64(1)))
	})

	It("should hit in L1 on reuse", func() {
		var first, second int
		mem.Access(0, memsys.Load, 0x1000, &first)
		mem.Access(0, memsys.Load, 0x1008, &second)

		Expect(completeAt(&second)).To(Equal(uint64(4)))
		Expect(mem.L1Stats(0).Hits).To(Equal(uint64(1)))
	})

	It("should share the L2 between compute units", func() {
		var first, second int
		mem.Access(0, memsys.Load, 0x1000, &first)
		mem.Access(1, memsys.Load, 0x1000, &second)

		Expect(completeAt(&second)).To(Equal(uint64(24)))
		Expect(mem.L2Stats().Hits).To(Equal(uint64(1)))
	})

	It("should complete accesses out of issue order", func() {
		var warm, slow, fast int
		mem.Access(0, memsys.Load, 0x40, &warm)
		now := completeAt(&warm)

		mem.Access(0, memsys.Load, 0x8000, &slow)
		mem.Access(0, memsys.Load, 0x40, &fast)

		for fast != 0 {
			now++
			mem.Tick(now)
		}
		Expect(slow).To(Equal(1))
	})

	It("should bound outstanding accesses per compute unit", func() {
		var witness int
		mem.Access(0, memsys.Load, 0x0, &witness)
		mem.Access(0, memsys.Load, 0x1000, &witness)

		Expect(mem.CanAccess(0)).To(BeFalse())
		Expect(mem.CanAccess(1)).To(BeTrue())
		Expect(mem.Outstanding(0)).To(Equal(2))
		Expect(mem.Stats().Rejected).To(Equal(uint64(1)))
		Expect(func() { mem.Access(0, memsys.Load, 0x2000, &witness) }).To(Panic())

		completeAt(&witness)
		Expect(mem.CanAccess(0)).To(BeTrue())
		Expect(mem.Pending()).To(Equal(0))
	})
})
