package memsys_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/timing/memsys"
)

var _ = Describe("LocalMemory", func() {
	var lds *memsys.LocalMemory

	BeforeEach(func() {
		lds = memsys.NewLocalMemory(memsys.LocalMemoryConfig{
			Latency:  2,
			NumPorts: 2,
		}, 700*sim.MHz)
		lds.Tick(1)
	})

	It("should accept one access per port per cycle", func() {
		var witness int

		Expect(lds.CanAccess()).To(BeTrue())
		lds.Access(memsys.Load, 0, &witness)
		Expect(lds.CanAccess()).To(BeTrue())
		lds.Access(memsys.Store, 256, &witness)
		Expect(lds.CanAccess()).To(BeFalse())

		Expect(witness).To(Equal(2))
		Expect(lds.Stats().PortStalls).To(Equal(uint64(1)))
		Expect(func() { lds.Access(memsys.Load, 512, &witness) }).To(Panic())

		lds.Tick(2)
		Expect(lds.CanAccess()).To(BeTrue())
	})

	It("should complete accesses after the latency", func() {
		var witness int
		lds.Access(memsys.Load, 0, &witness)

		lds.Tick(2)
		Expect(witness).To(Equal(1))

		lds.Tick(3)
		Expect(witness).To(Equal(0))
		Expect(lds.Pending()).To(Equal(0))
		Expect(lds.Stats().Reads).To(Equal(uint64(1)))
	})
})

var _ = Describe("AppendBlock", func() {
	It("should merge addresses of the same block", func() {
		var blocks []uint64
		for _, addr := range []uint64{0, 4, 64, 8, 130, 66} {
			blocks = memsys.AppendBlock(blocks, addr, 64)
		}
		Expect(blocks).To(Equal([]uint64{0, 64, 128}))
	})

	It("should append to existing blocks", func() {
		blocks := memsys.AppendBlock([]uint64{256}, 260, 256)
		blocks = memsys.AppendBlock(blocks, 512, 256)
		Expect(blocks).To(Equal([]uint64{256, 512}))
	})
})
