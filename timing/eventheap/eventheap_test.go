package eventheap_test

import (
	"math/rand"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/timing/eventheap"
	"github.com/sarchlab/evgsim/timing/uop"
)

var _ = Describe("Heap", func() {
	var (
		store *uop.Store
		heap  *eventheap.Heap
	)

	BeforeEach(func() {
		store = uop.NewStore(nil)
		heap = eventheap.New(700 * sim.MHz)
	})

	It("should return nothing when empty", func() {
		_, ok := heap.PopReady(100)
		Expect(ok).To(BeFalse())
		_, ok = heap.PeekReady(100)
		Expect(ok).To(BeFalse())
	})

	It("should hold entries until their cycle arrives", func() {
		u := store.Alloc()
		heap.Schedule(10, u)

		_, ok := heap.PopReady(9)
		Expect(ok).To(BeFalse())
		_, ok = heap.PeekReady(9)
		Expect(ok).To(BeFalse())

		h, ok := heap.PeekReady(10)
		Expect(ok).To(BeTrue())
		Expect(h).To(Equal(u.Handle()))
		Expect(heap.Len()).To(Equal(1))

		h, ok = heap.PopReady(10)
		Expect(ok).To(BeTrue())
		Expect(h).To(Equal(u.Handle()))
		Expect(heap.Len()).To(Equal(0))
	})

	It("should release entries in cycle order", func() {
		rng := rand.New(rand.NewSource(1))
		cycles := map[uop.Handle]uint64{}

		for i := 0; i < 200; i++ {
			u := store.Alloc()
			c := uint64(rng.Intn(1000)) + 1
			cycles[u.Handle()] = c
			heap.Schedule(c, u)
		}

		var popped []uint64
		for now := uint64(0); now <= 1000; now++ {
			for {
				h, ok := heap.PopReady(now)
				if !ok {
					break
				}
				Expect(cycles[h]).To(BeNumerically("<=", now))
				popped = append(popped, cycles[h])
			}
		}

		Expect(popped).To(HaveLen(200))
		Expect(sort.SliceIsSorted(popped, func(i, j int) bool {
			return popped[i] < popped[j]
		})).To(BeTrue())
	})

	It("should peek the earliest entry without removing it", func() {
		heap.Schedule(30, store.Alloc())
		early := store.Alloc()
		heap.Schedule(20, early)

		_, ok := heap.PeekReady(19)
		Expect(ok).To(BeFalse())

		h, ok := heap.PeekReady(25)
		Expect(ok).To(BeTrue())
		Expect(h).To(Equal(early.Handle()))
		Expect(heap.Len()).To(Equal(2))
	})
})
