package cu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/cu"
)

var _ = Describe("Scheduler", func() {
	const (
		A = iota
		B
		C
	)

	var (
		eligible map[int]bool
		pool     *cu.WavefrontPool
	)

	BeforeEach(func() {
		eligible = map[int]bool{A: true, B: true, C: true}
		pool = cu.NewWavefrontPool(3, func(id int) bool { return eligible[id] })
		pool.Insert(A)
		pool.Insert(B)
		pool.Insert(C)
	})

	Describe("Round-robin", func() {
		var s cu.Scheduler

		BeforeEach(func() {
			s = cu.NewScheduler(config.RoundRobin)
		})

		It("should cycle through the pool with immediate reinsertion", func() {
			var order []int
			for i := 0; i < 9; i++ {
				id, ok := s.Pick(pool, uint64(i))
				Expect(ok).To(BeTrue())
				order = append(order, id)
				pool.Insert(id)
			}

			Expect(order).To(Equal([]int{A, B, C, A, B, C, A, B, C}))
		})

		It("should drain the pool in order without reinsertion", func() {
			var order []int
			for {
				id, ok := s.Pick(pool, 0)
				if !ok {
					break
				}
				order = append(order, id)
			}

			Expect(order).To(Equal([]int{A, B, C}))
			Expect(pool.Len()).To(Equal(0))
		})

		It("should skip ineligible wavefronts", func() {
			eligible[A] = false

			id, ok := s.Pick(pool, 0)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(B))
			Expect(pool.Contains(A)).To(BeTrue())
		})

		It("should return none when nothing is eligible", func() {
			eligible[A], eligible[B], eligible[C] = false, false, false

			_, ok := s.Pick(pool, 0)
			Expect(ok).To(BeFalse())
			Expect(pool.Len()).To(Equal(3))
		})
	})

	Describe("Greedy", func() {
		var s cu.Scheduler

		BeforeEach(func() {
			s = cu.NewScheduler(config.Greedy)
		})

		It("should pick the least recently scheduled wavefront", func() {
			pool.SetLastScheduled(A, 5)
			pool.SetLastScheduled(B, 10)

			id, ok := s.Pick(pool, 20)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(C))
			Expect(pool.LastScheduled(C)).To(Equal(uint64(20)))
			Expect(pool.Contains(C)).To(BeFalse())

			id, _ = s.Pick(pool, 21)
			Expect(id).To(Equal(A))
		})

		It("should break ties by pool order", func() {
			id, _ := s.Pick(pool, 1)
			Expect(id).To(Equal(A))
			id, _ = s.Pick(pool, 2)
			Expect(id).To(Equal(B))
		})

		It("should ignore ineligible wavefronts", func() {
			pool.SetLastScheduled(A, 5)
			pool.SetLastScheduled(B, 10)
			eligible[C] = false

			id, _ := s.Pick(pool, 20)
			Expect(id).To(Equal(A))
		})
	})

	It("should panic on an unknown policy", func() {
		Expect(func() { cu.NewScheduler("fifo") }).To(Panic())
	})

	It("should panic when a wavefront is inserted twice", func() {
		Expect(func() { pool.Insert(A) }).To(Panic())
	})
})
