package cu

import (
	"log"

	"github.com/sarchlab/evgsim/timing/config"
)

// A Scheduler picks the wavefront the CF engine fetches from next. The picked
// wavefront is removed from the pool.
type Scheduler interface {
	Pick(pool *WavefrontPool, now uint64) (id int, ok bool)
}

// NewScheduler returns the scheduler of a policy.
func NewScheduler(policy config.SchedulingPolicy) Scheduler {
	switch policy {
	case config.RoundRobin:
		return RoundRobinScheduler{}
	case config.Greedy:
		return GreedyScheduler{}
	default:
		log.Panicf("unknown scheduling policy %q", policy)
		return nil
	}
}

// RoundRobinScheduler rotates over the pool starting at its cursor.
type RoundRobinScheduler struct{}

// Pick returns the first eligible wavefront at or after the cursor.
func (RoundRobinScheduler) Pick(pool *WavefrontPool, _ uint64) (int, bool) {
	n := len(pool.ids)
	if n == 0 {
		return 0, false
	}

	start := pool.cursor % n
	for i := 0; i < n; i++ {
		index := (start + i) % n
		if !pool.eligible(pool.ids[index]) {
			continue
		}

		id := pool.remove(index)
		pool.cursor = index
		return id, true
	}

	return 0, false
}

// GreedyScheduler picks the eligible wavefront scheduled least recently. Ties
// go to the earlier pool entry.
type GreedyScheduler struct{}

// Pick returns the least recently scheduled eligible wavefront and stamps it
// with now.
func (GreedyScheduler) Pick(pool *WavefrontPool, now uint64) (int, bool) {
	best := -1
	for i, id := range pool.ids {
		if !pool.eligible(id) {
			continue
		}
		if best < 0 || pool.lastScheduled[id] < pool.lastScheduled[pool.ids[best]] {
			best = i
		}
	}

	if best < 0 {
		return 0, false
	}

	id := pool.remove(best)
	pool.lastScheduled[id] = now
	return id, true
}
