package cu

import "log"

// WavefrontPool holds the compute unit local IDs of the wavefronts that may
// fetch their next CF instruction. A wavefront leaves the pool when it is
// scheduled and comes back when its CF uop completes.
type WavefrontPool struct {
	ids    []int
	cursor int

	lastScheduled []uint64
	eligible      func(id int) bool
}

// NewWavefrontPool creates an empty pool for size wavefront IDs. Eligible
// tells whether a wavefront in the pool can be scheduled now.
func NewWavefrontPool(size int, eligible func(id int) bool) *WavefrontPool {
	return &WavefrontPool{
		ids:           make([]int, 0, size),
		lastScheduled: make([]uint64, size),
		eligible:      eligible,
	}
}

// Insert adds a wavefront right behind the round-robin cursor, so it is the
// last one visited by the current rotation.
func (p *WavefrontPool) Insert(id int) {
	if p.Contains(id) {
		log.Panicf("wavefront %d is already in the pool", id)
	}

	p.ids = append(p.ids, 0)
	copy(p.ids[p.cursor+1:], p.ids[p.cursor:])
	p.ids[p.cursor] = id
	p.cursor++
}

// Contains returns true if the wavefront is in the pool.
func (p *WavefrontPool) Contains(id int) bool {
	for _, x := range p.ids {
		if x == id {
			return true
		}
	}
	return false
}

// Len returns the number of wavefronts in the pool.
func (p *WavefrontPool) Len() int {
	return len(p.ids)
}

// LastScheduled returns the cycle a wavefront was last picked by the greedy
// policy, 0 if never.
func (p *WavefrontPool) LastScheduled(id int) uint64 {
	return p.lastScheduled[id]
}

// SetLastScheduled overrides the greedy timestamp of a wavefront.
func (p *WavefrontPool) SetLastScheduled(id int, cycle uint64) {
	p.lastScheduled[id] = cycle
}

// Reset empties the pool and clears the timestamps of size wavefronts.
func (p *WavefrontPool) Reset(size int) {
	p.ids = p.ids[:0]
	p.cursor = 0
	if cap(p.lastScheduled) < size {
		p.lastScheduled = make([]uint64, size)
	}
	p.lastScheduled = p.lastScheduled[:size]
	for i := range p.lastScheduled {
		p.lastScheduled[i] = 0
	}
}

func (p *WavefrontPool) remove(index int) int {
	id := p.ids[index]
	p.ids = append(p.ids[:index], p.ids[index+1:]...)
	if index < p.cursor {
		p.cursor--
	}
	return id
}

func (p *WavefrontPool) removeID(id int) {
	for i, x := range p.ids {
		if x == id {
			p.remove(i)
			return
		}
	}
}
