// Package eventheap schedules uops to complete at a future cycle.
//
// The heap is backed by an Akita event queue. Cycles are converted to
// simulated time with the compute unit frequency, so entries are ordered the
// same way Akita orders events.
package eventheap

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/timing/uop"
)

type entry struct {
	time   sim.VTimeInSec
	cycle  uint64
	handle uop.Handle
}

func (e *entry) Time() sim.VTimeInSec {
	return e.time
}

func (e *entry) Handler() sim.Handler {
	return nil
}

func (e *entry) IsSecondary() bool {
	return false
}

// Heap is a time-ordered queue of uops.
type Heap struct {
	queue *sim.EventQueueImpl
	freq  sim.Freq
	spare []*entry
}

// New creates an empty Heap for a clock of the given frequency.
func New(freq sim.Freq) *Heap {
	return &Heap{
		queue: sim.NewEventQueue(),
		freq:  freq,
	}
}

// Schedule inserts u to become ready at the given cycle.
func (h *Heap) Schedule(cycle uint64, u *uop.Uop) {
	var e *entry
	if n := len(h.spare); n > 0 {
		e = h.spare[n-1]
		h.spare = h.spare[:n-1]
	} else {
		e = &entry{}
	}

	e.time = sim.VTimeInSec(float64(cycle) / float64(h.freq))
	e.cycle = cycle
	e.handle = u.Handle()

	h.queue.Push(e)
}

// PeekReady returns the earliest entry scheduled at or before now without
// removing it.
func (h *Heap) PeekReady(now uint64) (uop.Handle, bool) {
	if h.queue.Len() == 0 {
		return uop.NoHandle, false
	}

	e := h.queue.Peek().(*entry)
	if e.cycle > now {
		return uop.NoHandle, false
	}

	return e.handle, true
}

// PopReady removes and returns the earliest entry scheduled at or before now.
func (h *Heap) PopReady(now uint64) (uop.Handle, bool) {
	if _, ok := h.PeekReady(now); !ok {
		return uop.NoHandle, false
	}

	e := h.queue.Pop().(*entry)
	handle := e.handle
	h.spare = append(h.spare, e)

	return handle, true
}

// Len returns the number of scheduled entries.
func (h *Heap) Len() int {
	return h.queue.Len()
}
