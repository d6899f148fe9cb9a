// Package deptrack records, for every dependence slot, the in-flight uop that
// will produce it.
package deptrack

import (
	"log"

	"github.com/sarchlab/evgsim/timing/uop"
)

type entry struct {
	producer uop.Handle
	id       uint64
}

// Tracker maps dependence slots to their live producers. A slot has at most
// one producer at a time.
type Tracker struct {
	entries [uop.NumDeps]entry
	live    int
}

// NewTracker creates a Tracker with no producers.
func NewTracker() *Tracker {
	t := &Tracker{}
	for i := range t.entries {
		t.entries[i].producer = uop.NoHandle
	}
	return t
}

// SetProducer records u as the producer of every output slot of u. A younger
// producer replaces an older one.
func (t *Tracker) SetProducer(u *uop.Uop) {
	for _, d := range u.Outputs() {
		e := &t.entries[d]
		if e.producer != uop.NoHandle && e.id > u.ID {
			log.Panicf("uop %d overwrites younger producer %d of %s",
				u.ID, e.id, d)
		}
		if e.producer == uop.NoHandle {
			t.live++
		}
		e.producer = u.Handle()
		e.id = u.ID
	}
}

// Producer returns the live producer of a slot.
func (t *Tracker) Producer(d uop.Dep) (uop.Handle, bool) {
	e := t.entries[d]
	return e.producer, e.producer != uop.NoHandle
}

// YoungestProducer returns the most recently created live producer among the
// input slots of u.
func (t *Tracker) YoungestProducer(u *uop.Uop) (uop.Handle, bool) {
	found := uop.NoHandle
	var youngest uint64

	for _, d := range u.Inputs() {
		e := t.entries[d]
		if e.producer == uop.NoHandle {
			continue
		}
		if found == uop.NoHandle || e.id > youngest {
			found = e.producer
			youngest = e.id
		}
	}

	return found, found != uop.NoHandle
}

// ClearIfOwner removes u as producer of its output slots. Slots already
// taken over by a younger producer are left alone.
func (t *Tracker) ClearIfOwner(u *uop.Uop) {
	for _, d := range u.Outputs() {
		e := &t.entries[d]
		if e.producer == u.Handle() && e.id == u.ID {
			e.producer = uop.NoHandle
			e.id = 0
			t.live--
		}
	}
}

// Live returns the number of slots with a producer.
func (t *Tracker) Live() int {
	return t.live
}
