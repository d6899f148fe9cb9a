package emu

import "log"

// WorkGroupState marks the progress of a work-group.
type WorkGroupState uint8

// Work-group states.
const (
	WorkGroupPending WorkGroupState = iota
	WorkGroupRunning
	WorkGroupFinished
)

func (s WorkGroupState) String() string {
	return [...]string{"Pending", "Running", "Finished"}[s]
}

// WorkGroup is a set of wavefronts that run on the same compute unit.
type WorkGroup struct {
	ID            int
	NDRange       *NDRange
	FirstGlobalID int
	Size          int
	State         WorkGroupState
	Wavefronts    []*Wavefront

	atBarrier int
}

func newWorkGroup(r *NDRange, id, firstGlobalID, size int) *WorkGroup {
	return &WorkGroup{
		ID:            id,
		NDRange:       r,
		FirstGlobalID: firstGlobalID,
		Size:          size,
	}
}

// Start moves a pending work-group to the running state.
func (wg *WorkGroup) Start() {
	if wg.State != WorkGroupPending {
		log.Panicf("work-group %d cannot start from state %s", wg.ID, wg.State)
	}
	wg.State = WorkGroupRunning
}

// Finish marks the work-group as finished.
func (wg *WorkGroup) Finish() {
	if wg.State != WorkGroupRunning {
		log.Panicf("work-group %d cannot finish from state %s", wg.ID, wg.State)
	}
	wg.State = WorkGroupFinished
}

// Running returns true if the work-group has been mapped and not finished.
func (wg *WorkGroup) Running() bool {
	return wg.State == WorkGroupRunning
}

func (wg *WorkGroup) arriveAtBarrier(wf *Wavefront) {
	wf.State = WavefrontAtBarrier
	wg.atBarrier++
	wg.tryReleaseBarrier()
}

func (wg *WorkGroup) tryReleaseBarrier() {
	if wg.atBarrier == 0 {
		return
	}

	waiting := 0
	for _, wf := range wg.Wavefronts {
		if wf.State != WavefrontFinished {
			waiting++
		}
	}

	if wg.atBarrier < waiting {
		return
	}

	for _, wf := range wg.Wavefronts {
		if wf.State == WavefrontAtBarrier {
			wf.State = WavefrontRunning
		}
	}
	wg.atBarrier = 0
}
