package emu

import "github.com/sarchlab/evgsim/insts"

// WavefrontState marks what a wavefront is waiting for.
type WavefrontState uint8

// Wavefront states.
const (
	WavefrontRunning WavefrontState = iota
	WavefrontAtBarrier
	WavefrontFinished
)

// A Wavefront is a group of work-items that execute in lockstep.
type Wavefront struct {
	// ID is unique within the ND-range.
	ID            int
	IDInWorkGroup int
	WorkGroup     *WorkGroup

	FirstLocalID int
	NumWorkItems int

	State      WavefrontState
	ClauseKind insts.ClauseKind

	CFPC     int
	clause   int
	clausePC int
}

func newWavefront(wg *WorkGroup, id, firstLocalID, numWorkItems int) *Wavefront {
	return &Wavefront{
		ID:            id,
		IDInWorkGroup: firstLocalID / wg.NDRange.WavefrontSize,
		WorkGroup:     wg,
		FirstLocalID:  firstLocalID,
		NumWorkItems:  numWorkItems,
	}
}

// LocalID returns the work-group-local ID of a lane.
func (wf *Wavefront) LocalID(lane int) int {
	return wf.FirstLocalID + lane
}

// GlobalID returns the global ID of a lane.
func (wf *Wavefront) GlobalID(lane int) int {
	return wf.WorkGroup.FirstGlobalID + wf.FirstLocalID + lane
}

// Eligible returns true if the wavefront may fetch its next CF instruction.
func (wf *Wavefront) Eligible() bool {
	return wf.State == WavefrontRunning && wf.WorkGroup.Running()
}

// Finished returns true once the wavefront executed its last instruction.
func (wf *Wavefront) Finished() bool {
	return wf.State == WavefrontFinished
}
