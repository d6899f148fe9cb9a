// Package emu provides functional emulation of Evergreen-style kernels at
// wavefront granularity.
//
// The emulator only tracks control state (program counters, clause kinds,
// barriers, completion) and the memory footprint of every instruction. It
// does not compute data values.
package emu

import (
	"fmt"

	"github.com/sarchlab/evgsim/insts"
)

// MaxWavefrontSize is the widest wavefront the emulator supports.
const MaxWavefrontSize = 64

// NDRange is the index space of one kernel launch.
type NDRange struct {
	Program *insts.Program

	GlobalSize    int
	LocalSize     int
	WavefrontSize int

	// RegistersPerWorkItem and LocalMemPerWorkGroup are the kernel's static
	// resource usage, used to compute compute unit occupancy.
	RegistersPerWorkItem int
	LocalMemPerWorkGroup int

	WorkGroups []*WorkGroup
}

// NDRangeOption configures an NDRange.
type NDRangeOption func(*NDRange)

// WithRegistersPerWorkItem overrides the register usage derived from the
// program.
func WithRegistersPerWorkItem(n int) NDRangeOption {
	return func(r *NDRange) {
		r.RegistersPerWorkItem = n
	}
}

// WithLocalMemPerWorkGroup sets the local memory allocated per work-group in
// bytes.
func WithLocalMemPerWorkGroup(bytes int) NDRangeOption {
	return func(r *NDRange) {
		r.LocalMemPerWorkGroup = bytes
	}
}

// NewNDRange splits the global range into work-groups and wavefronts.
func NewNDRange(
	prog *insts.Program,
	globalSize, localSize, wavefrontSize int,
	opts ...NDRangeOption,
) (*NDRange, error) {
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	if globalSize <= 0 || localSize <= 0 {
		return nil, fmt.Errorf("global size %d and local size %d must be > 0",
			globalSize, localSize)
	}
	if globalSize%localSize != 0 {
		return nil, fmt.Errorf("global size %d is not a multiple of local size %d",
			globalSize, localSize)
	}
	if wavefrontSize <= 0 || wavefrontSize > MaxWavefrontSize {
		return nil, fmt.Errorf("wavefront size %d must be in [1, %d]",
			wavefrontSize, MaxWavefrontSize)
	}

	r := &NDRange{
		Program:              prog,
		GlobalSize:           globalSize,
		LocalSize:            localSize,
		WavefrontSize:        wavefrontSize,
		RegistersPerWorkItem: prog.NumGPRsUsed(),
	}

	for _, opt := range opts {
		opt(r)
	}

	numWorkGroups := globalSize / localSize
	wfID := 0
	for i := 0; i < numWorkGroups; i++ {
		wg := newWorkGroup(r, i, i*localSize, localSize)
		for first := 0; first < localSize; first += wavefrontSize {
			n := wavefrontSize
			if first+n > localSize {
				n = localSize - first
			}
			wg.Wavefronts = append(wg.Wavefronts, newWavefront(wg, wfID, first, n))
			wfID++
		}
		r.WorkGroups = append(r.WorkGroups, wg)
	}

	return r, nil
}

// WavefrontsPerWorkGroup returns the number of wavefronts in each work-group.
func (r *NDRange) WavefrontsPerWorkGroup() int {
	return (r.LocalSize + r.WavefrontSize - 1) / r.WavefrontSize
}

// NumWavefronts returns the total number of wavefronts in the range.
func (r *NDRange) NumWavefronts() int {
	return len(r.WorkGroups) * r.WavefrontsPerWorkGroup()
}

// Finished returns true if all work-groups have finished.
func (r *NDRange) Finished() bool {
	for _, wg := range r.WorkGroups {
		if wg.State != WorkGroupFinished {
			return false
		}
	}
	return true
}
