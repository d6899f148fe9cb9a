package cu

import (
	"fmt"
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

// wavefrontState is the compute unit view of a mapped wavefront.
type wavefrontState struct {
	wf   *emu.Wavefront
	slot int

	// inFlight counts the ALU or TEX uops of the current clause that have
	// not written back.
	inFlight int

	// clauseFetched is set once the last instruction of the current clause
	// has been fetched.
	clauseFetched bool
}

type workGroupSlot struct {
	wg       *emu.WorkGroup
	finished int
}

// Option configures a ComputeUnit.
type Option func(*ComputeUnit)

// WithLocalMemory replaces the default local memory model.
func WithLocalMemory(m LocalMemory) Option {
	return func(cu *ComputeUnit) {
		cu.localMem = m
	}
}

// WithIDSource shares a device-wide uop ID source.
func WithIDSource(ids *uop.IDSource) Option {
	return func(cu *ComputeUnit) {
		cu.ids = ids
	}
}

// WithUnmapHandler sets the function called when a work-group finishes. It
// must unmap the work-group. Without a handler the compute unit unmaps the
// work-group itself.
func WithUnmapHandler(f func(cu *ComputeUnit, wg *emu.WorkGroup)) Option {
	return func(cu *ComputeUnit) {
		cu.onFinish = f
	}
}

// ComputeUnit is the timing model of one compute unit.
type ComputeUnit struct {
	sim.HookableBase

	ID int

	cfg       *config.Config
	emulator  Emulator
	globalMem GlobalMemory
	localMem  LocalMemory
	ids       *uop.IDSource
	store     *uop.Store
	scheduler Scheduler
	pool      *WavefrontPool

	slots           []workGroupSlot
	numWorkGroups   int
	wavefrontsPerWG int
	wavefronts      []wavefrontState

	cf  *cfEngine
	alu *aluEngine
	tex *texEngine

	now      uint64
	tracing  bool
	trash    []*uop.Uop
	progress uint64
	onFinish func(cu *ComputeUnit, wg *emu.WorkGroup)

	stats Stats
}

// NewComputeUnit creates a compute unit. Before mapping work-groups, the
// owner must call SetOccupancy.
func NewComputeUnit(
	id int,
	cfg *config.Config,
	emulator Emulator,
	globalMem GlobalMemory,
	opts ...Option,
) *ComputeUnit {
	cu := &ComputeUnit{
		ID:        id,
		cfg:       cfg,
		emulator:  emulator,
		globalMem: globalMem,
		scheduler: NewScheduler(cfg.SchedulingPolicy),
	}

	for _, opt := range opts {
		opt(cu)
	}

	freq := sim.Freq(cfg.FrequencyMHz) * sim.MHz
	if cu.localMem == nil {
		cu.localMem = memsys.NewLocalMemory(memsys.LocalMemoryConfig{
			Latency:  uint64(cfg.LocalMemLatency),
			NumPorts: cfg.LocalMemNumPorts,
		}, freq)
	}

	cu.store = uop.NewStore(cu.ids)
	cu.pool = NewWavefrontPool(0, cu.eligible)
	cu.cf = newCFEngine(cu)
	cu.alu = newALUEngine(cu, freq)
	cu.tex = newTEXEngine(cu)

	return cu
}

// Name returns the name of the compute unit.
func (cu *ComputeUnit) Name() string {
	return fmt.Sprintf("CU[%d]", cu.ID)
}

// AcceptHook registers a hook. Once a hook is attached, retired uops are
// kept for one extra cycle before they are recycled.
func (cu *ComputeUnit) AcceptHook(hook sim.Hook) {
	cu.HookableBase.AcceptHook(hook)
	cu.tracing = true
}

func (cu *ComputeUnit) invokeHook(pos *sim.HookPos, item interface{}) {
	if !cu.tracing {
		return
	}
	cu.InvokeHook(sim.HookCtx{Domain: cu, Pos: pos, Item: item})
}

// SetOccupancy sizes the mapping slots for a kernel: capacity work-groups of
// wavefrontsPerWorkGroup wavefronts each.
func (cu *ComputeUnit) SetOccupancy(capacity, wavefrontsPerWorkGroup int) {
	if cu.numWorkGroups > 0 {
		log.Panicf("CU %d: cannot resize with %d work-groups mapped",
			cu.ID, cu.numWorkGroups)
	}
	if capacity <= 0 || wavefrontsPerWorkGroup <= 0 {
		log.Panicf("CU %d: invalid occupancy %d x %d",
			cu.ID, capacity, wavefrontsPerWorkGroup)
	}

	numWavefronts := capacity * wavefrontsPerWorkGroup

	cu.slots = make([]workGroupSlot, capacity)
	cu.wavefrontsPerWG = wavefrontsPerWorkGroup
	cu.wavefronts = make([]wavefrontState, numWavefronts)
	cu.pool.Reset(numWavefronts)
	cu.cf.resize(numWavefronts)
}

// Capacity returns the number of work-group slots.
func (cu *ComputeUnit) Capacity() int {
	return len(cu.slots)
}

// NumWorkGroups returns the number of mapped work-groups.
func (cu *ComputeUnit) NumWorkGroups() int {
	return cu.numWorkGroups
}

// CanMap returns true if a slot is free.
func (cu *ComputeUnit) CanMap() bool {
	return cu.numWorkGroups < len(cu.slots)
}

// MapWorkGroup places a pending work-group in the lowest free slot, starts it,
// and makes its wavefronts schedulable. It returns the slot.
func (cu *ComputeUnit) MapWorkGroup(wg *emu.WorkGroup) int {
	if !cu.CanMap() {
		log.Panicf("CU %d: cannot map work-group %d, all %d slots occupied",
			cu.ID, wg.ID, len(cu.slots))
	}
	if len(wg.Wavefronts) > cu.wavefrontsPerWG {
		log.Panicf("CU %d: work-group %d has %d wavefronts, slots hold %d",
			cu.ID, wg.ID, len(wg.Wavefronts), cu.wavefrontsPerWG)
	}

	slot := -1
	for i := range cu.slots {
		if cu.slots[i].wg == wg {
			log.Panicf("CU %d: work-group %d is already mapped", cu.ID, wg.ID)
		}
		if slot < 0 && cu.slots[i].wg == nil {
			slot = i
		}
	}

	cu.slots[slot] = workGroupSlot{wg: wg}
	cu.numWorkGroups++
	wg.Start()

	for i, wf := range wg.Wavefronts {
		id := slot*cu.wavefrontsPerWG + i
		cu.wavefronts[id] = wavefrontState{wf: wf, slot: slot}
		cu.pool.SetLastScheduled(id, 0)
		cu.pool.Insert(id)
	}

	cu.stats.MappedWorkGroups++
	cu.progress++
	cu.invokeHook(HookPosWorkGroupMapped, wg)

	return slot
}

// UnmapWorkGroup frees the slot of a work-group. Its wavefronts stop being
// schedulable.
func (cu *ComputeUnit) UnmapWorkGroup(wg *emu.WorkGroup) {
	slot := cu.slotOf(wg)
	if slot < 0 {
		log.Panicf("CU %d: work-group %d is not mapped", cu.ID, wg.ID)
	}

	for i := range wg.Wavefronts {
		id := slot*cu.wavefrontsPerWG + i
		cu.pool.removeID(id)
		cu.wavefronts[id] = wavefrontState{}
	}

	cu.slots[slot] = workGroupSlot{}
	cu.numWorkGroups--

	cu.stats.UnmappedWorkGroups++
	cu.invokeHook(HookPosWorkGroupUnmapped, wg)
}

func (cu *ComputeUnit) slotOf(wg *emu.WorkGroup) int {
	for i := range cu.slots {
		if cu.slots[i].wg == wg {
			return i
		}
	}
	return -1
}

// Tick advances the compute unit by one cycle.
func (cu *ComputeUnit) Tick(now uint64) {
	cu.now = now
	cu.stats.ActiveCycles++

	cu.localMem.Tick(now)
	cu.ReleaseRetired()

	cu.alu.run()
	cu.tex.run()
	cu.cf.run()
}

// Now returns the cycle of the last Tick.
func (cu *ComputeUnit) Now() uint64 {
	return cu.now
}

// Progress returns a counter that changes whenever a uop moves, a work-group
// is mapped, or a memory access is issued.
func (cu *ComputeUnit) Progress() uint64 {
	return cu.progress
}

// Stats returns the counters of the compute unit.
func (cu *ComputeUnit) Stats() Stats {
	return cu.stats
}

// ResetStats clears the counters, typically at a kernel launch.
func (cu *ComputeUnit) ResetStats() {
	cu.stats = Stats{}
}

// LiveUops returns the number of uops not yet recycled.
func (cu *ComputeUnit) LiveUops() int {
	return cu.store.Live()
}

// Idle returns true if no work-group is mapped and no uop is in flight.
func (cu *ComputeUnit) Idle() bool {
	return cu.numWorkGroups == 0 && cu.store.Live() == 0
}

func (cu *ComputeUnit) eligible(id int) bool {
	wfs := &cu.wavefronts[id]
	return wfs.wf != nil && wfs.wf.Eligible() && cu.cf.fetchBuffer[id] == nil
}

func (cu *ComputeUnit) newUop(kind insts.ClauseKind, id int) *uop.Uop {
	u := cu.store.Alloc()
	u.Kind = kind
	u.Wavefront = id
	u.WorkGroupSlot = cu.wavefronts[id].slot
	u.FetchCycle = cu.now
	return u
}

// fetched publishes a uop once its fields are filled in.
func (cu *ComputeUnit) fetched(u *uop.Uop) {
	cu.progress++
	cu.invokeHook(HookPosUopFetch, u)
}

// retire releases a uop that left its last buffer.
func (cu *ComputeUnit) retire(u *uop.Uop) {
	cu.stats.RetiredUops++
	cu.progress++
	cu.invokeHook(HookPosUopRetire, u)

	if cu.tracing {
		cu.trash = append(cu.trash, u)
		return
	}
	cu.store.Free(u)
}

// ReleaseRetired frees the uops kept for hooks since the last cycle. Tick
// calls it first; the owner calls it for a compute unit it stops ticking.
func (cu *ComputeUnit) ReleaseRetired() {
	for _, u := range cu.trash {
		cu.store.Free(u)
	}
	cu.trash = cu.trash[:0]
}

// clauseDone hands the CF uop of a finished clause to the CF engine.
func (cu *ComputeUnit) clauseDone(finished *[]*uop.Uop, wfID int) {
	for i, cf := range *finished {
		if cf.Wavefront != wfID {
			continue
		}
		*finished = append((*finished)[:i], (*finished)[i+1:]...)
		cu.cf.completeQueue = append(cu.cf.completeQueue, cf)
		return
	}

	log.Panicf("CU %d: no finished clause for wavefront %d", cu.ID, wfID)
}

func (cu *ComputeUnit) wavefrontFinished(id int) {
	wfs := &cu.wavefronts[id]
	slot := &cu.slots[wfs.slot]
	slot.finished++

	if slot.finished < len(slot.wg.Wavefronts) {
		return
	}

	wg := slot.wg
	wg.Finish()
	if cu.onFinish != nil {
		cu.onFinish(cu, wg)
		return
	}
	cu.UnmapWorkGroup(wg)
}
