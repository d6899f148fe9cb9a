package cu

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/deptrack"
	"github.com/sarchlab/evgsim/timing/eventheap"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

// aluEngine runs the VLIW bundles of triggered ALU clauses.
type aluEngine struct {
	cu *ComputeUnit

	// pending holds the CF uops of clauses still being fetched, finished
	// those whose last bundle has been fetched.
	pending  []*uop.Uop
	finished []*uop.Uop

	fetchQueue      []*uop.Uop
	fetchQueueBytes int

	instBuffer sim.Buffer
	execBuffer sim.Buffer

	heap *eventheap.Heap
	deps *deptrack.Tracker

	// ldsWrites absorbs the completions of local memory writes, which
	// nothing waits for.
	ldsWrites int
}

func newALUEngine(cu *ComputeUnit, freq sim.Freq) *aluEngine {
	return &aluEngine{
		cu:         cu,
		instBuffer: sim.NewBuffer(fmt.Sprintf("CU[%d].ALU.InstBuffer", cu.ID), 1),
		execBuffer: sim.NewBuffer(fmt.Sprintf("CU[%d].ALU.ExecBuffer", cu.ID), 1),
		heap:       eventheap.New(freq),
		deps:       deptrack.NewTracker(),
	}
}

func (e *aluEngine) run() {
	if len(e.pending) == 0 && len(e.finished) == 0 {
		return
	}

	e.write()
	e.execute()
	e.read()
	e.decode()
	e.fetch()
}

func (e *aluEngine) fetch() {
	cu := e.cu
	if len(e.pending) == 0 {
		return
	}

	if e.fetchQueueBytes+insts.MaxALUBundleSize > cu.cfg.ALUFetchQueueSize {
		cu.stats.ALUFetchStalls++
		return
	}

	cf := e.pending[0]
	wfs := &cu.wavefronts[cf.Wavefront]
	result := cu.emulator.ExecuteALU(wfs.wf)
	bundle := result.Bundle

	u := cu.newUop(insts.ClauseALU, cf.Wavefront)
	u.Bundle = bundle
	u.Last = result.ClauseDone
	u.NumLaneGroups = e.laneGroups(wfs.wf.NumWorkItems)
	u.ReadyCycle = cu.now + uint64(cu.cfg.ALUInstMemLatency)

	for i := range bundle.Insts {
		addDeps(u, &bundle.Insts[i])
		if bundle.Insts[i].IsLDS() {
			cu.stats.LDSInsts++
		}
	}

	for _, r := range result.LDSReads {
		u.AddLaneAccess(r.Lane, uop.LaneAccess{Kind: memsys.Load, Addr: r.Addr, Size: r.Size})
	}
	for _, w := range result.LDSWrites {
		u.AddLaneAccess(w.Lane, uop.LaneAccess{Kind: memsys.Store, Addr: w.Addr, Size: w.Size})
	}
	if u.HasAccesses(memsys.Load) {
		u.CoalesceAccesses(memsys.Load, uint64(cu.cfg.LocalMemBlockSize))
	}

	wfs.inFlight++
	if result.ClauseDone {
		e.pending = popFront(e.pending)
		e.finished = append(e.finished, cf)
		wfs.clauseFetched = true
	}

	if producer, found := e.deps.YoungestProducer(u); found {
		p := cu.store.Get(producer)
		p.Dependents = append(p.Dependents, u.Handle())
	} else {
		u.Ready = true
	}
	e.deps.SetProducer(u)

	e.fetchQueue = append(e.fetchQueue, u)
	e.fetchQueueBytes += bundle.Size()

	cu.stats.ALUBundles++
	cu.stats.ALUInsts += uint64(len(bundle.Insts))
	cu.stats.VLIWOccupancy[len(bundle.Insts)]++
	cu.fetched(u)
}

// addDeps declares the dependence slots of one instruction. Local memory
// instructions are ordered among themselves through a single token.
// Arithmetic results also update the PV or PS accumulator.
func addDeps(u *uop.Uop, inst *insts.ALUInst) {
	for _, src := range inst.Srcs {
		u.AddInput(uop.OperandDep(src))
	}

	if inst.IsLDS() {
		u.AddInput(uop.DepLDS)
		u.AddOutput(uop.DepLDS)
		return
	}

	u.AddOutput(uop.OperandDep(inst.Dst))
	if inst.Slot == insts.SlotT {
		u.AddOutput(uop.DepPS)
	} else {
		u.AddOutput(uop.DepPV)
	}
}

func (e *aluEngine) laneGroups(numWorkItems int) int {
	lanes := e.cu.cfg.NumStreamCores
	n := (numWorkItems + lanes - 1) / lanes
	if n == 0 {
		n = 1
	}
	return n
}

func (e *aluEngine) decode() {
	if len(e.fetchQueue) == 0 || !e.instBuffer.CanPush() {
		return
	}

	u := e.fetchQueue[0]
	if u.ReadyCycle > e.cu.now {
		return
	}

	e.fetchQueue = popFront(e.fetchQueue)
	e.fetchQueueBytes -= u.Bundle.Size()

	e.instBuffer.Push(u)
	e.cu.progress++
}

func (e *aluEngine) read() {
	cu := e.cu

	item := e.instBuffer.Peek()
	if item == nil {
		return
	}
	u := item.(*uop.Uop)

	if !u.Ready {
		cu.stats.ALUDepStalls++
		return
	}
	if !e.execBuffer.CanPush() {
		return
	}

	for len(u.Blocks) > 0 && cu.localMem.CanAccess() {
		last := len(u.Blocks) - 1
		cu.localMem.Access(memsys.Load, u.Blocks[last], &u.Witness)
		u.Blocks = u.Blocks[:last]
		cu.progress++
	}
	if len(u.Blocks) > 0 {
		cu.stats.LDSReadStalls++
		return
	}

	if u.HasAccesses(memsys.Store) {
		u.CoalesceAccesses(memsys.Store, uint64(cu.cfg.LocalMemBlockSize))
	}

	e.instBuffer.Pop()
	e.execBuffer.Push(u)
	cu.progress++
}

func (e *aluEngine) execute() {
	cu := e.cu

	item := e.execBuffer.Peek()
	if item == nil {
		return
	}
	u := item.(*uop.Uop)

	if u.Witness > 0 {
		return
	}

	e.heap.Schedule(cu.now+uint64(cu.cfg.ALUProcessingElementLatency), u)
	u.LaneGroupsExecuted++
	cu.stats.ALULaneGroups++
	cu.progress++

	if u.LaneGroupsExecuted == u.NumLaneGroups {
		e.execBuffer.Pop()
	}
}

func (e *aluEngine) write() {
	cu := e.cu

	for {
		h, ok := e.heap.PeekReady(cu.now)
		if !ok {
			return
		}
		u := cu.store.Get(h)

		if u.LaneGroupsWritten == 0 && !e.issueWrites(u) {
			cu.stats.LDSWriteStalls++
			return
		}

		e.heap.PopReady(cu.now)
		e.writeBack(u)
	}
}

// issueWrites sends the local memory writes of u and returns true once all
// of them are issued.
func (e *aluEngine) issueWrites(u *uop.Uop) bool {
	cu := e.cu
	for len(u.Blocks) > 0 && cu.localMem.CanAccess() {
		last := len(u.Blocks) - 1
		cu.localMem.Access(memsys.Store, u.Blocks[last], &e.ldsWrites)
		u.Blocks = u.Blocks[:last]
		cu.progress++
	}
	return len(u.Blocks) == 0
}

func (e *aluEngine) writeBack(u *uop.Uop) {
	cu := e.cu
	u.LaneGroupsWritten++
	cu.progress++

	if u.LaneGroupsWritten == 1 {
		for _, h := range u.Dependents {
			cu.store.Get(h).Ready = true
			cu.stats.ALUWakeups++
		}
		u.Dependents = u.Dependents[:0]
		e.deps.ClearIfOwner(u)
	}

	if u.LaneGroupsWritten < u.NumLaneGroups {
		return
	}

	id := u.Wavefront
	wfs := &cu.wavefronts[id]
	wfs.inFlight--
	cu.retire(u)

	if wfs.inFlight == 0 && wfs.clauseFetched {
		wfs.clauseFetched = false
		cu.clauseDone(&e.finished, id)
	}
}
