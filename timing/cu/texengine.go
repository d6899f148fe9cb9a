package cu

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

// texEngine runs the fetch instructions of triggered TEX clauses. Fetches of
// one clause are independent, so the engine tracks no dependences.
type texEngine struct {
	cu *ComputeUnit

	pending  []*uop.Uop
	finished []*uop.Uop

	fetchQueue      []*uop.Uop
	fetchQueueBytes int

	instBuffer sim.Buffer

	// loadQueue holds issued fetches in issue order. Only the head may
	// leave, so fetches complete in order.
	loadQueue []*uop.Uop
}

func newTEXEngine(cu *ComputeUnit) *texEngine {
	return &texEngine{
		cu:         cu,
		instBuffer: sim.NewBuffer(fmt.Sprintf("CU[%d].TEX.InstBuffer", cu.ID), 1),
	}
}

func (e *texEngine) run() {
	if len(e.pending) == 0 && len(e.finished) == 0 {
		return
	}

	e.write()
	e.read()
	e.decode()
	e.fetch()
}

func (e *texEngine) fetch() {
	cu := e.cu
	if len(e.pending) == 0 {
		return
	}

	if e.fetchQueueBytes+insts.TEXInstSize > cu.cfg.TEXFetchQueueSize {
		cu.stats.TEXFetchStalls++
		return
	}

	cf := e.pending[0]
	wfs := &cu.wavefronts[cf.Wavefront]
	result := cu.emulator.ExecuteTEX(wfs.wf)

	u := cu.newUop(insts.ClauseTEX, cf.Wavefront)
	u.TEXInst = result.Inst
	u.Last = result.ClauseDone
	u.ReadyCycle = cu.now + uint64(cu.cfg.TEXInstMemLatency)

	for _, r := range result.GlobalReads {
		u.AddLaneAccess(r.Lane, uop.LaneAccess{Kind: memsys.Load, Addr: r.Addr, Size: r.Size})
	}
	u.CoalesceAccesses(memsys.Load, uint64(cu.cfg.L1BlockSize))

	wfs.inFlight++
	if result.ClauseDone {
		e.pending = popFront(e.pending)
		e.finished = append(e.finished, cf)
		wfs.clauseFetched = true
	}

	e.fetchQueue = append(e.fetchQueue, u)
	e.fetchQueueBytes += result.Inst.Size()

	cu.stats.TEXInsts++
	cu.fetched(u)
}

func (e *texEngine) decode() {
	if len(e.fetchQueue) == 0 || !e.instBuffer.CanPush() {
		return
	}

	u := e.fetchQueue[0]
	if u.ReadyCycle > e.cu.now {
		return
	}

	e.fetchQueue = popFront(e.fetchQueue)
	e.fetchQueueBytes -= u.TEXInst.Size()

	e.instBuffer.Push(u)
	e.cu.progress++
}

func (e *texEngine) read() {
	cu := e.cu

	item := e.instBuffer.Peek()
	if item == nil {
		return
	}
	u := item.(*uop.Uop)

	if len(e.loadQueue) >= cu.cfg.TEXLoadQueueSize {
		cu.stats.TEXLoadQueueStalls++
		return
	}

	for len(u.Blocks) > 0 && cu.globalMem.CanAccess(cu.ID) {
		last := len(u.Blocks) - 1
		cu.globalMem.Access(cu.ID, memsys.Load, u.Blocks[last], &u.Witness)
		u.Blocks = u.Blocks[:last]
		cu.stats.GlobalReads++
		cu.progress++
	}
	if len(u.Blocks) > 0 {
		cu.stats.GlobalMemReadStalls++
		return
	}

	e.instBuffer.Pop()
	e.loadQueue = append(e.loadQueue, u)
	cu.progress++
}

func (e *texEngine) write() {
	cu := e.cu

	for len(e.loadQueue) > 0 && e.loadQueue[0].Witness == 0 {
		u := e.loadQueue[0]
		e.loadQueue = popFront(e.loadQueue)

		id := u.Wavefront
		wfs := &cu.wavefronts[id]
		wfs.inFlight--
		cu.retire(u)

		if wfs.inFlight == 0 && wfs.clauseFetched {
			wfs.clauseFetched = false
			cu.clauseDone(&e.finished, id)
		}
	}
}

// LoadQueueLen returns the number of fetches waiting for global memory.
func (cu *ComputeUnit) LoadQueueLen() int {
	return len(cu.tex.loadQueue)
}
