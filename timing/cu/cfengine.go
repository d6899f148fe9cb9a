package cu

import (
	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

// cfEngine fetches, decodes, executes, and completes control-flow
// instructions. Fetch and instruction buffers hold one uop per wavefront.
type cfEngine struct {
	cu *ComputeUnit

	fetchBuffer []*uop.Uop
	instBuffer  []*uop.Uop

	decodeIndex  int
	executeIndex int

	completeQueue []*uop.Uop
}

func newCFEngine(cu *ComputeUnit) *cfEngine {
	return &cfEngine{cu: cu}
}

func (e *cfEngine) resize(numWavefronts int) {
	e.fetchBuffer = make([]*uop.Uop, numWavefronts)
	e.instBuffer = make([]*uop.Uop, numWavefronts)
	e.decodeIndex = 0
	e.executeIndex = 0
	e.completeQueue = e.completeQueue[:0]
}

func (e *cfEngine) run() {
	e.complete()
	e.execute()
	e.decode()
	e.fetch()
}

func (e *cfEngine) fetch() {
	cu := e.cu

	id, ok := cu.scheduler.Pick(cu.pool, cu.now)
	if !ok {
		return
	}

	result := cu.emulator.ExecuteCF(cu.wavefronts[id].wf)

	u := cu.newUop(insts.ClauseCF, id)
	u.CFInst = result.Inst
	u.Trigger = result.Trigger
	u.Last = result.Last
	u.GlobalMemWrite = result.Inst.IsGlobalMemWrite()
	u.ReadyCycle = cu.now + uint64(cu.cfg.CFInstMemLatency)

	if u.GlobalMemWrite {
		for _, w := range result.GlobalWrites {
			u.AddLaneAccess(w.Lane, uop.LaneAccess{
				Kind: memsys.Store,
				Addr: w.Addr,
				Size: w.Size,
			})
		}
		u.CoalesceAccesses(memsys.Store, uint64(cu.cfg.L1BlockSize))
	}

	e.fetchBuffer[id] = u
	cu.stats.CFInsts++
	cu.fetched(u)
}

func (e *cfEngine) decode() {
	n := len(e.fetchBuffer)
	for i := 0; i < n; i++ {
		id := (e.decodeIndex + i) % n

		u := e.fetchBuffer[id]
		if u == nil || u.ReadyCycle > e.cu.now || e.instBuffer[id] != nil {
			continue
		}

		e.fetchBuffer[id] = nil
		e.instBuffer[id] = u
		e.decodeIndex = (id + 1) % n
		e.cu.progress++
		return
	}
}

func (e *cfEngine) execute() {
	cu := e.cu
	n := len(e.instBuffer)

	for i := 0; i < n; i++ {
		id := (e.executeIndex + i) % n

		u := e.instBuffer[id]
		if u == nil {
			continue
		}

		// Pending completions hold back all new CF execution.
		if len(e.completeQueue) > 0 {
			cu.stats.CFExecuteStalls++
			return
		}

		switch u.Trigger {
		case insts.ClauseALU:
			cu.alu.pending = append(cu.alu.pending, u)
			cu.stats.ALUClauseTriggers++
		case insts.ClauseTEX:
			cu.tex.pending = append(cu.tex.pending, u)
			cu.stats.TEXClauseTriggers++
		default:
			if u.GlobalMemWrite && !cu.globalMem.CanAccess(cu.ID) {
				cu.stats.GlobalMemWriteStalls++
				return
			}
			e.completeQueue = append(e.completeQueue, u)
			e.issueWrites(u)
		}

		e.instBuffer[id] = nil
		e.executeIndex = (id + 1) % n
		cu.progress++
		return
	}
}

func (e *cfEngine) issueWrites(u *uop.Uop) {
	cu := e.cu
	for len(u.Blocks) > 0 && cu.globalMem.CanAccess(cu.ID) {
		last := len(u.Blocks) - 1
		cu.globalMem.Access(cu.ID, memsys.Store, u.Blocks[last], &u.Witness)
		u.Blocks = u.Blocks[:last]
		cu.stats.GlobalWrites++
		cu.progress++
	}
}

func (e *cfEngine) complete() {
	cu := e.cu

	for len(e.completeQueue) > 0 {
		u := e.completeQueue[0]

		if len(u.Blocks) > 0 {
			e.issueWrites(u)
		}
		if len(u.Blocks) > 0 || u.Witness > 0 {
			return
		}

		e.completeQueue = popFront(e.completeQueue)

		id := u.Wavefront
		last := u.Last
		cu.retire(u)

		if last {
			cu.wavefrontFinished(id)
		} else {
			cu.pool.Insert(id)
		}
	}
}

// popFront removes the head of a uop queue in place.
func popFront(q []*uop.Uop) []*uop.Uop {
	n := copy(q, q[1:])
	q[n] = nil
	return q[:n]
}
