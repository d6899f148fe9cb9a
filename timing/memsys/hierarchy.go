package memsys

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/timing/config"
)

// HierarchyStats counts global memory traffic.
type HierarchyStats struct {
	Reads        uint64
	Writes       uint64
	DRAMAccesses uint64
	// Rejected counts CanAccess calls that returned false.
	Rejected uint64
}

// Hierarchy is the global memory of the device: a private L1 per compute
// unit, a shared L2, and DRAM. Access latency is decided at issue time from
// the tag state, so accesses can complete out of issue order.
type Hierarchy struct {
	l1 []*Cache
	l2 *Cache

	l1Latency   uint64
	l2Latency   uint64
	dramLatency uint64

	maxOutstanding int
	outstanding    []int

	now      uint64
	inflight *completionQueue
	stats    HierarchyStats
}

// NewHierarchy builds the global memory for a device configuration.
func NewHierarchy(cfg *config.Config) *Hierarchy {
	freq := sim.Freq(cfg.FrequencyMHz) * sim.MHz

	h := &Hierarchy{
		l1:             make([]*Cache, cfg.NumComputeUnits),
		l1Latency:      uint64(cfg.L1HitLatency),
		l2Latency:      uint64(cfg.L2HitLatency),
		dramLatency:    uint64(cfg.DRAMLatency),
		maxOutstanding: cfg.MaxOutstandingGlobalAccesses,
		outstanding:    make([]int, cfg.NumComputeUnits),
		inflight:       newCompletionQueue(freq),
	}

	for i := range h.l1 {
		h.l1[i] = NewCache(CacheConfig{
			Size:          cfg.L1Size,
			Associativity: cfg.L1Assoc,
			BlockSize:     cfg.L1BlockSize,
			HitLatency:    uint64(cfg.L1HitLatency),
		})
	}

	h.l2 = NewCache(CacheConfig{
		Size:          cfg.L2Size,
		Associativity: cfg.L2Assoc,
		BlockSize:     cfg.L2BlockSize,
		HitLatency:    uint64(cfg.L2HitLatency),
	})

	return h
}

// Tick completes the accesses due at cycle.
func (h *Hierarchy) Tick(cycle uint64) {
	h.now = cycle

	for {
		cuID, witness, ok := h.inflight.popDue(cycle)
		if !ok {
			return
		}
		h.outstanding[cuID]--
		*witness--
	}
}

// CanAccess returns true if the compute unit may issue another access.
func (h *Hierarchy) CanAccess(cuID int) bool {
	if h.outstanding[cuID] < h.maxOutstanding {
		return true
	}
	h.stats.Rejected++
	return false
}

// Access issues an access on behalf of a compute unit. The witness is
// incremented now and decremented when the access completes.
func (h *Hierarchy) Access(cuID int, kind AccessKind, addr uint64, witness *int) {
	if h.outstanding[cuID] >= h.maxOutstanding {
		log.Panicf("CU %d: global access to 0x%x exceeds %d outstanding accesses",
			cuID, addr, h.maxOutstanding)
	}

	if kind == Store {
		h.stats.Writes++
	} else {
		h.stats.Reads++
	}

	latency := h.lookup(cuID, kind, addr)

	h.outstanding[cuID]++
	*witness++
	h.inflight.push(h.now+latency, cuID, witness)
}

func (h *Hierarchy) lookup(cuID int, kind AccessKind, addr uint64) uint64 {
	latency := h.l1Latency

	l1 := h.l1[cuID].Access(kind, addr)
	if l1.Writeback {
		h.l2.Access(Store, l1.EvictedAddr)
	}
	if l1.Hit {
		return latency
	}

	latency += h.l2Latency
	l2 := h.l2.Access(kind, addr)
	if l2.Hit {
		return latency
	}

	h.stats.DRAMAccesses++
	return latency + h.dramLatency
}

// Outstanding returns the number of accesses in flight for a compute unit.
func (h *Hierarchy) Outstanding(cuID int) int {
	return h.outstanding[cuID]
}

// Pending returns the number of accesses in flight on the device.
func (h *Hierarchy) Pending() int {
	return h.inflight.len()
}

// L1Stats returns the L1 statistics of a compute unit.
func (h *Hierarchy) L1Stats(cuID int) CacheStats {
	return h.l1[cuID].Stats()
}

// L2Stats returns the shared L2 statistics.
func (h *Hierarchy) L2Stats() CacheStats {
	return h.l2.Stats()
}

// ResetStats clears the traffic counters of the hierarchy and of its caches.
// The cache contents are kept.
func (h *Hierarchy) ResetStats() {
	h.stats = HierarchyStats{}
	for _, l1 := range h.l1 {
		l1.ResetStats()
	}
	h.l2.ResetStats()
}

// Stats returns global memory statistics.
func (h *Hierarchy) Stats() HierarchyStats {
	return h.stats
}
