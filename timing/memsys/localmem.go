package memsys

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"
)

// LocalMemoryConfig describes the local data share of a compute unit.
type LocalMemoryConfig struct {
	Latency  uint64
	NumPorts int
}

// LocalMemoryStats counts local memory traffic.
type LocalMemoryStats struct {
	Reads      uint64
	Writes     uint64
	PortStalls uint64
}

// LocalMemory is a fixed-latency scratchpad that accepts NumPorts block
// accesses per cycle.
type LocalMemory struct {
	config LocalMemoryConfig

	now       uint64
	portsUsed int
	inflight  *completionQueue
	stats     LocalMemoryStats
}

// NewLocalMemory creates a LocalMemory clocked at freq.
func NewLocalMemory(config LocalMemoryConfig, freq sim.Freq) *LocalMemory {
	return &LocalMemory{
		config:   config,
		inflight: newCompletionQueue(freq),
	}
}

// Tick starts a new cycle: completes due accesses and frees all ports.
func (m *LocalMemory) Tick(cycle uint64) {
	m.now = cycle
	m.portsUsed = 0

	for {
		_, witness, ok := m.inflight.popDue(cycle)
		if !ok {
			return
		}
		*witness--
	}
}

// CanAccess returns true if a port is free in the current cycle.
func (m *LocalMemory) CanAccess() bool {
	if m.portsUsed < m.config.NumPorts {
		return true
	}
	m.stats.PortStalls++
	return false
}

// Access occupies a port and increments the witness until the access
// completes.
func (m *LocalMemory) Access(kind AccessKind, addr uint64, witness *int) {
	if m.portsUsed >= m.config.NumPorts {
		log.Panicf("local memory access to 0x%x without a free port", addr)
	}
	m.portsUsed++

	if kind == Store {
		m.stats.Writes++
	} else {
		m.stats.Reads++
	}

	*witness++
	m.inflight.push(m.now+m.config.Latency, 0, witness)
}

// Pending returns the number of accesses in flight.
func (m *LocalMemory) Pending() int {
	return m.inflight.len()
}

// Stats returns local memory statistics.
func (m *LocalMemory) Stats() LocalMemoryStats {
	return m.stats
}
