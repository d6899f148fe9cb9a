// Package config provides the timing parameters of the simulated GPU.
//
// The parameters are read once at initialization and stay immutable for the
// run. Values default to an Evergreen-class device and can be overridden from
// a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/evgsim/insts"
)

// SchedulingPolicy selects how the CF engine picks the next wavefront.
type SchedulingPolicy string

// Scheduling policies.
const (
	// RoundRobin rotates over the wavefront pool.
	RoundRobin SchedulingPolicy = "round-robin"
	// Greedy picks the wavefront that was scheduled least recently.
	Greedy SchedulingPolicy = "greedy"
)

// Config holds the device, compute unit, and memory parameters.
type Config struct {
	// FrequencyMHz is the GPU clock. Default: 700 MHz.
	FrequencyMHz int `json:"frequency_mhz"`

	// NumComputeUnits is the number of compute units. Default: 20.
	NumComputeUnits int `json:"num_compute_units"`

	// NumStreamCores is the number of physical lanes per compute unit. A
	// wavefront is processed in WavefrontSize/NumStreamCores lane groups.
	// Default: 16.
	NumStreamCores int `json:"num_stream_cores"`

	// WavefrontSize is the number of work-items per wavefront. Default: 64.
	WavefrontSize int `json:"wavefront_size"`

	// MaxWorkGroupsPerCU bounds the work-groups mapped to a compute unit.
	// Default: 8.
	MaxWorkGroupsPerCU int `json:"max_work_groups_per_cu"`

	// MaxWavefrontsPerCU bounds the wavefronts mapped to a compute unit.
	// Default: 32.
	MaxWavefrontsPerCU int `json:"max_wavefronts_per_cu"`

	// NumRegisters is the size of the register file of a compute unit, in
	// 128-bit registers. Default: 16384.
	NumRegisters int `json:"num_registers"`

	// RegisterAllocSize is the register allocation granularity per
	// work-group. Default: 32.
	RegisterAllocSize int `json:"register_alloc_size"`

	// LocalMemSize is the local memory of a compute unit in bytes.
	// Default: 32 KB.
	LocalMemSize int `json:"local_mem_size"`

	// LocalMemAllocSize is the local memory allocation granularity.
	// Default: 1 KB.
	LocalMemAllocSize int `json:"local_mem_alloc_size"`

	// SchedulingPolicy selects the wavefront scheduler. Default: round-robin.
	SchedulingPolicy SchedulingPolicy `json:"scheduling_policy"`

	// CFInstMemLatency is the CF instruction fetch latency. Default: 2.
	CFInstMemLatency int `json:"cf_inst_mem_latency"`

	// ALUInstMemLatency is the ALU bundle fetch latency. Default: 2.
	ALUInstMemLatency int `json:"alu_inst_mem_latency"`

	// ALUFetchQueueSize is the ALU fetch queue capacity in bytes. It must
	// hold at least one maximal bundle. Default: 64.
	ALUFetchQueueSize int `json:"alu_fetch_queue_size"`

	// ALUProcessingElementLatency is the execution latency of one lane
	// group. Default: 4.
	ALUProcessingElementLatency int `json:"alu_processing_element_latency"`

	// TEXInstMemLatency is the fetch latency of TEX instructions. Default: 2.
	TEXInstMemLatency int `json:"tex_inst_mem_latency"`

	// TEXFetchQueueSize is the TEX fetch queue capacity in bytes.
	// Default: 32.
	TEXFetchQueueSize int `json:"tex_fetch_queue_size"`

	// TEXLoadQueueSize bounds the in-flight global reads. Default: 8.
	TEXLoadQueueSize int `json:"tex_load_queue_size"`

	// LocalMemLatency is the local memory access latency. Default: 2.
	LocalMemLatency int `json:"local_mem_latency"`

	// LocalMemBlockSize is the coalescing granularity of local memory.
	// Default: 256.
	LocalMemBlockSize int `json:"local_mem_block_size"`

	// LocalMemNumPorts is the number of local memory accesses accepted per
	// cycle. Default: 2.
	LocalMemNumPorts int `json:"local_mem_num_ports"`

	// L1 is the per compute unit global memory cache.
	L1Size       int `json:"l1_size"`
	L1Assoc      int `json:"l1_assoc"`
	L1BlockSize  int `json:"l1_block_size"`
	L1HitLatency int `json:"l1_hit_latency"`

	// L2 is shared by all compute units.
	L2Size       int `json:"l2_size"`
	L2Assoc      int `json:"l2_assoc"`
	L2BlockSize  int `json:"l2_block_size"`
	L2HitLatency int `json:"l2_hit_latency"`

	// DRAMLatency is the latency of an L2 miss. Default: 100.
	DRAMLatency int `json:"dram_latency"`

	// MaxOutstandingGlobalAccesses bounds the global accesses in flight per
	// compute unit. Default: 64.
	MaxOutstandingGlobalAccesses int `json:"max_outstanding_global_accesses"`

	// StallThreshold is the number of cycles without progress after which
	// the simulation stops as stalled. Default: 100000.
	StallThreshold int `json:"stall_threshold"`

	// MaxCycles stops the simulation after this many cycles. 0 means no
	// limit.
	MaxCycles int `json:"max_cycles"`
}

// DefaultConfig returns a Config with Evergreen-class default values.
func DefaultConfig() *Config {
	return &Config{
		FrequencyMHz:                 700,
		NumComputeUnits:              20,
		NumStreamCores:               16,
		WavefrontSize:                64,
		MaxWorkGroupsPerCU:           8,
		MaxWavefrontsPerCU:           32,
		NumRegisters:                 16384,
		RegisterAllocSize:            32,
		LocalMemSize:                 32 * 1024,
		LocalMemAllocSize:            1024,
		SchedulingPolicy:             RoundRobin,
		CFInstMemLatency:             2,
		ALUInstMemLatency:            2,
		ALUFetchQueueSize:            64,
		ALUProcessingElementLatency:  4,
		TEXInstMemLatency:            2,
		TEXFetchQueueSize:            32,
		TEXLoadQueueSize:             8,
		LocalMemLatency:              2,
		LocalMemBlockSize:            256,
		LocalMemNumPorts:             2,
		L1Size:                       16 * 1024,
		L1Assoc:                      4,
		L1BlockSize:                  64,
		L1HitLatency:                 4,
		L2Size:                       512 * 1024,
		L2Assoc:                      16,
		L2BlockSize:                  64,
		L2HitLatency:                 20,
		DRAMLatency:                  100,
		MaxOutstandingGlobalAccesses: 64,
		StallThreshold:               100000,
		MaxCycles:                    0,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NumLaneGroups returns the number of lane groups a full wavefront is split
// into.
func (c *Config) NumLaneGroups() int {
	return (c.WavefrontSize + c.NumStreamCores - 1) / c.NumStreamCores
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Validate checks the parameter ranges required by the timing model.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"frequency_mhz", c.FrequencyMHz},
		{"num_compute_units", c.NumComputeUnits},
		{"num_stream_cores", c.NumStreamCores},
		{"wavefront_size", c.WavefrontSize},
		{"max_work_groups_per_cu", c.MaxWorkGroupsPerCU},
		{"max_wavefronts_per_cu", c.MaxWavefrontsPerCU},
		{"num_registers", c.NumRegisters},
		{"register_alloc_size", c.RegisterAllocSize},
		{"local_mem_size", c.LocalMemSize},
		{"local_mem_alloc_size", c.LocalMemAllocSize},
		{"cf_inst_mem_latency", c.CFInstMemLatency},
		{"alu_inst_mem_latency", c.ALUInstMemLatency},
		{"alu_processing_element_latency", c.ALUProcessingElementLatency},
		{"tex_inst_mem_latency", c.TEXInstMemLatency},
		{"tex_load_queue_size", c.TEXLoadQueueSize},
		{"local_mem_latency", c.LocalMemLatency},
		{"local_mem_block_size", c.LocalMemBlockSize},
		{"local_mem_num_ports", c.LocalMemNumPorts},
		{"l1_hit_latency", c.L1HitLatency},
		{"l2_hit_latency", c.L2HitLatency},
		{"dram_latency", c.DRAMLatency},
		{"max_outstanding_global_accesses", c.MaxOutstandingGlobalAccesses},
		{"stall_threshold", c.StallThreshold},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be > 0", p.name)
		}
	}

	if c.WavefrontSize > 64 {
		return fmt.Errorf("wavefront_size must be <= 64")
	}
	if c.NumStreamCores > c.WavefrontSize {
		return fmt.Errorf("num_stream_cores must be <= wavefront_size")
	}
	if c.ALUFetchQueueSize < insts.MaxALUBundleSize {
		return fmt.Errorf("alu_fetch_queue_size must be >= %d", insts.MaxALUBundleSize)
	}
	if c.TEXFetchQueueSize < insts.TEXInstSize {
		return fmt.Errorf("tex_fetch_queue_size must be >= %d", insts.TEXInstSize)
	}
	if c.SchedulingPolicy != RoundRobin && c.SchedulingPolicy != Greedy {
		return fmt.Errorf("unknown scheduling_policy %q", c.SchedulingPolicy)
	}
	if err := validateCache("l1", c.L1Size, c.L1Assoc, c.L1BlockSize); err != nil {
		return err
	}
	if err := validateCache("l2", c.L2Size, c.L2Assoc, c.L2BlockSize); err != nil {
		return err
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be >= 0")
	}

	return nil
}

func validateCache(name string, size, assoc, blockSize int) error {
	if size <= 0 || assoc <= 0 || blockSize <= 0 {
		return fmt.Errorf("%s geometry must be > 0", name)
	}
	if size%(assoc*blockSize) != 0 {
		return fmt.Errorf("%s_size must be a multiple of %s_assoc * %s_block_size",
			name, name, name)
	}
	return nil
}
