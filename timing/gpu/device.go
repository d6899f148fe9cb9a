// Package gpu provides the device-level driver of the timing simulation. It
// owns the compute units and the global memory, dispatches work-groups onto
// compute units, and advances the clock until the kernel finishes.
package gpu

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/timing/config"
	"github.com/sarchlab/evgsim/timing/cu"
	"github.com/sarchlab/evgsim/timing/memsys"
	"github.com/sarchlab/evgsim/timing/uop"
)

// Memory is the global memory as seen by the device. The device ticks it
// once per cycle before the compute units.
type Memory interface {
	cu.GlobalMemory
	Tick(cycle uint64)
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

// WithEmulator replaces the functional emulator.
func WithEmulator(e cu.Emulator) Option {
	return func(d *Device) {
		d.emulator = e
	}
}

// WithMemory replaces the global memory hierarchy.
func WithMemory(m Memory) Option {
	return func(d *Device) {
		d.memory = m
	}
}

// WithHook attaches a hook to every compute unit.
func WithHook(h sim.Hook) Option {
	return func(d *Device) {
		d.hooks = append(d.hooks, h)
	}
}

// Device is a GPU made of compute units sharing a global memory.
type Device struct {
	cfg       *config.Config
	logger    *slog.Logger
	emulator  cu.Emulator
	memory    Memory
	hierarchy *memsys.Hierarchy
	hooks     []sim.Hook
	ids       uop.IDSource

	cus   []*cu.ComputeUnit
	ready *cuList
	busy  *cuList

	// draining holds the compute units that left the busy list with
	// retired uops still kept for hooks.
	draining []*cu.ComputeUnit

	ndRange *emu.NDRange
	pending []*emu.WorkGroup
	cycle   uint64
	unmaps  uint64
}

// NewDevice builds a device. It fails if the configuration is invalid.
func NewDevice(cfg *config.Config, opts ...Option) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d := &Device{
		cfg:    cfg.Clone(),
		logger: slog.Default(),
		ready:  newCUList(cfg.NumComputeUnits),
		busy:   newCUList(cfg.NumComputeUnits),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.emulator == nil {
		d.emulator = emu.NewEmulator()
	}
	if d.memory == nil {
		d.hierarchy = memsys.NewHierarchy(d.cfg)
		d.memory = d.hierarchy
	}

	for i := 0; i < d.cfg.NumComputeUnits; i++ {
		c := cu.NewComputeUnit(i, d.cfg, d.emulator, d.memory,
			cu.WithIDSource(&d.ids),
			cu.WithUnmapHandler(d.UnmapWorkGroup),
		)
		for _, h := range d.hooks {
			c.AcceptHook(h)
		}
		d.cus = append(d.cus, c)
	}

	return d, nil
}

// Config returns the configuration of the device.
func (d *Device) Config() *config.Config {
	return d.cfg
}

// ComputeUnits returns the compute units of the device.
func (d *Device) ComputeUnits() []*cu.ComputeUnit {
	return d.cus
}

// Hierarchy returns the built-in global memory, or nil if it was replaced.
func (d *Device) Hierarchy() *memsys.Hierarchy {
	return d.hierarchy
}

// Cycle returns the current cycle.
func (d *Device) Cycle() uint64 {
	return d.cycle
}

// ReadyList returns the IDs of the compute units that accept work-groups, in
// list order.
func (d *Device) ReadyList() []int {
	return d.ready.ids()
}

// BusyList returns the IDs of the compute units that have work-groups, in
// list order.
func (d *Device) BusyList() []int {
	return d.busy.ids()
}

// Launch prepares the device for a kernel. All compute units become ready and
// all work-groups of the range are queued for dispatch.
func (d *Device) Launch(r *emu.NDRange) error {
	if r.WavefrontSize != d.cfg.WavefrontSize {
		return fmt.Errorf("kernel wavefront size %d does not match device wavefront size %d",
			r.WavefrontSize, d.cfg.WavefrontSize)
	}
	if d.busy.len() > 0 {
		return fmt.Errorf("device is still running %d compute units", d.busy.len())
	}

	perCU := WorkGroupsPerCU(d.cfg, r)
	if perCU == 0 {
		return fmt.Errorf("a work-group of %d work-items does not fit on a compute unit",
			r.LocalSize)
	}

	d.ready.clear()
	d.busy.clear()
	for _, c := range d.cus {
		c.SetOccupancy(perCU, r.WavefrontsPerWorkGroup())
		c.ResetStats()
		d.ready.pushBack(c)
	}
	if d.hierarchy != nil {
		d.hierarchy.ResetStats()
	}

	d.ndRange = r
	d.pending = d.pending[:0]
	for _, wg := range r.WorkGroups {
		if wg.State == emu.WorkGroupPending {
			d.pending = append(d.pending, wg)
		}
	}
	d.cycle = 0
	d.unmaps = 0

	d.logger.Debug("kernel launched",
		"work_groups", len(r.WorkGroups),
		"wavefronts_per_work_group", r.WavefrontsPerWorkGroup(),
		"work_groups_per_cu", perCU)

	return nil
}

// MapWorkGroup maps a work-group onto a compute unit and updates the ready
// and busy lists.
func (d *Device) MapWorkGroup(c *cu.ComputeUnit, wg *emu.WorkGroup) {
	if !d.ready.contains(c) {
		log.Panicf("CU %d is not ready for work-group %d", c.ID, wg.ID)
	}

	slot := c.MapWorkGroup(wg)

	if !c.CanMap() {
		d.ready.remove(c)
	}
	if c.NumWorkGroups() == 1 {
		d.busy.pushBack(c)
	}

	d.logger.Debug("work-group mapped",
		"cycle", d.cycle, "cu", c.ID, "work_group", wg.ID, "slot", slot)
}

// UnmapWorkGroup removes a work-group from a compute unit and updates the
// ready and busy lists.
func (d *Device) UnmapWorkGroup(c *cu.ComputeUnit, wg *emu.WorkGroup) {
	c.UnmapWorkGroup(wg)
	d.unmaps++

	if c.CanMap() {
		d.ready.pushBack(c)
	}
	if c.NumWorkGroups() == 0 {
		d.busy.remove(c)
		d.draining = append(d.draining, c)
	}

	d.logger.Debug("work-group unmapped",
		"cycle", d.cycle, "cu", c.ID, "work_group", wg.ID)
}

// Unmaps returns the number of work-groups unmapped since Launch.
func (d *Device) Unmaps() uint64 {
	return d.unmaps
}

func (d *Device) dispatch() {
	for len(d.pending) > 0 {
		c := d.ready.front()
		if c == nil {
			return
		}

		wg := d.pending[0]
		d.pending = d.pending[1:]
		d.MapWorkGroup(c, wg)
	}
}

// Tick advances the device by one cycle.
func (d *Device) Tick() {
	d.cycle++

	d.releaseRetired()
	d.dispatch()
	d.memory.Tick(d.cycle)

	for e := d.busy.l.Front(); e != nil; {
		next := e.Next()
		e.Value.(*cu.ComputeUnit).Tick(d.cycle)
		e = next
	}
}

func (d *Device) releaseRetired() {
	for _, c := range d.draining {
		c.ReleaseRetired()
	}
	d.draining = d.draining[:0]
}

func (d *Device) progress() uint64 {
	var p uint64
	for _, c := range d.cus {
		p += c.Progress()
	}
	return p
}

// Run launches a kernel and simulates it until it finishes, hits the cycle
// limit, or stops making progress.
func (d *Device) Run(r *emu.NDRange) (*Result, error) {
	if err := d.Launch(r); err != nil {
		return nil, err
	}

	reason := d.loop()
	d.releaseRetired()

	d.logger.Debug("simulation terminated",
		"reason", reason.String(), "cycles", d.cycle)

	return &Result{
		Reason: reason,
		Cycles: d.cycle,
		Stats:  d.Statistics(),
	}, nil
}

func (d *Device) loop() TerminationReason {
	idle := 0
	last := d.progress()

	for {
		if d.ndRange.Finished() {
			return TerminationFinished
		}
		if d.cfg.MaxCycles > 0 && d.cycle >= uint64(d.cfg.MaxCycles) {
			return TerminationMaxCycles
		}

		d.Tick()

		p := d.progress()
		if p == last {
			idle++
		} else {
			idle = 0
			last = p
		}

		if idle >= d.cfg.StallThreshold {
			d.logger.Warn("simulation stalled",
				"cycle", d.cycle, "busy_cus", d.busy.ids())
			return TerminationStalled
		}
	}
}
