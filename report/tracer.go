package report

import (
	"context"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/evgsim/emu"
	"github.com/sarchlab/evgsim/insts"
	"github.com/sarchlab/evgsim/timing/cu"
	"github.com/sarchlab/evgsim/timing/uop"
)

// UopTracer is a compute unit hook that logs the life of every uop and the
// mapping of work-groups.
type UopTracer struct {
	logger *slog.Logger
	level  slog.Level
}

// NewUopTracer creates a tracer that logs at the given level.
func NewUopTracer(logger *slog.Logger, level slog.Level) *UopTracer {
	return &UopTracer{logger: logger, level: level}
}

// Func implements sim.Hook.
func (t *UopTracer) Func(ctx sim.HookCtx) {
	c, ok := ctx.Domain.(*cu.ComputeUnit)
	if !ok {
		return
	}

	switch ctx.Pos {
	case cu.HookPosUopFetch:
		u := ctx.Item.(*uop.Uop)
		t.logger.Log(context.Background(), t.level, "uop fetched",
			"cycle", c.Now(), "cu", c.ID, "uop", u.ID,
			"wavefront", u.Wavefront, "kind", u.Kind.String(),
			"inst", insts.Format(u.Inst()))
	case cu.HookPosUopRetire:
		u := ctx.Item.(*uop.Uop)
		t.logger.Log(context.Background(), t.level, "uop retired",
			"cycle", c.Now(), "cu", c.ID, "uop", u.ID,
			"kind", u.Kind.String(), "latency", c.Now()-u.FetchCycle)
	case cu.HookPosWorkGroupMapped:
		wg := ctx.Item.(*emu.WorkGroup)
		t.logger.Log(context.Background(), t.level, "work-group started",
			"cycle", c.Now(), "cu", c.ID, "work_group", wg.ID)
	case cu.HookPosWorkGroupUnmapped:
		wg := ctx.Item.(*emu.WorkGroup)
		t.logger.Log(context.Background(), t.level, "work-group done",
			"cycle", c.Now(), "cu", c.ID, "work_group", wg.ID)
	}
}
