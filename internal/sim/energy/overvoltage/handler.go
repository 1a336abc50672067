package overvoltage

import (
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/kernel/model"
)

// Effects applies in-world outcomes. Implemented by the host grid.
type Effects interface {
	Warn(pos model.Vec3i, gap int)
	Malfunction(pos model.Vec3i, ticks int)
	Destroy(pos model.Vec3i)
}

type Handler struct {
	table   Table
	effects Effects
	rec     event.Recorder
	now     func() uint64
}

// New builds a handler. rec and now may be nil.
func New(table Table, effects Effects, rec event.Recorder, now func() uint64) *Handler {
	if rec == nil {
		rec = event.Discard
	}
	if now == nil {
		now = func() uint64 { return 0 }
	}
	return &Handler{table: table, effects: effects, rec: rec, now: now}
}

func (h *Handler) Table() Table { return h.table }

// Apply resolves the consequence for gap at pos and carries it out. Gaps
// below 1 are raised to 1: a refused packet is always at least a warning.
func (h *Handler) Apply(pos model.Vec3i, gap int) Consequence {
	if gap < 1 {
		gap = 1
	}
	c := h.table.For(gap)
	h.rec.Record(event.Entry{
		Tick:        h.now(),
		Action:      event.ActionOvervoltage,
		Pos:         pos.ToArray(),
		Gap:         gap,
		Consequence: c.String(),
	})
	if h.effects == nil {
		return c
	}
	switch c {
	case Warn:
		h.effects.Warn(pos, gap)
	case Malfunction:
		h.effects.Malfunction(pos, h.table.MalfunctionTicks)
	case Destroy:
		h.effects.Destroy(pos)
	}
	return c
}
