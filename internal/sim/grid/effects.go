package grid

import (
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/kernel/model"
)

// Warn implements overvoltage.Effects. The handler has already recorded the
// incident; a warning has no in-world effect beyond the log line.
func (g *Grid) Warn(pos model.Vec3i, gap int) {
	g.logf("overvoltage warning at %s (%s), gap %d", pos, g.BlockName(pos), gap)
}

func (g *Grid) Malfunction(pos model.Vec3i, ticks int) {
	e, ok := g.entities[pos]
	if !ok {
		return
	}
	e.Malfunction(ticks)
	g.rec.Record(event.Entry{
		Tick:    g.tick.Load(),
		Action:  event.ActionMalfunction,
		Pos:     pos.ToArray(),
		Block:   g.BlockName(pos),
		Details: map[string]any{"ticks": ticks},
	})
}

// Destroy removes the block at pos. Removal invalidates the cache before any
// later sender in the tick runs discovery.
func (g *Grid) Destroy(pos model.Vec3i) {
	if _, ok := g.blocks[pos]; !ok {
		return
	}
	g.rec.Record(event.Entry{
		Tick:   g.tick.Load(),
		Action: event.ActionExplode,
		Pos:    pos.ToArray(),
		Block:  g.BlockName(pos),
	})
	g.logf("overvoltage destroyed %s at %s", g.BlockName(pos), pos)
	_ = g.Remove(pos, "overvoltage")
}
