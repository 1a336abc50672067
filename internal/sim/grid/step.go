package grid

import (
	"context"
	"time"

	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/machine"
	"voltcraft.ai/internal/sim/energy/transformer"
	"voltcraft.ai/internal/sim/kernel/model"
)

func (g *Grid) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.observerJoin:
			g.handleObserverJoin(req)
		case req := <-g.observerSub:
			g.handleObserverSubscribe(req)
		case id := <-g.observerLeave:
			g.handleObserverLeave(id)
		case req := <-g.admin:
			g.handleSnapshotRequest(req)
		case <-ticker.C:
			g.Step()
		}
	}
}

func (g *Grid) Stop() { close(g.stop) }

// Step advances one tick: due callbacks, then every loaded block entity in
// ascending position order, then the end-of-tick latch and telemetry. It
// returns the tick that ran.
func (g *Grid) Step() uint64 {
	tick := g.tick.Load()

	for _, t := range g.sched.popDue(tick) {
		t.fn()
	}

	for _, pos := range model.SortedPositions(g.entities) {
		e, ok := g.entities[pos]
		if !ok || !g.Loaded(pos) {
			continue
		}
		switch x := e.(type) {
		case *machine.Generator:
			x.Tick(g.engine)
		case *machine.Consumer:
			x.Tick()
		case *machine.Battery:
			x.Tick(g.engine)
		case *transformer.Transformer:
			x.Tick(g.engine, g.net)
		}
	}

	g.endOfTick(tick)
	g.tick.Add(1)

	if g.snapshotSink != nil && g.cfg.SnapshotEvery > 0 && (tick+1)%uint64(g.cfg.SnapshotEvery) == 0 {
		select {
		case g.snapshotSink <- g.ExportSnapshot():
		default:
			g.logf("snapshot sink full, skipping tick %d", tick+1)
		}
	}
	return tick
}

func (g *Grid) endOfTick(tick uint64) {
	for _, pos := range model.SortedPositions(g.entities) {
		e := g.entities[pos]
		if !g.Loaded(pos) {
			continue
		}
		if l, ok := e.(latcher); ok {
			l.Latch()
		}
		e.Recover()
		if t, ok := e.(*transformer.Transformer); ok {
			g.trackMode(tick, t)
		}
	}

	if every := g.cfg.TelemetryEvery; every > 0 && tick%uint64(every) == 0 {
		g.publishTelemetry(tick)
	} else if len(g.observers) == 0 {
		g.ring.Drain()
	}
}

func (g *Grid) trackMode(tick uint64, t *transformer.Transformer) {
	mode := t.Mode()
	prev, seen := g.modes[t.Pos]
	g.modes[t.Pos] = mode
	if !seen || prev == mode {
		return
	}
	g.rec.Record(event.Entry{
		Tick:    tick,
		Action:  event.ActionModeChange,
		Pos:     t.Pos.ToArray(),
		Block:   g.BlockName(t.Pos),
		Details: map[string]any{"from": prev, "to": mode},
	})
}
