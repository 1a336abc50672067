package overvoltage

import (
	"testing"

	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

type recordingEffects struct {
	warns        []int
	malfunctions []int
	destroyed    []model.Vec3i
}

func (r *recordingEffects) Warn(_ model.Vec3i, gap int)             { r.warns = append(r.warns, gap) }
func (r *recordingEffects) Malfunction(_ model.Vec3i, ticks int)    { r.malfunctions = append(r.malfunctions, ticks) }
func (r *recordingEffects) Destroy(pos model.Vec3i)                 { r.destroyed = append(r.destroyed, pos) }

func TestTableIsMonotonic(t *testing.T) {
	tables := []Table{
		DefaultTable(),
		{WarnGap: 1, MalfunctionGap: 1, DestroyGap: 1},
		{WarnGap: 2, MalfunctionGap: 3, DestroyGap: 5, MalfunctionTicks: 10},
	}
	for _, tb := range tables {
		if err := tb.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", tb, err)
		}
		for g1 := 1; g1 <= 6; g1++ {
			for g2 := g1 + 1; g2 <= 6; g2++ {
				if tb.For(g2) < tb.For(g1) {
					t.Fatalf("table %+v: For(%d)=%s milder than For(%d)=%s", tb, g2, tb.For(g2), g1, tb.For(g1))
				}
			}
		}
	}
}

func TestTableValidateRejectsInversions(t *testing.T) {
	bad := []Table{
		{WarnGap: 0, MalfunctionGap: 2, DestroyGap: 3},
		{WarnGap: 2, MalfunctionGap: 1, DestroyGap: 3},
		{WarnGap: 1, MalfunctionGap: 3, DestroyGap: 2},
		{WarnGap: 1, MalfunctionGap: 2, DestroyGap: 3, MalfunctionTicks: -1},
	}
	for _, tb := range bad {
		if err := tb.Validate(); err == nil {
			t.Fatalf("expected error for %+v", tb)
		}
	}
}

func TestDefaultTableThresholds(t *testing.T) {
	tb := DefaultTable()
	want := map[int]Consequence{0: None, 1: Warn, 2: Malfunction, 3: Destroy, 4: Destroy}
	for gap, c := range want {
		if got := tb.For(gap); got != c {
			t.Fatalf("For(%d)=%s want=%s", gap, got, c)
		}
	}
}

func TestApplyRecordsAndDispatches(t *testing.T) {
	fx := &recordingEffects{}
	var entries []event.Entry
	h := New(DefaultTable(), fx, event.RecorderFunc(func(e event.Entry) { entries = append(entries, e) }), func() uint64 { return 7 })

	pos := model.Vec3i{X: 1}
	if c := h.Apply(pos, 0); c != Warn {
		t.Fatalf("gap 0 clamps to warn, got %s", c)
	}
	if c := h.Apply(pos, 2); c != Malfunction {
		t.Fatalf("got %s", c)
	}
	if c := h.Apply(pos, 5); c != Destroy {
		t.Fatalf("got %s", c)
	}
	if len(fx.warns) != 1 || len(fx.malfunctions) != 1 || fx.malfunctions[0] != 100 || len(fx.destroyed) != 1 {
		t.Fatalf("effects=%+v", fx)
	}
	if len(entries) != 3 || entries[2].Tick != 7 || entries[2].Consequence != "DESTROY" || entries[2].Gap != 5 {
		t.Fatalf("entries=%+v", entries)
	}
}

type lvSink struct{}

func (lvSink) ProbeEnergy(model.Dir, int) sink.Demand { return 32 }
func (lvSink) ReceiveEnergy(model.Dir, int) int       { return 0 }
func (lvSink) EnergyTier() tier.Tier                  { return tier.LV }
func (lvSink) CanSafelyReceive(p int) bool            { return tier.LV.CanCarry(p) }

type hvSource struct{}

func (hvSource) OutputTier(model.Dir) (tier.Tier, bool) { return tier.HV, true }

type checkWorld struct {
	cables  map[model.Vec3i]bool
	sinks   map[model.Vec3i]sink.Sink
	sources map[model.Vec3i]sink.Source
}

type cond struct {
	w   *checkWorld
	pos model.Vec3i
}

func (c cond) Connected(d model.Dir) bool {
	n := c.pos.Rel(d)
	return c.w.cables[n] || c.w.sinks[n] != nil || c.w.sources[n] != nil
}

func (w *checkWorld) Loaded(model.Vec3i) bool           { return true }
func (w *checkWorld) IsConductor(pos model.Vec3i) bool { return w.cables[pos] }

func (w *checkWorld) Conductor(pos model.Vec3i) (network.Conductor, bool) {
	if !w.cables[pos] {
		return nil, false
	}
	return cond{w: w, pos: pos}, true
}

func (w *checkWorld) SinkAt(pos model.Vec3i, _ model.Dir) (sink.Sink, bool) {
	s, ok := w.sinks[pos]
	return s, ok
}

func (w *checkWorld) SourceAt(pos model.Vec3i) (sink.Source, bool) {
	s, ok := w.sources[pos]
	return s, ok
}

func TestCheckPlacementFindsPreexistingMismatch(t *testing.T) {
	w := &checkWorld{
		cables:  map[model.Vec3i]bool{{X: 1}: true, {X: 2}: true},
		sinks:   map[model.Vec3i]sink.Sink{{X: 3}: lvSink{}},
		sources: map[model.Vec3i]sink.Source{{X: 0}: hvSource{}},
	}
	topo := network.New(w, 0)
	fx := &recordingEffects{}
	h := New(DefaultTable(), fx, nil, nil)

	// Placing the middle cable.
	if n := h.CheckPlacement(w, topo, model.Vec3i{X: 2}); n != 1 {
		t.Fatalf("affected=%d want=1", n)
	}
	if len(fx.malfunctions) != 1 {
		t.Fatalf("HV->LV gap 2 should malfunction, effects=%+v", fx)
	}

	// Placing the sink itself checks each of its faces.
	fx2 := &recordingEffects{}
	h2 := New(DefaultTable(), fx2, nil, nil)
	if n := h2.CheckPlacement(w, topo, model.Vec3i{X: 3}); n != 1 || len(fx2.malfunctions) != 1 {
		t.Fatalf("affected=%d effects=%+v", n, fx2)
	}

	// A matched network is left alone.
	w.sinks[model.Vec3i{X: 3}] = hvOK{}
	fx3 := &recordingEffects{}
	h3 := New(DefaultTable(), fx3, nil, nil)
	if n := h3.CheckPlacement(w, topo, model.Vec3i{X: 1}); n != 0 {
		t.Fatalf("affected=%d want=0", n)
	}
}

type hvOK struct{ lvSink }

func (hvOK) EnergyTier() tier.Tier       { return tier.HV }
func (hvOK) CanSafelyReceive(p int) bool { return tier.HV.CanCarry(p) }
