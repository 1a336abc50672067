package grid

import (
	"fmt"

	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/cable"
	"voltcraft.ai/internal/sim/energy/machine"
	"voltcraft.ai/internal/sim/energy/transformer"
	"voltcraft.ai/internal/sim/kernel/model"
)

// ExportSnapshot captures the grid between ticks. Header.Tick is the next
// tick to run. Generic Schedule callbacks are not persisted; placement
// checks are.
func (g *Grid) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:        snapshot.Header{Version: snapshot.Version, GridID: g.cfg.ID, Tick: g.tick.Load()},
		TickRate:      g.cfg.TickRateHz,
		ChunkSize:     g.cfg.ChunkSize,
		Palette:       g.BlockPalette(),
		PaletteDigest: g.cats.Blocks.PaletteDigest,
	}
	for _, k := range g.LoadedChunks() {
		snap.Chunks = append(snap.Chunks, snapshot.ChunkKeyV1{CX: k.CX, CY: k.CY, CZ: k.CZ})
	}
	for _, pos := range model.SortedPositions(g.blocks) {
		snap.Blocks = append(snap.Blocks, snapshot.BlockV1{Pos: pos.ToArray(), Block: g.blocks[pos]})
	}
	for _, pos := range model.SortedPositions(g.entities) {
		e := g.entities[pos]
		switch x := e.(type) {
		case *machine.Generator:
			st := x.State()
			snap.Generators = append(snap.Generators, snapshot.GeneratorV1{Pos: pos.ToArray(), StoredEnergy: st.StoredEnergy, Fuel: st.Fuel})
		case *machine.Consumer:
			st := x.State()
			snap.Consumers = append(snap.Consumers, snapshot.ConsumerV1{
				Pos:          pos.ToArray(),
				StoredEnergy: st.StoredEnergy,
				Input:        st.Input,
				Output:       st.Output,
				Progress:     st.Progress,
			})
		case *machine.Battery:
			snap.Batteries = append(snap.Batteries, snapshot.BatteryV1{Pos: pos.ToArray(), OutFace: x.Out.String(), StoredEnergy: x.State().StoredEnergy})
		case *transformer.Transformer:
			st := x.State()
			snap.Transformers = append(snap.Transformers, snapshot.TransformerV1{
				Pos:          pos.ToArray(),
				HighFace:     x.High.String(),
				StoredEnergy: st.StoredEnergy,
				StepDownMode: st.StepDownMode,
			})
		}
		if n := e.DisabledTicks(); n > 0 {
			snap.Faults = append(snap.Faults, snapshot.FaultV1{Pos: pos.ToArray(), Remaining: n})
		}
	}
	for _, t := range g.sched.pending(kindPlacementCheck) {
		snap.PendingChecks = append(snap.PendingChecks, snapshot.CheckV1{Pos: t.pos.ToArray(), DueTick: t.due})
	}
	return snap
}

// ImportSnapshot replaces the grid's state. Block ids are remapped by name
// through the snapshot's palette, so catalogs may gain blocks between runs.
func (g *Grid) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("snapshot: unsupported version %d", snap.Header.Version)
	}
	if snap.ChunkSize != 0 && snap.ChunkSize != g.cfg.ChunkSize {
		return fmt.Errorf("snapshot: chunk_size %d does not match %d", snap.ChunkSize, g.cfg.ChunkSize)
	}
	remap := make([]uint16, len(snap.Palette))
	for i, name := range snap.Palette {
		id, ok := g.cats.Blocks.Index[name]
		if !ok {
			return fmt.Errorf("snapshot: %w: %s", ErrUnknownBlock, name)
		}
		remap[i] = id
	}
	for _, b := range snap.Blocks {
		if int(b.Block) >= len(remap) {
			return fmt.Errorf("snapshot: block id %d outside palette", b.Block)
		}
	}

	g.chunks = map[ChunkKey]bool{}
	g.blocks = map[model.Vec3i]uint16{}
	g.cables = map[model.Vec3i]*cable.Segment{}
	g.entities = map[model.Vec3i]entity{}
	g.modes = map[model.Vec3i]string{}
	g.sched.reset()

	for _, c := range snap.Chunks {
		g.chunks[ChunkKey{CX: c.CX, CY: c.CY, CZ: c.CZ}] = true
	}

	faces := map[model.Vec3i]Options{}
	for _, b := range snap.Batteries {
		d, _ := model.ParseDir(b.OutFace)
		faces[model.FromArray(b.Pos)] = Options{OutFace: d}
	}
	for _, t := range snap.Transformers {
		d, _ := model.ParseDir(t.HighFace)
		faces[model.FromArray(t.Pos)] = Options{HighFace: d}
	}

	for _, b := range snap.Blocks {
		id := remap[b.Block]
		if id == 0 {
			continue
		}
		pos := model.FromArray(b.Pos)
		def := g.cats.Blocks.Defs[g.cats.Blocks.Palette[id]]
		g.blocks[pos] = id
		if def.Role == catalogs.RoleCable {
			g.cables[pos] = cable.New(pos, def.ID)
		}
		if e := g.newEntity(def, pos, faces[pos]); e != nil {
			g.entities[pos] = e
		}
	}
	// Connectivity is derived state; sample it once everything exists.
	for _, pos := range model.SortedPositions(g.cables) {
		g.cables[pos].Recompute(g, g.policy)
	}

	for _, s := range snap.Generators {
		if x, ok := g.entities[model.FromArray(s.Pos)].(*machine.Generator); ok {
			x.Restore(machine.GeneratorState{StoredEnergy: s.StoredEnergy, Fuel: s.Fuel})
		}
	}
	for _, s := range snap.Consumers {
		if x, ok := g.entities[model.FromArray(s.Pos)].(*machine.Consumer); ok {
			x.Restore(machine.ConsumerState{StoredEnergy: s.StoredEnergy, Input: s.Input, Output: s.Output, Progress: s.Progress})
		}
	}
	for _, s := range snap.Batteries {
		if x, ok := g.entities[model.FromArray(s.Pos)].(*machine.Battery); ok {
			x.Restore(machine.BatteryState{StoredEnergy: s.StoredEnergy})
		}
	}
	for _, s := range snap.Transformers {
		if x, ok := g.entities[model.FromArray(s.Pos)].(*transformer.Transformer); ok {
			x.Restore(transformer.State{StoredEnergy: s.StoredEnergy, StepDownMode: s.StepDownMode})
		}
	}
	for _, f := range snap.Faults {
		if e, ok := g.entities[model.FromArray(f.Pos)]; ok {
			e.Malfunction(f.Remaining)
		}
	}
	for _, c := range snap.PendingChecks {
		g.schedulePlacementCheck(model.FromArray(c.Pos), c.DueTick)
	}

	g.tick.Store(snap.Header.Tick)
	g.net.InvalidateAll()
	return nil
}
