package grid

import (
	"fmt"
	"sort"

	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/cable"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/machine"
	"voltcraft.ai/internal/sim/energy/transformer"
	"voltcraft.ai/internal/sim/kernel/model"
)

// Options carries per-placement state. Zero faces mean DOWN.
type Options struct {
	HighFace model.Dir // transformers
	OutFace  model.Dir // batteries
	Fuel     int
	Input    int
	Stored   int
}

// Place puts block at pos, samples cable connectivity around it,
// invalidates the discovery cache synchronously and schedules the
// overvoltage placement check.
func (g *Grid) Place(block string, pos model.Vec3i, opts Options) error {
	id, ok := g.cats.Blocks.Index[block]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, block)
	}
	if id == 0 {
		return fmt.Errorf("%w: %s", ErrNotPlaceable, block)
	}
	if !g.Loaded(pos) {
		return fmt.Errorf("%w: %s", ErrUnloaded, pos)
	}
	if _, taken := g.blocks[pos]; taken {
		return fmt.Errorf("%w: %s", ErrOccupied, pos)
	}
	def := g.cats.Blocks.Defs[block]

	g.put(id, def, pos, g.newEntity(def, pos, opts))
	g.rec.Record(event.Entry{
		Tick:   g.tick.Load(),
		Action: event.ActionPlace,
		Pos:    pos.ToArray(),
		Block:  block,
	})
	g.schedulePlacementCheck(pos, g.tick.Load()+uint64(g.cfg.PlacementCheckDelay))
	return nil
}

// Remove deletes whatever is at pos. reason is recorded on the event.
func (g *Grid) Remove(pos model.Vec3i, reason string) error {
	if !g.Loaded(pos) {
		return fmt.Errorf("%w: %s", ErrUnloaded, pos)
	}
	if _, ok := g.blocks[pos]; !ok {
		return fmt.Errorf("%w: %s", ErrEmpty, pos)
	}
	name := g.BlockName(pos)
	delete(g.blocks, pos)
	delete(g.cables, pos)
	delete(g.entities, pos)
	delete(g.modes, pos)
	g.touch(pos)
	g.rec.Record(event.Entry{
		Tick:   g.tick.Load(),
		Action: event.ActionRemove,
		Pos:    pos.ToArray(),
		Block:  name,
		Reason: reason,
	})
	return nil
}

func (g *Grid) put(id uint16, def catalogs.BlockDef, pos model.Vec3i, e entity) {
	g.blocks[pos] = id
	if def.Role == catalogs.RoleCable {
		seg := cable.New(pos, def.ID)
		seg.Recompute(g, g.policy)
		g.cables[pos] = seg
	}
	if e != nil {
		g.entities[pos] = e
	}
	g.touch(pos)
}

// touch re-samples neighbouring cables facing pos and drops every cached
// walk that saw pos.
func (g *Grid) touch(pos model.Vec3i) {
	for _, d := range model.AllDirs {
		if seg, ok := g.cables[g.Neighbor(pos, d)]; ok {
			seg.Update(g, g.policy, d.Opposite())
		}
	}
	g.net.Invalidate(pos)
}

func (g *Grid) newEntity(def catalogs.BlockDef, pos model.Vec3i, opts Options) entity {
	switch def.Role {
	case catalogs.RoleGenerator:
		gen := machine.NewGenerator(pos, machine.GeneratorConfig{Tier: def.Tier, Output: def.Output, Capacity: def.Capacity})
		gen.Restore(machine.GeneratorState{StoredEnergy: opts.Stored, Fuel: opts.Fuel})
		return gen
	case catalogs.RoleConsumer:
		c := machine.NewConsumer(pos, machine.ConsumerConfig{
			Tier:     def.Tier,
			Rate:     def.Rate,
			Capacity: def.Capacity,
			OpCost:   def.OpCost,
			OpTicks:  def.OpTicks,
		})
		c.Restore(machine.ConsumerState{StoredEnergy: opts.Stored, Input: opts.Input})
		return c
	case catalogs.RoleBattery:
		b := machine.NewBattery(pos, opts.OutFace, machine.BatteryConfig{Tier: def.Tier, Capacity: def.Capacity})
		b.Restore(machine.BatteryState{StoredEnergy: opts.Stored})
		return b
	case catalogs.RoleTransformer:
		t := transformer.New(pos, opts.HighFace, transformer.Config{Low: def.Tier, High: def.HighTier, Capacity: def.Capacity})
		t.Restore(transformer.State{StoredEnergy: opts.Stored, StepDownMode: true})
		return t
	}
	return nil
}

// Feed adds fuel to a generator or input work to a consumer at pos.
func (g *Grid) Feed(pos model.Vec3i, n int) bool {
	switch e := g.entities[pos].(type) {
	case *machine.Generator:
		e.AddFuel(n)
		return true
	case *machine.Consumer:
		e.AddInput(n)
		return true
	}
	return false
}

func sortChunks(ks []ChunkKey) {
	sort.Slice(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		if a.CY != b.CY {
			return a.CY < b.CY
		}
		return a.CZ < b.CZ
	})
}
