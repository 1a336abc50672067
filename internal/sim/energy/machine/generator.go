// Package machine holds the buffering producers and consumers that sit at
// the ends of cable networks.
package machine

import (
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/energy/transfer"
	"voltcraft.ai/internal/sim/kernel/model"
)

type GeneratorConfig struct {
	Tier tier.Tier
	// Output is the EU produced per tick while fuel lasts.
	Output   int
	Capacity int
}

// GeneratorState is the persisted record.
type GeneratorState struct {
	StoredEnergy int `json:"stored_energy"`
	Fuel         int `json:"fuel"`
}

// Generator burns one fuel unit per tick into its buffer and pushes the
// buffer out of all six faces.
type Generator struct {
	Pos model.Vec3i
	sink.Fault

	cfg    GeneratorConfig
	stored int
	fuel   int
}

func NewGenerator(pos model.Vec3i, cfg GeneratorConfig) *Generator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.Tier.PacketSize() * 4
	}
	return &Generator{Pos: pos, cfg: cfg}
}

func (g *Generator) Config() GeneratorConfig { return g.cfg }

func (g *Generator) AddFuel(n int) {
	if n > 0 {
		g.fuel += n
	}
}

func (g *Generator) Fuel() int            { return g.fuel }
func (g *Generator) StoredEnergy() int    { return g.stored }
func (g *Generator) MaxStoredEnergy() int { return g.cfg.Capacity }

func (g *Generator) DrainEnergy(n int) {
	g.stored -= n
	if g.stored < 0 {
		g.stored = 0
	}
}

func (g *Generator) OutputTier(model.Dir) (tier.Tier, bool) { return g.cfg.Tier, true }

// Generating reports whether the generator will burn fuel next tick.
func (g *Generator) Generating() bool {
	return !g.Disabled() && g.fuel > 0 && g.stored < g.cfg.Capacity
}

func (g *Generator) Tick(eng transfer.Pusher) transfer.Result {
	if g.Disabled() {
		return transfer.Result{}
	}
	if g.Generating() {
		g.fuel--
		g.stored += g.cfg.Output
		if g.stored > g.cfg.Capacity {
			g.stored = g.cfg.Capacity
		}
	}
	if eng == nil {
		return transfer.Result{}
	}
	return eng.Push(transfer.Request{
		Pos:    g.Pos,
		Tier:   g.cfg.Tier,
		Buffer: g,
		Dirs:   model.AllDirs[:],
	})
}

func (g *Generator) State() GeneratorState {
	return GeneratorState{StoredEnergy: g.stored, Fuel: g.fuel}
}

func (g *Generator) Restore(s GeneratorState) {
	g.stored = clamp(s.StoredEnergy, 0, g.cfg.Capacity)
	g.fuel = clamp(s.Fuel, 0, s.Fuel)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
