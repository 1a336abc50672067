// Package sink defines the contract every energy producer, consumer and
// transformer face exposes to the grid.
//
// Transfers are two calls: ProbeEnergy, which must not mutate anything, and
// ReceiveEnergy, which commits. The probe result is a distinct Demand type so
// a probe can never be confused with an accepted amount.
package sink

import (
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

// Demand is how much a sink would accept right now. It carries no side effects.
type Demand int

func (d Demand) Wants() bool { return d > 0 }

// Sink is the energy acceptor capability of a block face.
//
// face is the sink-local side the energy enters through.
type Sink interface {
	ProbeEnergy(face model.Dir, max int) Demand
	ReceiveEnergy(face model.Dir, max int) int
	EnergyTier() tier.Tier
	CanSafelyReceive(packet int) bool
}

// SideTiered is implemented by sinks whose safe tier depends on the face
// being accessed (transformers).
type SideTiered interface {
	SideTier(face model.Dir) tier.Tier
	CanSideReceive(face model.Dir, packet int) bool
}

// Source is implemented by block entities that emit energy. OutputTier
// reports the tier leaving through face, or false when face is not an
// output in the entity's current state.
type Source interface {
	OutputTier(face model.Dir) (tier.Tier, bool)
}

// Buffer is the stored-energy side of a sender, drained by the transfer engine.
type Buffer interface {
	StoredEnergy() int
	DrainEnergy(n int)
}

// Telemetry is the read-only snapshot surface consumed by presentation layers.
type Telemetry interface {
	EnergyReceivedLastTick() int
	IsPowerAvailable() bool
	StoredEnergy() int
	MaxStoredEnergy() int
}

// SafeFor is the default CanSafelyReceive policy.
func SafeFor(t tier.Tier, packet int) bool { return t.CanCarry(packet) }

// TierOf returns the tier a sender must respect when pushing into s through face.
func TierOf(s Sink, face model.Dir) tier.Tier {
	if st, ok := s.(SideTiered); ok {
		return st.SideTier(face)
	}
	return s.EnergyTier()
}

// Accepts applies the per-side check for transformers and the sink's own
// check otherwise.
func Accepts(s Sink, face model.Dir, packet int) bool {
	if st, ok := s.(SideTiered); ok {
		return st.CanSideReceive(face, packet)
	}
	return s.CanSafelyReceive(packet)
}
