package machine

import (
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/energy/transfer"
	"voltcraft.ai/internal/sim/kernel/model"
)

type BatteryConfig struct {
	Tier     tier.Tier
	Capacity int
}

// BatteryState is the persisted record.
type BatteryState struct {
	StoredEnergy int `json:"stored_energy"`
}

// Battery buffers energy from five faces and releases it through Out at its
// tier's packet size.
type Battery struct {
	Pos model.Vec3i
	Out model.Dir
	sink.Fault

	cfg    BatteryConfig
	stored int
	meter  sink.Meter
}

func NewBattery(pos model.Vec3i, out model.Dir, cfg BatteryConfig) *Battery {
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.Tier.PacketSize() * 1000
	}
	return &Battery{Pos: pos, Out: out, cfg: cfg}
}

func (b *Battery) Config() BatteryConfig { return b.cfg }

func (b *Battery) ProbeEnergy(face model.Dir, max int) sink.Demand {
	if face == b.Out || b.Disabled() {
		return 0
	}
	n := b.cfg.Capacity - b.stored
	if max < n {
		n = max
	}
	if n < 0 {
		n = 0
	}
	return sink.Demand(n)
}

func (b *Battery) ReceiveEnergy(face model.Dir, max int) int {
	n := int(b.ProbeEnergy(face, max))
	b.stored += n
	b.meter.Add(n)
	return n
}

func (b *Battery) EnergyTier() tier.Tier { return b.cfg.Tier }

func (b *Battery) CanSafelyReceive(packet int) bool {
	return sink.SafeFor(b.cfg.Tier, packet)
}

func (b *Battery) OutputTier(face model.Dir) (tier.Tier, bool) {
	if face != b.Out {
		return 0, false
	}
	return b.cfg.Tier, true
}

func (b *Battery) StoredEnergy() int    { return b.stored }
func (b *Battery) MaxStoredEnergy() int { return b.cfg.Capacity }

func (b *Battery) DrainEnergy(n int) {
	b.stored -= n
	if b.stored < 0 {
		b.stored = 0
	}
}

func (b *Battery) Tick(eng transfer.Pusher) transfer.Result {
	if eng == nil || b.Disabled() {
		return transfer.Result{}
	}
	return eng.Push(transfer.Request{
		Pos:    b.Pos,
		Tier:   b.cfg.Tier,
		Buffer: b,
		Dirs:   []model.Dir{b.Out},
	})
}

func (b *Battery) EnergyReceivedLastTick() int { return b.meter.ReceivedLastTick() }
func (b *Battery) IsPowerAvailable() bool      { return b.meter.PowerAvailable() }

func (b *Battery) Latch() {
	b.meter.Latch(b.ProbeEnergy(b.Out.Opposite(), b.cfg.Capacity))
}

func (b *Battery) State() BatteryState { return BatteryState{StoredEnergy: b.stored} }

func (b *Battery) Restore(s BatteryState) {
	b.stored = clamp(s.StoredEnergy, 0, b.cfg.Capacity)
}
