// Package transformer implements the voltage transformer: one high face,
// five low faces, a buffer, and a mode set by whichever face last received.
package transformer

import (
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/energy/transfer"
	"voltcraft.ai/internal/sim/kernel/model"
)

const (
	ModeStepDown = "STEP_DOWN"
	ModeStepUp   = "STEP_UP"
)

type Config struct {
	Low  tier.Tier
	High tier.Tier
	// Capacity defaults to the high tier's packet size.
	Capacity int
}

// State is the persisted record.
type State struct {
	StoredEnergy int  `json:"stored_energy"`
	StepDownMode bool `json:"step_down_mode"`
}

type Transformer struct {
	Pos  model.Vec3i
	High model.Dir

	sink.Fault

	cfg      Config
	stored   int
	stepDown bool
	meter    sink.Meter
}

func New(pos model.Vec3i, high model.Dir, cfg Config) *Transformer {
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.High.PacketSize()
	}
	return &Transformer{Pos: pos, High: high, cfg: cfg, stepDown: true}
}

func (t *Transformer) Config() Config { return t.cfg }

func (t *Transformer) StepDownMode() bool { return t.stepDown }

func (t *Transformer) Mode() string {
	if t.stepDown {
		return ModeStepDown
	}
	return ModeStepUp
}

func (t *Transformer) room() int {
	if t.Disabled() {
		return 0
	}
	r := t.cfg.Capacity - t.stored
	if r < 0 {
		return 0
	}
	return r
}

func (t *Transformer) ProbeEnergy(_ model.Dir, max int) sink.Demand {
	n := t.room()
	if max < n {
		n = max
	}
	if n < 0 {
		n = 0
	}
	return sink.Demand(n)
}

// ReceiveEnergy buffers up to the remaining capacity. Any accepted energy
// sets the mode: the high face forces step-down, any low face step-up.
func (t *Transformer) ReceiveEnergy(face model.Dir, max int) int {
	n := t.room()
	if max < n {
		n = max
	}
	if n <= 0 {
		return 0
	}
	t.stored += n
	t.meter.Add(n)
	t.stepDown = face == t.High
	return n
}

// EnergyTier is the low side; callers that know the face use SideTier.
func (t *Transformer) EnergyTier() tier.Tier { return t.cfg.Low }

func (t *Transformer) CanSafelyReceive(packet int) bool {
	return sink.SafeFor(t.cfg.Low, packet)
}

func (t *Transformer) SideTier(face model.Dir) tier.Tier {
	if face == t.High {
		return t.cfg.High
	}
	return t.cfg.Low
}

func (t *Transformer) CanSideReceive(face model.Dir, packet int) bool {
	return sink.SafeFor(t.SideTier(face), packet)
}

// OutputTier reports the tier leaving face in the current mode.
func (t *Transformer) OutputTier(face model.Dir) (tier.Tier, bool) {
	if t.stepDown {
		if face == t.High {
			return 0, false
		}
		return t.cfg.Low, true
	}
	if face != t.High {
		return 0, false
	}
	return t.cfg.High, true
}

func (t *Transformer) StoredEnergy() int    { return t.stored }
func (t *Transformer) MaxStoredEnergy() int { return t.cfg.Capacity }

func (t *Transformer) DrainEnergy(n int) {
	t.stored -= n
	if t.stored < 0 {
		t.stored = 0
	}
}

// Tick drains the buffer through the output side of the current mode. The
// sinks reachable from the input side are computed fresh and excluded so
// energy is never handed back to the network it came from.
func (t *Transformer) Tick(eng transfer.Pusher, net transfer.Discovery) transfer.Result {
	if t.stored <= 0 || eng == nil || t.Disabled() {
		return transfer.Result{}
	}
	lows := t.High.Others()
	if t.stepDown {
		return eng.Push(transfer.Request{
			Pos:     t.Pos,
			Tier:    t.cfg.Low,
			Packet:  t.cfg.Low.PacketSize(),
			Buffer:  t,
			Dirs:    lows,
			Exclude: transfer.Reachable(net, t.Pos, []model.Dir{t.High}),
		})
	}
	return eng.Push(transfer.Request{
		Pos:     t.Pos,
		Tier:    t.cfg.High,
		Packet:  t.cfg.High.PacketSize(),
		Buffer:  t,
		Dirs:    []model.Dir{t.High},
		Exclude: transfer.Reachable(net, t.Pos, lows),
	})
}

func (t *Transformer) EnergyReceivedLastTick() int { return t.meter.ReceivedLastTick() }
func (t *Transformer) IsPowerAvailable() bool      { return t.meter.PowerAvailable() }

// Latch closes the tick for telemetry.
func (t *Transformer) Latch() {
	t.meter.Latch(t.ProbeEnergy(t.High, t.cfg.Capacity))
}

func (t *Transformer) State() State {
	return State{StoredEnergy: t.stored, StepDownMode: t.stepDown}
}

// Restore applies a persisted record verbatim. The mode is not revalidated;
// the next receive re-derives it.
func (t *Transformer) Restore(s State) {
	t.stored = s.StoredEnergy
	if t.stored < 0 {
		t.stored = 0
	}
	if t.stored > t.cfg.Capacity {
		t.stored = t.cfg.Capacity
	}
	t.stepDown = s.StepDownMode
}
