package machine

import (
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

type ConsumerConfig struct {
	Tier tier.Tier
	// Rate caps the EU accepted per tick.
	Rate     int
	Capacity int
	// OpCost EU is spent per tick of work; OpTicks ticks finish one item.
	OpCost  int
	OpTicks int
}

// ConsumerState is the persisted record.
type ConsumerState struct {
	StoredEnergy int `json:"stored_energy"`
	Input        int `json:"input"`
	Output       int `json:"output"`
	Progress     int `json:"progress"`
}

// Consumer is a processing machine (furnace, macerator, compressor). It only
// takes energy while it has queued input, but its probe reports demand
// whenever it has room so an idle machine still shows power as available.
type Consumer struct {
	Pos model.Vec3i
	sink.Fault

	cfg      ConsumerConfig
	stored   int
	input    int
	output   int
	progress int
	meter    sink.Meter
}

func NewConsumer(pos model.Vec3i, cfg ConsumerConfig) *Consumer {
	if cfg.Rate <= 0 {
		cfg.Rate = cfg.Tier.PacketSize()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.Rate
	}
	if cfg.OpTicks <= 0 {
		cfg.OpTicks = 1
	}
	return &Consumer{Pos: pos, cfg: cfg}
}

func (c *Consumer) Config() ConsumerConfig { return c.cfg }

func (c *Consumer) AddInput(n int) {
	if n > 0 {
		c.input += n
	}
}

func (c *Consumer) HasWork() bool { return c.input > 0 }
func (c *Consumer) Input() int    { return c.input }
func (c *Consumer) Output() int   { return c.output }

// Progress is the tick count into the current item.
func (c *Consumer) Progress() int      { return c.progress }
func (c *Consumer) ProgressTotal() int { return c.cfg.OpTicks }

func (c *Consumer) room(max int) int {
	if c.Disabled() {
		return 0
	}
	n := c.cfg.Rate - c.meter.ThisTick()
	if r := c.cfg.Capacity - c.stored; r < n {
		n = r
	}
	if max < n {
		n = max
	}
	if n < 0 {
		return 0
	}
	return n
}

func (c *Consumer) ProbeEnergy(_ model.Dir, max int) sink.Demand {
	return sink.Demand(c.room(max))
}

func (c *Consumer) ReceiveEnergy(_ model.Dir, max int) int {
	if !c.HasWork() {
		return 0
	}
	n := c.room(max)
	c.stored += n
	c.meter.Add(n)
	return n
}

func (c *Consumer) EnergyTier() tier.Tier { return c.cfg.Tier }

func (c *Consumer) CanSafelyReceive(packet int) bool {
	return sink.SafeFor(c.cfg.Tier, packet)
}

func (c *Consumer) StoredEnergy() int    { return c.stored }
func (c *Consumer) MaxStoredEnergy() int { return c.cfg.Capacity }

// Tick advances the current item by one step if the buffer covers OpCost.
// It reports whether an item completed.
func (c *Consumer) Tick() bool {
	if c.Disabled() || !c.HasWork() || c.stored < c.cfg.OpCost {
		return false
	}
	c.stored -= c.cfg.OpCost
	c.progress++
	if c.progress < c.cfg.OpTicks {
		return false
	}
	c.progress = 0
	c.input--
	c.output++
	return true
}

func (c *Consumer) EnergyReceivedLastTick() int { return c.meter.ReceivedLastTick() }
func (c *Consumer) IsPowerAvailable() bool      { return c.meter.PowerAvailable() }

func (c *Consumer) Latch() {
	c.meter.Latch(c.ProbeEnergy(model.Down, c.cfg.Rate))
}

func (c *Consumer) State() ConsumerState {
	return ConsumerState{StoredEnergy: c.stored, Input: c.input, Output: c.output, Progress: c.progress}
}

func (c *Consumer) Restore(s ConsumerState) {
	c.stored = clamp(s.StoredEnergy, 0, c.cfg.Capacity)
	c.input = clamp(s.Input, 0, s.Input)
	c.output = clamp(s.Output, 0, s.Output)
	c.progress = clamp(s.Progress, 0, c.cfg.OpTicks-1)
}
