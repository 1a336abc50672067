package machine

import (
	"testing"

	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/energy/transfer"
	"voltcraft.ai/internal/sim/kernel/model"
)

type stubNet map[model.Dir][]network.Connection

func (s stubNet) ConnectedSinks(_ model.Vec3i, d model.Dir) []network.Connection { return s[d] }

func furnace(pos model.Vec3i) *Consumer {
	return NewConsumer(pos, ConsumerConfig{Tier: tier.LV, Rate: 4, Capacity: 416, OpCost: 3, OpTicks: 100})
}

func TestGeneratorFeedsFurnaceRate(t *testing.T) {
	f := furnace(model.Vec3i{X: 3})
	f.AddInput(1)
	net := stubNet{model.East: {{Pos: f.Pos, Face: model.West, Sink: f}}}
	g := NewGenerator(model.Vec3i{}, GeneratorConfig{Tier: tier.LV, Output: 10, Capacity: 4000})
	g.Restore(GeneratorState{StoredEnergy: 40})

	res := g.Tick(transfer.New(net, nil, nil, nil))
	f.Latch()
	if res.Transferred != 4 || f.EnergyReceivedLastTick() != 4 || g.StoredEnergy() != 36 {
		t.Fatalf("transferred=%d received=%d stored=%d want=4,4,36", res.Transferred, f.EnergyReceivedLastTick(), g.StoredEnergy())
	}
}

func TestGeneratorBurnsFuel(t *testing.T) {
	g := NewGenerator(model.Vec3i{}, GeneratorConfig{Tier: tier.LV, Output: 10, Capacity: 25})
	g.AddFuel(5)
	for i := 0; i < 3; i++ {
		g.Tick(nil)
	}
	if g.StoredEnergy() != 25 || g.Fuel() != 2 {
		t.Fatalf("stored=%d fuel=%d want=25,2", g.StoredEnergy(), g.Fuel())
	}
	if g.Generating() {
		t.Fatalf("full generator should not burn fuel")
	}
	g.Tick(nil)
	if g.Fuel() != 2 {
		t.Fatalf("fuel=%d want=2", g.Fuel())
	}
}

func TestConsumerIdleProbesButRefuses(t *testing.T) {
	c := furnace(model.Vec3i{})
	if !c.ProbeEnergy(model.Up, 100).Wants() {
		t.Fatalf("idle consumer should report demand")
	}
	if got := c.ReceiveEnergy(model.Up, 100); got != 0 {
		t.Fatalf("idle consumer accepted %d", got)
	}
	c.Latch()
	if c.EnergyReceivedLastTick() != 0 || !c.IsPowerAvailable() {
		t.Fatalf("last=%d avail=%v want=0,true", c.EnergyReceivedLastTick(), c.IsPowerAvailable())
	}
}

func TestConsumerRateCapPerTick(t *testing.T) {
	c := furnace(model.Vec3i{})
	c.AddInput(1)
	if got := c.ReceiveEnergy(model.Up, 32); got != 4 {
		t.Fatalf("got=%d want=4", got)
	}
	if got := c.ReceiveEnergy(model.Down, 32); got != 0 {
		t.Fatalf("second receive got=%d want=0", got)
	}
	if c.ProbeEnergy(model.Up, 32).Wants() {
		t.Fatalf("probe should be exhausted for this tick")
	}
	c.Latch()
	if got := c.ReceiveEnergy(model.Up, 32); got != 4 {
		t.Fatalf("next tick got=%d want=4", got)
	}
}

func TestConsumerCompletesItem(t *testing.T) {
	c := NewConsumer(model.Vec3i{}, ConsumerConfig{Tier: tier.LV, Rate: 10, Capacity: 10, OpCost: 5, OpTicks: 2})
	c.AddInput(1)
	c.ReceiveEnergy(model.Up, 10)
	if c.Tick() {
		t.Fatalf("completed after one step")
	}
	if !c.Tick() {
		t.Fatalf("expected completion on second step")
	}
	if c.Input() != 0 || c.Output() != 1 || c.Progress() != 0 || c.StoredEnergy() != 0 {
		t.Fatalf("state=%+v", c.State())
	}
	if c.Tick() {
		t.Fatalf("ticked without work")
	}
}

func TestBatteryOutputFace(t *testing.T) {
	lamp := NewConsumer(model.Vec3i{X: 1}, ConsumerConfig{Tier: tier.LV, Rate: 32, Capacity: 64})
	lamp.AddInput(10)
	b := NewBattery(model.Vec3i{}, model.East, BatteryConfig{Tier: tier.LV, Capacity: 100})

	if got := b.ReceiveEnergy(model.East, 50); got != 0 {
		t.Fatalf("output face accepted %d", got)
	}
	if got := b.ReceiveEnergy(model.West, 500); got != 100 {
		t.Fatalf("got=%d want=100", got)
	}
	if _, ok := b.OutputTier(model.West); ok {
		t.Fatalf("west is not an output face")
	}
	net := stubNet{model.East: {{Pos: lamp.Pos, Face: model.West, Sink: lamp}}}
	res := b.Tick(transfer.New(net, nil, nil, nil))
	if res.Transferred != 32 || b.StoredEnergy() != 68 {
		t.Fatalf("transferred=%d stored=%d want=32,68", res.Transferred, b.StoredEnergy())
	}
}

func TestMalfunctionStopsWork(t *testing.T) {
	c := furnace(model.Vec3i{})
	c.AddInput(1)
	c.Restore(ConsumerState{StoredEnergy: 10, Input: 1})
	c.Malfunction(1)
	if c.ReceiveEnergy(model.Up, 4) != 0 || c.Tick() {
		t.Fatalf("disabled consumer did work")
	}
	c.Recover()
	c.Tick()
	if c.Progress() != 1 {
		t.Fatalf("progress=%d want=1", c.Progress())
	}
}

func TestMachinesSatisfyContracts(t *testing.T) {
	var _ sink.Sink = (*Consumer)(nil)
	var _ sink.Sink = (*Battery)(nil)
	var _ sink.Source = (*Battery)(nil)
	var _ sink.Source = (*Generator)(nil)
	var _ sink.Buffer = (*Generator)(nil)
	var _ sink.Telemetry = (*Consumer)(nil)
}
