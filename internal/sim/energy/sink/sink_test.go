package sink

import (
	"testing"

	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

type plainSink struct{ t tier.Tier }

func (p plainSink) ProbeEnergy(model.Dir, int) Demand { return 0 }
func (p plainSink) ReceiveEnergy(model.Dir, int) int { return 0 }
func (p plainSink) EnergyTier() tier.Tier { return p.t }
func (p plainSink) CanSafelyReceive(packet int) bool { return SafeFor(p.t, packet) }

type sidedSink struct {
	plainSink
	high model.Dir
}

func (s sidedSink) SideTier(face model.Dir) tier.Tier {
	if face == s.high {
		return tier.MV
	}
	return tier.LV
}

func (s sidedSink) CanSideReceive(face model.Dir, packet int) bool {
	return SafeFor(s.SideTier(face), packet)
}

func TestAcceptsUsesSideTierWhenAvailable(t *testing.T) {
	p := plainSink{t: tier.LV}
	if Accepts(p, model.Up, 128) {
		t.Fatalf("LV sink accepted 128")
	}
	s := sidedSink{plainSink: p, high: model.Up}
	if !Accepts(s, model.Up, 128) {
		t.Fatalf("high face refused MV packet")
	}
	if Accepts(s, model.Down, 128) {
		t.Fatalf("low face accepted MV packet")
	}
	if TierOf(s, model.Up) != tier.MV || TierOf(p, model.Up) != tier.LV {
		t.Fatalf("TierOf mismatch")
	}
}

func TestMeterLatch(t *testing.T) {
	var m Meter
	m.Add(4)
	m.Add(-3)
	if m.ThisTick() != 4 {
		t.Fatalf("ThisTick=%d want=4", m.ThisTick())
	}
	m.Latch(0)
	if m.ReceivedLastTick() != 4 || !m.PowerAvailable() || m.ThisTick() != 0 {
		t.Fatalf("after latch: last=%d avail=%v this=%d", m.ReceivedLastTick(), m.PowerAvailable(), m.ThisTick())
	}
	m.Latch(2)
	if m.ReceivedLastTick() != 0 || !m.PowerAvailable() {
		t.Fatalf("idle-but-ready should report power available")
	}
	m.Latch(0)
	if m.PowerAvailable() {
		t.Fatalf("expected no power")
	}
}

func TestFaultTimer(t *testing.T) {
	var f Fault
	if f.Disabled() {
		t.Fatalf("zero fault should be healthy")
	}
	f.Malfunction(3)
	f.Malfunction(1)
	if f.DisabledTicks() != 3 {
		t.Fatalf("remaining=%d want=3", f.DisabledTicks())
	}
	for i := 0; i < 3; i++ {
		f.Recover()
	}
	if f.Disabled() {
		t.Fatalf("still disabled after 3 recoveries")
	}
	f.Recover()
	if f.DisabledTicks() != 0 {
		t.Fatalf("remaining=%d want=0", f.DisabledTicks())
	}
}
