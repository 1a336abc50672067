package transfer

import (
	"testing"

	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/overvoltage"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

type buffer struct{ stored int }

func (b *buffer) StoredEnergy() int { return b.stored }
func (b *buffer) DrainEnergy(n int)  { b.stored -= n }

type capped struct {
	t        tier.Tier
	rate     int
	got      int
	idle     bool
	receives int
}

func (c *capped) ProbeEnergy(_ model.Dir, max int) sink.Demand {
	room := c.rate - c.got
	if room > max {
		room = max
	}
	return sink.Demand(room)
}

func (c *capped) ReceiveEnergy(_ model.Dir, max int) int {
	c.receives++
	if c.idle {
		return 0
	}
	n := c.rate - c.got
	if n > max {
		n = max
	}
	c.got += n
	return n
}

func (c *capped) EnergyTier() tier.Tier           { return c.t }
func (c *capped) CanSafelyReceive(packet int) bool { return sink.SafeFor(c.t, packet) }

type stubNet map[model.Dir][]network.Connection

func (s stubNet) ConnectedSinks(_ model.Vec3i, d model.Dir) []network.Connection { return s[d] }

type guardCall struct {
	pos model.Vec3i
	gap int
}

type recordingGuard struct{ calls []guardCall }

func (g *recordingGuard) Apply(pos model.Vec3i, gap int) overvoltage.Consequence {
	g.calls = append(g.calls, guardCall{pos: pos, gap: gap})
	return overvoltage.Malfunction
}

func conn(x int, s sink.Sink) network.Connection {
	return network.Connection{Pos: model.Vec3i{X: x}, Face: model.West, Sink: s}
}

func TestPushGeneratorIntoFurnace(t *testing.T) {
	furnace := &capped{t: tier.LV, rate: 4}
	net := stubNet{model.East: {conn(3, furnace)}}
	var entries []event.Entry
	e := New(net, nil, event.RecorderFunc(func(en event.Entry) { entries = append(entries, en) }), nil)

	buf := &buffer{stored: 40}
	res := e.Push(Request{Tier: tier.LV, Buffer: buf, Dirs: model.AllDirs[:]})
	if res.Transferred != 4 || buf.stored != 36 || furnace.got != 4 {
		t.Fatalf("res=%+v stored=%d furnace=%d", res, buf.stored, furnace.got)
	}
	if buf.stored+furnace.got != 40 {
		t.Fatalf("energy not conserved")
	}
	if !res.Moved() || len(entries) != 1 || entries[0].Amount != 4 || entries[0].Packet != 32 {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestPushRequiresOnePacket(t *testing.T) {
	s := &capped{t: tier.LV, rate: 1000}
	e := New(stubNet{model.East: {conn(1, s)}}, nil, nil, nil)
	buf := &buffer{stored: 31}
	if res := e.Push(Request{Tier: tier.LV, Buffer: buf, Dirs: []model.Dir{model.East}}); res.Moved() {
		t.Fatalf("pushed below one packet: %+v", res)
	}
	if s.receives != 0 {
		t.Fatalf("sink touched")
	}
}

func TestPushStopsBelowOnePacket(t *testing.T) {
	a := &capped{t: tier.LV, rate: 1000}
	b := &capped{t: tier.LV, rate: 1000}
	e := New(stubNet{model.East: {conn(1, a), conn(2, b)}}, nil, nil, nil)
	buf := &buffer{stored: 40}
	res := e.Push(Request{Tier: tier.LV, Buffer: buf, Dirs: []model.Dir{model.East}})
	if a.got != 32 || b.got != 0 || buf.stored != 8 || res.Deliveries != 1 {
		t.Fatalf("a=%d b=%d stored=%d res=%+v", a.got, b.got, buf.stored, res)
	}
}

func TestPushSkipsExcludedSelfAndIdle(t *testing.T) {
	self := &capped{t: tier.LV, rate: 1000}
	excluded := &capped{t: tier.LV, rate: 1000}
	full := &capped{t: tier.LV, rate: 0}
	idle := &capped{t: tier.LV, rate: 8, idle: true}
	target := &capped{t: tier.LV, rate: 1000}
	net := stubNet{model.East: {
		{Pos: model.Vec3i{}, Face: model.West, Sink: self},
		conn(2, excluded),
		conn(3, full),
		conn(4, idle),
		conn(5, target),
	}}
	e := New(net, nil, nil, nil)
	buf := &buffer{stored: 64}
	res := e.Push(Request{
		Tier:    tier.LV,
		Buffer:  buf,
		Dirs:    []model.Dir{model.East},
		Exclude: map[model.Vec3i]struct{}{{X: 2}: {}},
	})
	if self.receives != 0 || excluded.receives != 0 || full.receives != 0 {
		t.Fatalf("self=%d excluded=%d full=%d receives", self.receives, excluded.receives, full.receives)
	}
	if idle.receives != 1 || idle.got != 0 {
		t.Fatalf("idle sink should be offered and refuse: %+v", idle)
	}
	if target.got != 32 || buf.stored != 32 || res.Transferred != 32 {
		t.Fatalf("target=%d stored=%d res=%+v", target.got, buf.stored, res)
	}
}

func TestPushTierMismatchInvokesGuardOnce(t *testing.T) {
	machine := &capped{t: tier.LV, rate: 32}
	g := &recordingGuard{}
	e := New(stubNet{model.East: {conn(1, machine)}}, g, nil, nil)
	buf := &buffer{stored: 512}
	res := e.Push(Request{Tier: tier.HV, Buffer: buf, Dirs: model.AllDirs[:]})

	if len(g.calls) != 1 {
		t.Fatalf("guard calls=%d want=1", len(g.calls))
	}
	if g.calls[0].gap != tier.HV.Ordinal()-tier.LV.Ordinal() || g.calls[0].pos != (model.Vec3i{X: 1}) {
		t.Fatalf("call=%+v", g.calls[0])
	}
	if machine.got != 0 || machine.receives != 0 || buf.stored != 512 || res.Refused != 1 || res.Moved() {
		t.Fatalf("machine=%+v stored=%d res=%+v", machine, buf.stored, res)
	}
}

type sided struct {
	capped
	high model.Dir
}

func (s *sided) SideTier(face model.Dir) tier.Tier {
	if face == s.high {
		return tier.MV
	}
	return tier.LV
}

func (s *sided) CanSideReceive(face model.Dir, packet int) bool {
	return sink.SafeFor(s.SideTier(face), packet)
}

func TestPushUsesPerSideTierForTransformers(t *testing.T) {
	tr := &sided{capped: capped{t: tier.LV, rate: 1000}, high: model.West}
	g := &recordingGuard{}
	e := New(stubNet{model.East: {conn(1, tr)}}, g, nil, nil)
	buf := &buffer{stored: 128}
	res := e.Push(Request{Tier: tier.MV, Buffer: buf, Dirs: []model.Dir{model.East}})
	if len(g.calls) != 0 || res.Transferred != 128 {
		t.Fatalf("high face should take MV: res=%+v calls=%v", res, g.calls)
	}

	tr2 := &sided{capped: capped{t: tier.LV, rate: 1000}, high: model.Up}
	e2 := New(stubNet{model.East: {conn(1, tr2)}}, g, nil, nil)
	buf2 := &buffer{stored: 128}
	e2.Push(Request{Tier: tier.MV, Buffer: buf2, Dirs: []model.Dir{model.East}})
	if len(g.calls) != 1 || g.calls[0].gap != 1 || buf2.stored != 128 {
		t.Fatalf("low face should refuse MV: calls=%v stored=%d", g.calls, buf2.stored)
	}
}

func TestReachable(t *testing.T) {
	s := &capped{}
	net := stubNet{
		model.East: {conn(1, s), conn(2, s)},
		model.Up:   {conn(2, s)},
	}
	got := Reachable(net, model.Vec3i{}, []model.Dir{model.East, model.Up, model.Down})
	if len(got) != 2 {
		t.Fatalf("Reachable=%v", got)
	}
}

func TestPushServesSinkOncePerCallAcrossFaces(t *testing.T) {
	battery := &capped{t: tier.LV, rate: 1000}
	e := New(stubNet{
		model.Up:   {conn(4, battery)},
		model.East: {conn(4, battery)},
	}, nil, nil, nil)
	buf := &buffer{stored: 100}
	res := e.Push(Request{Tier: tier.LV, Buffer: buf, Dirs: model.AllDirs[:]})

	if battery.got != 32 || battery.receives != 1 {
		t.Fatalf("battery got=%d receives=%d want=32/1", battery.got, battery.receives)
	}
	if buf.stored != 68 || res.Deliveries != 1 {
		t.Fatalf("stored=%d res=%+v", buf.stored, res)
	}
}

func TestPushGuardsMismatchOncePerCallAcrossFaces(t *testing.T) {
	furnace := &capped{t: tier.LV, rate: 32}
	g := &recordingGuard{}
	e := New(stubNet{
		model.Up:   {conn(2, furnace)},
		model.East: {conn(2, furnace)},
	}, g, nil, nil)
	buf := &buffer{stored: 256}
	res := e.Push(Request{Tier: tier.MV, Buffer: buf, Dirs: model.AllDirs[:]})

	if len(g.calls) != 1 || res.Refused != 1 {
		t.Fatalf("guard calls=%d refused=%d want=1/1", len(g.calls), res.Refused)
	}
	if furnace.receives != 0 || buf.stored != 256 {
		t.Fatalf("furnace receives=%d stored=%d", furnace.receives, buf.stored)
	}
}
