// Package transfer is the per-tick greedy push: a sender hands packets to
// whichever discovered sinks want energy, in discovery order.
package transfer

import (
	"math"

	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/overvoltage"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

// Discovery is satisfied by *network.Network.
type Discovery interface {
	ConnectedSinks(origin model.Vec3i, dir model.Dir) []network.Connection
}

// Guard is satisfied by *overvoltage.Handler.
type Guard interface {
	Apply(pos model.Vec3i, gap int) overvoltage.Consequence
}

// Request describes one sender's push for this tick.
type Request struct {
	Pos    model.Vec3i
	Tier   tier.Tier
	Packet int // 0 means Tier.PacketSize()
	Buffer sink.Buffer

	Dirs    []model.Dir
	Exclude map[model.Vec3i]struct{}
}

// Pusher is satisfied by *Engine.
type Pusher interface {
	Push(req Request) Result
}

type Result struct {
	Transferred int
	Deliveries  int
	Refused     int
}

// Moved reports whether any energy left the sender.
func (r Result) Moved() bool { return r.Transferred > 0 }

type Engine struct {
	net   Discovery
	guard Guard
	rec   event.Recorder
	now   func() uint64
}

// New builds an engine. guard, rec and now may be nil.
func New(net Discovery, guard Guard, rec event.Recorder, now func() uint64) *Engine {
	if rec == nil {
		rec = event.Discard
	}
	if now == nil {
		now = func() uint64 { return 0 }
	}
	return &Engine{net: net, guard: guard, rec: rec, now: now}
}

// Push runs only when the sender holds at least one packet, and stops as
// soon as it holds less than one. Each sink position is offered at most one
// packet, or refused at most once, per call even when several of the
// sender's faces reach it.
func (e *Engine) Push(req Request) Result {
	var res Result
	if e == nil || e.net == nil || req.Buffer == nil {
		return res
	}
	packet := req.Packet
	if packet <= 0 {
		packet = req.Tier.PacketSize()
	}
	if req.Buffer.StoredEnergy() < packet {
		return res
	}

	served := map[model.Vec3i]struct{}{}
	for _, d := range req.Dirs {
		if req.Buffer.StoredEnergy() < packet {
			break
		}
		for _, c := range e.demanding(req, d) {
			if _, done := served[c.Pos]; done {
				continue
			}
			served[c.Pos] = struct{}{}
			if !sink.Accepts(c.Sink, c.Face, packet) {
				res.Refused++
				if e.guard != nil {
					e.guard.Apply(c.Pos, tier.Gap(req.Tier, sink.TierOf(c.Sink, c.Face)))
				}
				continue
			}
			offer := packet
			if stored := req.Buffer.StoredEnergy(); stored < offer {
				offer = stored
			}
			got := c.Sink.ReceiveEnergy(c.Face, offer)
			if got > offer {
				got = offer
			}
			if got > 0 {
				req.Buffer.DrainEnergy(got)
				res.Transferred += got
				res.Deliveries++
				e.rec.Record(event.Entry{
					Tick:   e.now(),
					Action: event.ActionTransfer,
					Pos:    req.Pos.ToArray(),
					Target: event.Pos(c.Pos.ToArray()),
					Face:   c.Face.String(),
					Amount: got,
					Packet: packet,
					Tier:   req.Tier.String(),
				})
			}
			if req.Buffer.StoredEnergy() < packet {
				return res
			}
		}
	}
	return res
}

// demanding returns the candidates behind d that are not excluded and
// report nonzero demand on a probe.
func (e *Engine) demanding(req Request, d model.Dir) []network.Connection {
	cands := e.net.ConnectedSinks(req.Pos, d)
	out := make([]network.Connection, 0, len(cands))
	for _, c := range cands {
		if c.Pos == req.Pos || c.Sink == nil {
			continue
		}
		if _, skip := req.Exclude[c.Pos]; skip {
			continue
		}
		if !c.Sink.ProbeEnergy(c.Face, math.MaxInt32).Wants() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Reachable returns the set of sink positions discovered behind each of dirs.
// Transformers use it to build their exclusion set.
func Reachable(net Discovery, pos model.Vec3i, dirs []model.Dir) map[model.Vec3i]struct{} {
	out := map[model.Vec3i]struct{}{}
	if net == nil {
		return out
	}
	for _, d := range dirs {
		for _, c := range net.ConnectedSinks(pos, d) {
			out[c.Pos] = struct{}{}
		}
	}
	return out
}
