package grid

import (
	"encoding/json"
	"sort"

	"voltcraft.ai/internal/observerproto"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/machine"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/transformer"
	"voltcraft.ai/internal/sim/kernel/model"
)

// ObserverJoinRequest registers a read-only telemetry session. Frames are
// sent on Out; the grid closes Out when the session leaves.
type ObserverJoinRequest struct {
	SessionID  string
	Out        chan []byte
	EveryTicks int
	WithEvents bool
}

type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
	WithEvents bool
}

type observerClient struct {
	id         string
	out        chan []byte
	every      int
	withEvents bool
}

func (g *Grid) ObserverJoin() chan<- ObserverJoinRequest           { return g.observerJoin }
func (g *Grid) ObserverSubscribe() chan<- ObserverSubscribeRequest { return g.observerSub }
func (g *Grid) ObserverLeave() chan<- string                       { return g.observerLeave }

func clampEvery(v, def int) int {
	if v <= 0 {
		return def
	}
	if v > 1200 {
		return 1200
	}
	return v
}

func (g *Grid) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	if old := g.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	g.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		out:        req.Out,
		every:      clampEvery(req.EveryTicks, 1),
		withEvents: req.WithEvents,
	}
}

func (g *Grid) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := g.observers[req.SessionID]
	if c == nil {
		return
	}
	c.every = clampEvery(req.EveryTicks, c.every)
	c.withEvents = req.WithEvents
}

func (g *Grid) handleObserverLeave(id string) {
	c := g.observers[id]
	if c == nil {
		return
	}
	close(c.out)
	delete(g.observers, id)
}

// Telemetry builds the readout for every loaded block entity. It has no
// side effects.
func (g *Grid) Telemetry(tick uint64, events []event.Entry) observerproto.TelemetryMsg {
	st := g.net.Stats()
	msg := observerproto.TelemetryMsg{
		Type:            "TELEMETRY",
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Sinks:           []observerproto.SinkState{},
		Network: observerproto.NetworkStats{
			Entries:       st.Entries,
			Hits:          st.Hits,
			Misses:        st.Misses,
			Invalidations: st.Invalidations,
			Overflows:     st.Overflows,
		},
		Events:  events,
		Dropped: g.ring.Dropped(),
	}
	for _, pos := range model.SortedPositions(g.entities) {
		if !g.Loaded(pos) {
			continue
		}
		e := g.entities[pos]
		d, _ := g.def(pos)
		s := observerproto.SinkState{
			Pos:           pos.ToArray(),
			Block:         d.ID,
			Role:          d.Role,
			Stored:        e.StoredEnergy(),
			MaxStored:     e.MaxStoredEnergy(),
			DisabledTicks: e.DisabledTicks(),
		}
		if t, ok := e.(sink.Telemetry); ok {
			s.ReceivedLastTick = t.EnergyReceivedLastTick()
			s.PowerAvailable = t.IsPowerAvailable()
		}
		switch x := e.(type) {
		case *machine.Consumer:
			s.Progress = x.Progress()
			s.ProgressTotal = x.ProgressTotal()
		case *machine.Generator:
			s.PowerAvailable = x.StoredEnergy() > 0
		case *transformer.Transformer:
			s.Mode = x.Mode()
		}
		msg.Sinks = append(msg.Sinks, s)
	}
	return msg
}

func (g *Grid) publishTelemetry(tick uint64) {
	events := g.ring.Drain()
	if len(g.observers) == 0 && g.telemetryLogger == nil {
		return
	}
	msg := g.Telemetry(tick, events)
	if g.telemetryLogger != nil {
		if err := g.telemetryLogger.WriteTelemetry(msg); err != nil {
			g.logf("telemetry log: %v", err)
		}
	}
	if len(g.observers) == 0 {
		return
	}

	full, _ := json.Marshal(msg)
	msg.Events = nil
	bare, _ := json.Marshal(msg)

	ids := make([]string, 0, len(g.observers))
	for id := range g.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := g.observers[id]
		if tick%uint64(c.every) != 0 {
			continue
		}
		if c.withEvents {
			sendLatest(c.out, full)
		} else {
			sendLatest(c.out, bare)
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
