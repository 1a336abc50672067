package overvoltage

import (
	"sort"

	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/energy/tier"
	"voltcraft.ai/internal/sim/kernel/model"
)

// World is the capability lookup used by the placement check.
type World interface {
	IsConductor(pos model.Vec3i) bool
	SinkAt(pos model.Vec3i, face model.Dir) (sink.Sink, bool)
	SourceAt(pos model.Vec3i) (sink.Source, bool)
}

// Topology is satisfied by *network.Network.
type Topology interface {
	Component(pos model.Vec3i) network.Component
	Behind(pos model.Vec3i, dir model.Dir) network.Component
}

type emitter struct {
	pos model.Vec3i
	t   tier.Tier
}

// CheckPlacement looks for networks around pos that are already mismatched:
// any source whose output tier a reachable sink cannot safely take. Each
// offending sink gets one consequence, for the largest gap found. It returns
// the number of positions affected.
func (h *Handler) CheckPlacement(w World, topo Topology, pos model.Vec3i) int {
	if w == nil || topo == nil {
		return 0
	}
	var comps []network.Component
	if w.IsConductor(pos) {
		comps = append(comps, topo.Component(pos))
	} else {
		for _, d := range model.AllDirs {
			comps = append(comps, topo.Behind(pos, d))
		}
	}

	worst := map[model.Vec3i]int{}
	for _, c := range comps {
		var sources []emitter
		for _, ep := range c.Endpoints {
			src, ok := w.SourceAt(ep.Pos)
			if !ok {
				continue
			}
			if t, ok := src.OutputTier(ep.Face); ok {
				sources = append(sources, emitter{pos: ep.Pos, t: t})
			}
		}
		if len(sources) == 0 {
			continue
		}
		for _, ep := range c.Endpoints {
			s, ok := w.SinkAt(ep.Pos, ep.Face)
			if !ok {
				continue
			}
			for _, src := range sources {
				if src.pos == ep.Pos {
					continue
				}
				packet := src.t.PacketSize()
				if sink.Accepts(s, ep.Face, packet) {
					continue
				}
				gap := tier.Gap(src.t, sink.TierOf(s, ep.Face))
				if gap < 1 {
					gap = 1
				}
				if gap > worst[ep.Pos] {
					worst[ep.Pos] = gap
				}
			}
		}
	}
	if len(worst) == 0 {
		return 0
	}
	targets := make([]model.Vec3i, 0, len(worst))
	for p := range worst {
		targets = append(targets, p)
	}
	sort.Slice(targets, func(i, j int) bool { return model.Less(targets[i], targets[j]) })
	for _, p := range targets {
		h.Apply(p, worst[p])
	}
	return len(targets)
}
