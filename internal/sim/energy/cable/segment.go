// Package cable models passive conductor segments. A segment carries no
// energy; it only records which of its six faces join the network.
package cable

import "voltcraft.ai/internal/sim/kernel/model"

const (
	TagAcceptor = "energy_acceptor"
	TagSource   = "energy_source"
)

// Env is the world view a segment samples when recomputing connectivity.
type Env interface {
	IsConductor(pos model.Vec3i) bool
	HasTag(pos model.Vec3i, tag string) bool
	BlockName(pos model.Vec3i) string
}

// Policy decides whether a neighbour joins the segment's network.
// CoreBlocks is the explicit fallback list checked after tags.
type Policy struct {
	CoreBlocks map[string]bool
}

// ShouldConnect applies, in order: conductor neighbour, tagged endpoint,
// explicit core block kind.
func (p Policy) ShouldConnect(env Env, pos model.Vec3i, d model.Dir) bool {
	if env == nil {
		return false
	}
	n := pos.Rel(d)
	if env.IsConductor(n) {
		return true
	}
	if env.HasTag(n, TagAcceptor) || env.HasTag(n, TagSource) {
		return true
	}
	return p.CoreBlocks[env.BlockName(n)]
}

type Segment struct {
	Pos  model.Vec3i
	Kind string

	conn [model.NumDirs]bool
}

func New(pos model.Vec3i, kind string) *Segment {
	return &Segment{Pos: pos, Kind: kind}
}

func (s *Segment) Connected(d model.Dir) bool {
	if !d.Valid() {
		return false
	}
	return s.conn[d]
}

// Connections lists connected faces in model.AllDirs order.
func (s *Segment) Connections() []model.Dir {
	out := make([]model.Dir, 0, model.NumDirs)
	for _, d := range model.AllDirs {
		if s.conn[d] {
			out = append(out, d)
		}
	}
	return out
}

// Mask packs the six flags into the low bits, Down first.
func (s *Segment) Mask() uint8 {
	var m uint8
	for _, d := range model.AllDirs {
		if s.conn[d] {
			m |= 1 << d
		}
	}
	return m
}

// Recompute samples all six neighbours. Called once at placement.
func (s *Segment) Recompute(env Env, p Policy) bool {
	changed := false
	for _, d := range model.AllDirs {
		if s.Update(env, p, d) {
			changed = true
		}
	}
	return changed
}

// Update re-samples one face after a neighbour change and reports whether
// the flag flipped.
func (s *Segment) Update(env Env, p Policy, d model.Dir) bool {
	if !d.Valid() {
		return false
	}
	v := p.ShouldConnect(env, s.Pos, d)
	if s.conn[d] == v {
		return false
	}
	s.conn[d] = v
	return true
}
