package grid

import (
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/cable"
	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/kernel/model"
)

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

func (k ChunkKey) Array() [3]int { return [3]int{k.CX, k.CY, k.CZ} }

func floorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		q--
	}
	return q
}

func (g *Grid) ChunkOf(pos model.Vec3i) ChunkKey {
	n := g.cfg.ChunkSize
	return ChunkKey{CX: floorDiv(pos.X, n), CY: floorDiv(pos.Y, n), CZ: floorDiv(pos.Z, n)}
}

// LoadChunk makes a chunk's positions visible. Blocks placed in it before an
// unload are kept. The discovery cache is dropped wholesale.
func (g *Grid) LoadChunk(k ChunkKey) {
	if g.chunks[k] {
		return
	}
	g.chunks[k] = true
	g.refreshChunkEdges(k)
	g.net.InvalidateAll()
}

// UnloadChunk hides a chunk without removing anything in it.
func (g *Grid) UnloadChunk(k ChunkKey) {
	if !g.chunks[k] {
		return
	}
	delete(g.chunks, k)
	g.refreshChunkEdges(k)
	g.net.InvalidateAll()
}

func (g *Grid) LoadedChunks() []ChunkKey {
	out := make([]ChunkKey, 0, len(g.chunks))
	for k := range g.chunks {
		out = append(out, k)
	}
	sortChunks(out)
	return out
}

// refreshChunkEdges re-samples every loaded cable touching chunk k so faces
// across the boundary follow its load state.
func (g *Grid) refreshChunkEdges(k ChunkKey) {
	for _, pos := range model.SortedPositions(g.cables) {
		seg := g.cables[pos]
		if !g.Loaded(pos) {
			continue
		}
		for _, d := range model.AllDirs {
			if g.ChunkOf(g.Neighbor(pos, d)) == k {
				seg.Update(g, g.policy, d)
			}
		}
	}
}

// Loaded implements network.World.
func (g *Grid) Loaded(pos model.Vec3i) bool { return g.chunks[g.ChunkOf(pos)] }

// Neighbor is the position one step from pos through d.
func (g *Grid) Neighbor(pos model.Vec3i, d model.Dir) model.Vec3i { return pos.Rel(d) }

// BlockEntityAt returns the block entity at pos, or nil.
func (g *Grid) BlockEntityAt(pos model.Vec3i) any {
	if !g.Loaded(pos) {
		return nil
	}
	e, ok := g.entities[pos]
	if !ok {
		return nil
	}
	return e
}

func (g *Grid) def(pos model.Vec3i) (catalogs.BlockDef, bool) {
	id, ok := g.blocks[pos]
	if !ok || int(id) >= len(g.cats.Blocks.Palette) {
		return catalogs.BlockDef{}, false
	}
	d, ok := g.cats.Blocks.Defs[g.cats.Blocks.Palette[id]]
	return d, ok
}

// BlockName implements cable.Env. Unloaded and empty positions read as AIR.
func (g *Grid) BlockName(pos model.Vec3i) string {
	if !g.Loaded(pos) {
		return "AIR"
	}
	d, ok := g.def(pos)
	if !ok {
		return "AIR"
	}
	return d.ID
}

func (g *Grid) HasTag(pos model.Vec3i, tag string) bool {
	if !g.Loaded(pos) {
		return false
	}
	d, ok := g.def(pos)
	return ok && d.HasTag(tag)
}

func (g *Grid) IsConductor(pos model.Vec3i) bool {
	if !g.Loaded(pos) {
		return false
	}
	_, ok := g.cables[pos]
	return ok
}

// Conductor implements network.World.
func (g *Grid) Conductor(pos model.Vec3i) (network.Conductor, bool) {
	if !g.Loaded(pos) {
		return nil, false
	}
	seg, ok := g.cables[pos]
	if !ok {
		return nil, false
	}
	return seg, true
}

// SinkAt is the capability provider: the sink exposed by the entity at pos
// on face, if any. Cables, air and pure producers expose none.
func (g *Grid) SinkAt(pos model.Vec3i, face model.Dir) (sink.Sink, bool) {
	if !g.Loaded(pos) || !face.Valid() {
		return nil, false
	}
	s, ok := g.entities[pos].(sink.Sink)
	return s, ok
}

func (g *Grid) SourceAt(pos model.Vec3i) (sink.Source, bool) {
	if !g.Loaded(pos) {
		return nil, false
	}
	s, ok := g.entities[pos].(sink.Source)
	return s, ok
}

// Segment returns the cable segment at pos, for inspection.
func (g *Grid) Segment(pos model.Vec3i) (*cable.Segment, bool) {
	seg, ok := g.cables[pos]
	return seg, ok
}
