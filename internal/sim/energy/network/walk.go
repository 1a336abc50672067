package network

import "voltcraft.ai/internal/sim/kernel/model"

type step struct {
	pos  model.Vec3i
	back model.Dir // face of pos pointing at the node we came from
}

// walk is a breadth-first search from origin.Rel(dir). Conductors expand
// through their connected faces; sinks terminate the branch.
func (n *Network) walk(origin model.Vec3i, dir model.Dir) (*entry, int) {
	start := origin.Rel(dir)
	e := &entry{}
	touched := map[model.Vec3i]struct{}{origin: {}, start: {}}
	seen := map[model.Vec3i]bool{origin: true}
	visited := 0

	if _, ok := n.world.Conductor(start); !ok {
		if s, ok := n.world.SinkAt(start, dir.Opposite()); ok {
			e.conns = append(e.conns, Connection{Pos: start, Face: dir.Opposite(), Sink: s})
		}
		e.touched = sortedTouched(touched)
		return e, 1
	}

	seen[start] = true
	queue := []step{{pos: start, back: dir.Opposite()}}
	head := 0
	for head < len(queue) {
		cur := queue[head]
		head++
		visited++

		c, ok := n.world.Conductor(cur.pos)
		if !ok {
			continue
		}
		for _, d := range model.AllDirs {
			next := cur.pos.Rel(d)
			touched[next] = struct{}{}
			if d == cur.back || !c.Connected(d) || seen[next] {
				continue
			}
			if !n.world.Loaded(next) {
				continue
			}
			if _, isCond := n.world.Conductor(next); isCond {
				if len(seen) >= n.maxVisited {
					e.partial = true
					continue
				}
				seen[next] = true
				queue = append(queue, step{pos: next, back: d.Opposite()})
				continue
			}
			if s, ok := n.world.SinkAt(next, d.Opposite()); ok {
				seen[next] = true
				e.conns = append(e.conns, Connection{Pos: next, Face: d.Opposite(), Sink: s})
			}
		}
	}
	e.touched = sortedTouched(touched)
	return e, visited
}

func sortedTouched(m map[model.Vec3i]struct{}) []model.Vec3i {
	return model.SortedPositions(m)
}
