package network

import "voltcraft.ai/internal/sim/kernel/model"

// Endpoint is a non-conductor block touching a network, with the face it
// touches through.
type Endpoint struct {
	Pos  model.Vec3i
	Face model.Dir
}

type Component struct {
	Conductors []model.Vec3i
	Endpoints  []Endpoint
	Partial    bool
}

// Component collects the conductor component containing pos and every
// endpoint face touching it. It returns an empty component when pos is not a
// conductor. Results are never cached.
func (n *Network) Component(pos model.Vec3i) Component {
	if n == nil || n.world == nil {
		return Component{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.world.Loaded(pos) {
		return Component{}
	}
	if _, ok := n.world.Conductor(pos); !ok {
		return Component{}
	}
	c := newCollector()
	c.flood(n, pos)
	return c.out
}

// Behind returns the network on the far side of face dir of a non-conductor
// block at pos: the block's own face, plus either the conductor component
// there or the directly adjacent block.
func (n *Network) Behind(pos model.Vec3i, dir model.Dir) Component {
	if n == nil || n.world == nil || !dir.Valid() {
		return Component{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	next := pos.Rel(dir)
	if !n.world.Loaded(pos) || !n.world.Loaded(next) {
		return Component{}
	}
	c := newCollector()
	c.add(Endpoint{Pos: pos, Face: dir})
	if _, ok := n.world.Conductor(next); ok {
		c.flood(n, next)
	} else {
		c.add(Endpoint{Pos: next, Face: dir.Opposite()})
	}
	return c.out
}

type collector struct {
	out  Component
	seen map[model.Vec3i]bool
	eps  map[Endpoint]bool
}

func newCollector() *collector {
	return &collector{seen: map[model.Vec3i]bool{}, eps: map[Endpoint]bool{}}
}

func (c *collector) add(ep Endpoint) {
	if c.eps[ep] {
		return
	}
	c.eps[ep] = true
	c.out.Endpoints = append(c.out.Endpoints, ep)
}

func (c *collector) flood(n *Network, start model.Vec3i) {
	c.seen[start] = true
	queue := []model.Vec3i{start}
	head := 0
	for head < len(queue) {
		cur := queue[head]
		head++
		c.out.Conductors = append(c.out.Conductors, cur)
		cond, ok := n.world.Conductor(cur)
		if !ok {
			continue
		}
		for _, d := range model.AllDirs {
			if !cond.Connected(d) {
				continue
			}
			next := cur.Rel(d)
			if !n.world.Loaded(next) {
				continue
			}
			if _, isCond := n.world.Conductor(next); isCond {
				if c.seen[next] {
					continue
				}
				if len(c.seen) >= n.maxVisited {
					c.out.Partial = true
					continue
				}
				c.seen[next] = true
				queue = append(queue, next)
				continue
			}
			c.add(Endpoint{Pos: next, Face: d.Opposite()})
		}
	}
}
