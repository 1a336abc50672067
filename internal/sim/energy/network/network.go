// Package network discovers the energy sinks reachable through conductor
// segments and memoizes the result per (origin, direction).
//
// Cached entries remember every position whose contents could change the
// answer (the origin, every visited node and the six neighbours of every
// visited conductor). Invalidate(pos) drops exactly the entries that touched
// pos, so an entry is either absent or current.
package network

import (
	"sync"

	"voltcraft.ai/internal/sim/energy/sink"
	"voltcraft.ai/internal/sim/kernel/model"
)

const DefaultMaxVisited = 4096

// Conductor is the connectivity view of a cable segment.
type Conductor interface {
	Connected(d model.Dir) bool
}

// World is the host lookup surface used by discovery.
type World interface {
	Loaded(pos model.Vec3i) bool
	Conductor(pos model.Vec3i) (Conductor, bool)
	SinkAt(pos model.Vec3i, face model.Dir) (sink.Sink, bool)
}

// Connection is one reachable sink. Face is the sink-local side the walk
// arrived through.
type Connection struct {
	Pos  model.Vec3i
	Face model.Dir
	Sink sink.Sink
}

type Result struct {
	Conns   []Connection
	Partial bool
	Cached  bool
}

type Stats struct {
	Entries       int
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Overflows     uint64
}

type key struct {
	origin model.Vec3i
	dir    model.Dir
}

type entry struct {
	conns   []Connection
	partial bool
	touched []model.Vec3i
}

// Network is safe for use from multiple goroutines; lookups and
// invalidations on the cache are mutually exclusive.
type Network struct {
	mu sync.Mutex

	world      World
	maxVisited int

	entries map[key]*entry
	index   map[model.Vec3i]map[key]struct{}

	stats Stats

	// OnOverflow, when set, is called after the lock is released each time a
	// fresh walk hits the visit cap.
	OnOverflow func(origin model.Vec3i, dir model.Dir, visited int)
}

func New(w World, maxVisited int) *Network {
	if maxVisited <= 0 {
		maxVisited = DefaultMaxVisited
	}
	return &Network{
		world:      w,
		maxVisited: maxVisited,
		entries:    map[key]*entry{},
		index:      map[model.Vec3i]map[key]struct{}{},
	}
}

// ConnectedSinks returns the sinks reachable from origin through dir, in
// discovery order.
func (n *Network) ConnectedSinks(origin model.Vec3i, dir model.Dir) []Connection {
	return n.Discover(origin, dir).Conns
}

// Discover is ConnectedSinks with cache and overflow details.
func (n *Network) Discover(origin model.Vec3i, dir model.Dir) Result {
	if n == nil || n.world == nil || !dir.Valid() {
		return Result{}
	}
	start := origin.Rel(dir)

	n.mu.Lock()
	if !n.world.Loaded(origin) || !n.world.Loaded(start) {
		n.mu.Unlock()
		return Result{}
	}
	k := key{origin: origin, dir: dir}
	e, ok := n.entries[k]
	cached := ok
	overflowed := false
	var visited int
	if ok {
		n.stats.Hits++
	} else {
		n.stats.Misses++
		e, visited = n.walk(origin, dir)
		n.store(k, e)
		if e.partial {
			n.stats.Overflows++
			overflowed = true
		}
	}
	out := make([]Connection, len(e.conns), len(e.conns)+1)
	copy(out, e.conns)

	// Direct-neighbour check bypassing the cache: a sink that appeared this
	// tick before its invalidation reached us is still served, transiently.
	if _, isCond := n.world.Conductor(start); !isCond {
		if s, ok := n.world.SinkAt(start, dir.Opposite()); ok && !containsPos(out, start) {
			out = append(out, Connection{Pos: start, Face: dir.Opposite(), Sink: s})
		}
	}
	partial := e.partial
	n.mu.Unlock()

	if overflowed && n.OnOverflow != nil {
		n.OnOverflow(origin, dir, visited)
	}
	return Result{Conns: out, Partial: partial, Cached: cached}
}

// Invalidate drops every cached entry whose walk touched pos.
func (n *Network) Invalidate(pos model.Vec3i) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := n.index[pos]
	if len(keys) == 0 {
		return
	}
	drop := make([]key, 0, len(keys))
	for k := range keys {
		drop = append(drop, k)
	}
	for _, k := range drop {
		n.dropLocked(k)
	}
}

// InvalidateAll drops the whole cache (chunk load/unload, snapshot import).
func (n *Network) InvalidateAll() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.entries) > 0 {
		n.stats.Invalidations += uint64(len(n.entries))
	}
	n.entries = map[key]*entry{}
	n.index = map[model.Vec3i]map[key]struct{}{}
}

func (n *Network) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := n.stats
	st.Entries = len(n.entries)
	return st
}

func (n *Network) store(k key, e *entry) {
	n.entries[k] = e
	for _, p := range e.touched {
		m := n.index[p]
		if m == nil {
			m = map[key]struct{}{}
			n.index[p] = m
		}
		m[k] = struct{}{}
	}
}

func (n *Network) dropLocked(k key) {
	e, ok := n.entries[k]
	if !ok {
		return
	}
	delete(n.entries, k)
	n.stats.Invalidations++
	for _, p := range e.touched {
		m := n.index[p]
		if m == nil {
			continue
		}
		delete(m, k)
		if len(m) == 0 {
			delete(n.index, p)
		}
	}
}

func containsPos(conns []Connection, pos model.Vec3i) bool {
	for _, c := range conns {
		if c.Pos == pos {
			return true
		}
	}
	return false
}
