package grid

import (
	"sort"

	"voltcraft.ai/internal/sim/kernel/model"
)

const (
	kindCallback       = "callback"
	kindPlacementCheck = "placement_check"
)

type task struct {
	due  uint64
	seq  uint64
	pos  model.Vec3i
	kind string
	fn   func()
}

// scheduler keeps tasks ordered by (due, insertion).
type scheduler struct {
	seq   uint64
	tasks []task
}

func (s *scheduler) add(t task) {
	s.seq++
	t.seq = s.seq
	i := sort.Search(len(s.tasks), func(i int) bool { return s.tasks[i].due > t.due })
	s.tasks = append(s.tasks, task{})
	copy(s.tasks[i+1:], s.tasks[i:])
	s.tasks[i] = t
}

// popDue removes and returns every task due at or before tick.
func (s *scheduler) popDue(tick uint64) []task {
	n := 0
	for n < len(s.tasks) && s.tasks[n].due <= tick {
		n++
	}
	if n == 0 {
		return nil
	}
	out := append([]task(nil), s.tasks[:n]...)
	s.tasks = append(s.tasks[:0], s.tasks[n:]...)
	return out
}

func (s *scheduler) pending(kind string) []task {
	var out []task
	for _, t := range s.tasks {
		if t.kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func (s *scheduler) reset() { s.tasks = nil }

// Schedule runs fn at the start of the tick delay ticks from now. delay is
// raised to 1 so a callback never runs in the tick that scheduled it.
func (g *Grid) Schedule(pos model.Vec3i, delay int, fn func()) {
	if fn == nil {
		return
	}
	if delay < 1 {
		delay = 1
	}
	g.sched.add(task{due: g.tick.Load() + uint64(delay), pos: pos, kind: kindCallback, fn: fn})
}

func (g *Grid) schedulePlacementCheck(pos model.Vec3i, due uint64) {
	g.sched.add(task{due: due, pos: pos, kind: kindPlacementCheck, fn: func() {
		if _, ok := g.blocks[pos]; !ok {
			return
		}
		if n := g.guard.CheckPlacement(g, g.net, pos); n > 0 {
			g.logf("placement check at %s: %d sink(s) over voltage", pos, n)
		}
	}})
}

// PendingCallbacks is the number of scheduled tasks not yet run.
func (g *Grid) PendingCallbacks() int { return len(g.sched.tasks) }
