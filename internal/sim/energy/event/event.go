// Package event carries the grid's structured observability output. The
// simulation core records entries; what happens to them (logs, index,
// telemetry) is decided by the recorders wired in by the host.
package event

import "sync"

const (
	ActionTransfer    = "TRANSFER"
	ActionOvervoltage = "OVERVOLTAGE"
	ActionMalfunction = "MALFUNCTION"
	ActionExplode     = "EXPLODE"
	ActionOverflow    = "NETWORK_OVERFLOW"
	ActionPlace       = "PLACE"
	ActionRemove      = "REMOVE"
	ActionModeChange  = "MODE_CHANGE"
)

type Entry struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"`
	Pos    [3]int `json:"pos"`

	Target      *[3]int `json:"target,omitempty"`
	Face        string  `json:"face,omitempty"`
	Block       string  `json:"block,omitempty"`
	Amount      int     `json:"amount,omitempty"`
	Packet      int     `json:"packet,omitempty"`
	Tier        string  `json:"tier,omitempty"`
	Gap         int     `json:"gap,omitempty"`
	Consequence string  `json:"consequence,omitempty"`
	Reason      string  `json:"reason,omitempty"`

	Details map[string]any `json:"details,omitempty"`
}

type Recorder interface {
	Record(e Entry)
}

type RecorderFunc func(e Entry)

func (f RecorderFunc) Record(e Entry) { f(e) }

// Multi fans an entry out to every non-nil recorder in order.
type Multi []Recorder

func (m Multi) Record(e Entry) {
	for _, r := range m {
		if r != nil {
			r.Record(e)
		}
	}
}

// Discard drops everything.
var Discard Recorder = RecorderFunc(func(Entry) {})

// Ring buffers the most recent entries, up to a fixed capacity, until drained.
type Ring struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	dropped uint64
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Ring{cap: capacity}
}

func (r *Ring) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= r.cap {
		r.entries = r.entries[1:]
		r.dropped++
	}
	r.entries = append(r.entries, e)
}

// Drain returns buffered entries and empties the ring.
func (r *Ring) Drain() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = nil
	return out
}

func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Pos is a helper for Target fields.
func Pos(a [3]int) *[3]int { return &a }
