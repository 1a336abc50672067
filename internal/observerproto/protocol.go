package observerproto

import "voltcraft.ai/internal/sim/energy/event"

// Version is the telemetry protocol version.
const Version = "1.0"

// Client -> Server. First message on the telemetry WS connection; may be
// re-sent to change the cadence.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EveryTicks      int    `json:"every_ticks,omitempty"`
	WithEvents      bool   `json:"with_events,omitempty"`
}

// HTTP response for GET /v1/telemetry/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string     `json:"protocol_version"`
	GridID          string     `json:"grid_id"`
	Tick            uint64     `json:"tick"`
	GridParams      GridParams `json:"grid_params"`
	BlockPalette    []string   `json:"block_palette"`
	PaletteDigest   string     `json:"palette_digest"`
}

type GridParams struct {
	TickRateHz int `json:"tick_rate_hz"`
	ChunkSize  int `json:"chunk_size"`
	MaxVisited int `json:"max_visited"`
}

// Server -> Client. Sent every EveryTicks ticks.
type TelemetryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Sinks   []SinkState   `json:"sinks"`
	Network NetworkStats  `json:"network"`
	Events  []event.Entry `json:"events,omitempty"`
	Dropped uint64        `json:"dropped_events,omitempty"`
}

// SinkState is the per-entity readout a GUI renders.
type SinkState struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
	Role  string `json:"role"`

	Stored           int  `json:"stored"`
	MaxStored        int  `json:"max_stored"`
	ReceivedLastTick int  `json:"received_last_tick"`
	PowerAvailable   bool `json:"power_available"`

	Progress      int    `json:"progress,omitempty"`
	ProgressTotal int    `json:"progress_total,omitempty"`
	Mode          string `json:"mode,omitempty"`
	DisabledTicks int    `json:"disabled_ticks,omitempty"`
}

type NetworkStats struct {
	Entries       int    `json:"entries"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Invalidations uint64 `json:"invalidations"`
	Overflows     uint64 `json:"overflows"`
}
