// Package grid is the host world for the energy core: chunked block storage,
// block entities, a deferred-callback scheduler and the tick loop.
//
// A Grid is single-threaded. All state is owned by the goroutine that calls
// Step (or Run); other goroutines talk to it through the observer channels.
package grid

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"voltcraft.ai/internal/observerproto"
	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/cable"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/overvoltage"
	"voltcraft.ai/internal/sim/energy/transfer"
	"voltcraft.ai/internal/sim/kernel/model"
	"voltcraft.ai/internal/sim/tuning"
)

var (
	ErrOccupied     = errors.New("position occupied")
	ErrUnloaded     = errors.New("position not loaded")
	ErrUnknownBlock = errors.New("unknown block")
	ErrNotPlaceable = errors.New("block not placeable")
	ErrEmpty        = errors.New("no block at position")
)

type Config struct {
	ID         string
	TickRateHz int
	ChunkSize  int
	MaxVisited int

	Overvoltage         overvoltage.Table
	PlacementCheckDelay int
	TelemetryEvery      int
	SnapshotEvery       int
}

func ConfigFromTuning(id string, t tuning.Tuning) Config {
	return Config{
		ID:                  id,
		TickRateHz:          t.TickRateHz,
		ChunkSize:           t.ChunkSize,
		MaxVisited:          t.Network.MaxVisited,
		Overvoltage:         t.OvervoltageTable(),
		PlacementCheckDelay: t.PlacementCheckDelayTicks,
		TelemetryEvery:      t.TelemetryEveryTicks,
		SnapshotEvery:       t.SnapshotEveryTicks,
	}
}

func (c *Config) normalize() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 16
	}
	if c.PlacementCheckDelay < 1 {
		c.PlacementCheckDelay = 1
	}
	if c.Overvoltage == (overvoltage.Table{}) {
		c.Overvoltage = overvoltage.DefaultTable()
	}
}

// entity is what every block entity provides to the host.
type entity interface {
	StoredEnergy() int
	MaxStoredEnergy() int
	Malfunction(ticks int)
	Disabled() bool
	DisabledTicks() int
	Recover()
}

type latcher interface {
	Latch()
}

type TelemetryLogger interface {
	WriteTelemetry(msg observerproto.TelemetryMsg) error
}

type Grid struct {
	cfg    Config
	cats   *catalogs.Catalogs
	policy cable.Policy
	logger *log.Logger

	tick atomic.Uint64

	chunks   map[ChunkKey]bool
	blocks   map[model.Vec3i]uint16
	cables   map[model.Vec3i]*cable.Segment
	entities map[model.Vec3i]entity
	modes    map[model.Vec3i]string

	net    *network.Network
	guard  *overvoltage.Handler
	engine *transfer.Engine
	ring   *event.Ring
	rec    event.Recorder
	sched  scheduler

	observers     map[string]*observerClient
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	admin         chan snapshotReq
	stop          chan struct{}

	telemetryLogger TelemetryLogger
	snapshotSink    chan<- snapshot.SnapshotV1
}

// New builds an empty grid with no chunks loaded. rec receives every
// structured event in addition to the telemetry ring; logger may be nil.
func New(cfg Config, cats *catalogs.Catalogs, rec event.Recorder, logger *log.Logger) (*Grid, error) {
	if cats == nil {
		return nil, fmt.Errorf("grid: nil catalogs")
	}
	cfg.normalize()
	if err := cfg.Overvoltage.Validate(); err != nil {
		return nil, fmt.Errorf("grid: overvoltage: %w", err)
	}
	g := &Grid{
		cfg:           cfg,
		cats:          cats,
		policy:        cable.Policy{CoreBlocks: cats.Blocks.CoreBlocks()},
		logger:        logger,
		chunks:        map[ChunkKey]bool{},
		blocks:        map[model.Vec3i]uint16{},
		cables:        map[model.Vec3i]*cable.Segment{},
		entities:      map[model.Vec3i]entity{},
		modes:         map[model.Vec3i]string{},
		ring:          event.NewRing(4096),
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 64),
		admin:         make(chan snapshotReq, 8),
		stop:          make(chan struct{}),
	}
	g.rec = event.Multi{g.ring, rec}
	now := func() uint64 { return g.tick.Load() }

	g.net = network.New(g, cfg.MaxVisited)
	g.net.OnOverflow = func(origin model.Vec3i, dir model.Dir, visited int) {
		g.rec.Record(event.Entry{
			Tick:    now(),
			Action:  event.ActionOverflow,
			Pos:     origin.ToArray(),
			Face:    dir.String(),
			Details: map[string]any{"visited": visited},
		})
	}
	g.guard = overvoltage.New(cfg.Overvoltage, g, g.rec, now)
	g.engine = transfer.New(g.net, g.guard, g.rec, now)
	return g, nil
}

func (g *Grid) Config() Config      { return g.cfg }
func (g *Grid) CurrentTick() uint64 { return g.tick.Load() }

// Network exposes the discovery cache (read-only use by tests and tools).
func (g *Grid) Network() *network.Network { return g.net }

func (g *Grid) BlockPalette() []string {
	return append([]string(nil), g.cats.Blocks.Palette...)
}

func (g *Grid) PaletteDigest() string { return g.cats.Blocks.PaletteDigest }

func (g *Grid) SetTelemetryLogger(l TelemetryLogger) { g.telemetryLogger = l }

// SetSnapshotSink sets the channel periodic snapshots are offered to. Sends
// never block the tick; a full channel skips that snapshot.
func (g *Grid) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { g.snapshotSink = ch }

func (g *Grid) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}
