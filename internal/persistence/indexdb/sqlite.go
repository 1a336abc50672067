package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index over grid events and
// snapshots. Writes go through a buffered queue drained by one goroutine;
// when the queue is full the write is dropped and counted. The compressed
// JSONL logs stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
	written      atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    event.Entry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick         uint64
	Path         string
	GridID       string
	Chunks       int
	Blocks       int
	Generators   int
	Consumers    int
	Batteries    int
	Transformers int
	Faults       int
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropEventTotal    uint64 `json:"drop_event_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	WrittenTotal      uint64 `json:"written_total"`
}

// Incident is one OVERVOLTAGE row.
type Incident struct {
	Tick        uint64
	Pos         [3]int
	Block       string
	Packet      int
	Tier        string
	Gap         int
	Consequence string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			block TEXT,
			amount INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_action_tick ON events(action, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_pos_tick ON events(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS overvoltage (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			block TEXT,
			packet INTEGER NOT NULL,
			tier TEXT,
			gap INTEGER NOT NULL,
			consequence TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_overvoltage_pos ON overvoltage(x, z, y);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			grid_id TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			generators INTEGER NOT NULL,
			consumers INTEGER NOT NULL,
			batteries INTEGER NOT NULL,
			transformers INTEGER NOT NULL,
			faults INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record implements event.Recorder.
func (s *SQLiteIndex) Record(e event.Entry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvent.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:         snap.Header.Tick,
		Path:         path,
		GridID:       snap.Header.GridID,
		Chunks:       len(snap.Chunks),
		Blocks:       len(snap.Blocks),
		Generators:   len(snap.Generators),
		Consumers:    len(snap.Consumers),
		Batteries:    len(snap.Batteries),
		Transformers: len(snap.Transformers),
		Faults:       len(snap.Faults),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WrittenTotal:      s.written.Load(),
	}
}

// UpsertCatalogs stores the block catalog and the tuning actually applied,
// so indexed rows can be interpreted later without the config dir.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestSnapshot returns the path of the newest indexed snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (string, uint64, bool, error) {
	var (
		path string
		tick int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT path,tick FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path, &tick)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return path, uint64(tick), true, nil
}

// Incidents lists overvoltage rows at or after sinceTick, oldest first.
func (s *SQLiteIndex) Incidents(ctx context.Context, sinceTick uint64, limit int) ([]Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,x,y,z,block,packet,tier,gap,consequence FROM overvoltage WHERE tick>=? ORDER BY tick,seq LIMIT ?`,
		int64(sinceTick), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		var (
			in          Incident
			tick        int64
			block, tier sql.NullString
		)
		if err := rows.Scan(&tick, &in.Pos[0], &in.Pos[1], &in.Pos[2], &block, &in.Packet, &tier, &in.Gap, &in.Consequence); err != nil {
			return nil, err
		}
		in.Tick = uint64(tick)
		in.Block = block.String
		in.Tier = tier.String
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(tick,seq,action,x,y,z,block,amount,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertIncident, _ := s.db.Prepare(`INSERT OR REPLACE INTO overvoltage(tick,seq,x,y,z,block,packet,tier,gap,consequence) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,grid_id,chunks,blocks,generators,consumers,batteries,transformers,faults) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertIncident, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastTick uint64
		seq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.written.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			if e.Tick != lastTick {
				lastTick = e.Tick
				seq = 0
			}
			n := seq
			seq++
			raw, _ := json.Marshal(e)
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					int64(e.Tick), n, e.Action,
					e.Pos[0], e.Pos[1], e.Pos[2],
					e.Block, e.Amount, e.Reason, string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if e.Action == event.ActionOvervoltage && insertIncident != nil {
				if _, err := tx.Stmt(insertIncident).Exec(
					int64(e.Tick), n,
					e.Pos[0], e.Pos[1], e.Pos[2],
					e.Block, e.Packet, e.Tier, e.Gap, e.Consequence,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick), sn.Path, sn.GridID,
					sn.Chunks, sn.Blocks, sn.Generators,
					sn.Consumers, sn.Batteries, sn.Transformers, sn.Faults,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
