package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/energy/event"
)

func TestSQLiteIndex_EventsAndIncidents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.Record(event.Entry{Tick: 3, Action: event.ActionPlace, Pos: [3]int{1, 0, 0}, Block: "CABLE_COPPER"})
	idx.Record(event.Entry{Tick: 4, Action: event.ActionTransfer, Pos: [3]int{0, 0, 0}, Amount: 32})
	idx.Record(event.Entry{Tick: 4, Action: event.ActionOvervoltage, Pos: [3]int{2, 0, 0}, Gap: 2, Consequence: "MALFUNCTION"})
	idx.Record(event.Entry{Tick: 9, Action: event.ActionOvervoltage, Pos: [3]int{5, 0, 0}, Gap: 3, Consequence: "DESTROY"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("events=%d want=4", n)
	}
	var seq int
	if err := db.QueryRow(`SELECT seq FROM events WHERE tick=4 AND action='OVERVOLTAGE'`).Scan(&seq); err != nil {
		t.Fatalf("seq: %v", err)
	}
	if seq != 1 {
		t.Fatalf("seq=%d want=1", seq)
	}

	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()
	got, err := idx2.Incidents(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("Incidents: %v", err)
	}
	if len(got) != 1 || got[0].Pos != [3]int{5, 0, 0} || got[0].Consequence != "DESTROY" || got[0].Gap != 3 {
		t.Fatalf("incidents=%+v", got)
	}
}

func TestSQLiteIndex_LatestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for _, tick := range []uint64{100, 300, 200} {
		idx.RecordSnapshot("/data/snapshots/"+snapshot.FileName(tick), snapshot.SnapshotV1{
			Header: snapshot.Header{Version: snapshot.Version, GridID: "g", Tick: tick},
		})
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()
	p, tick, ok, err := idx2.LatestSnapshot(context.Background())
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot ok=%v err=%v", ok, err)
	}
	if tick != 300 || p != "/data/snapshots/"+snapshot.FileName(300) {
		t.Fatalf("latest=%s@%d", p, tick)
	}
}

func TestSQLiteIndex_EmptyLatest(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	if _, _, ok, err := idx.LatestSnapshot(context.Background()); ok || err != nil {
		t.Fatalf("ok=%v err=%v want none", ok, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent}

	s.Record(event.Entry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropEventTotal != 1 {
		t.Fatalf("DropEventTotal=%d want=1", st.DropEventTotal)
	}
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
