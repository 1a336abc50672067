package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(42))
	in := SnapshotV1{
		Header:    Header{Version: Version, GridID: "g1", Tick: 42},
		TickRate:  20,
		ChunkSize: 16,
		Palette:   []string{"AIR", "COPPER_CABLE", "MV_TRANSFORMER"},
		Chunks:    []ChunkKeyV1{{CX: 0, CY: 0, CZ: 0}},
		Blocks:    []BlockV1{{Pos: [3]int{1, 2, 3}, Block: 2}},
		Transformers: []TransformerV1{
			{Pos: [3]int{1, 2, 3}, HighFace: "UP", StoredEnergy: 96, StepDownMode: false},
		},
		Faults:        []FaultV1{{Pos: [3]int{4, 4, 4}, Remaining: 7}},
		PendingChecks: []CheckV1{{Pos: [3]int{1, 2, 3}, DueTick: 43}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Tick != 42 || h.GridID != "g1" {
		t.Fatalf("header=%+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Transformers) != 1 || out.Transformers[0].StoredEnergy != 96 || out.Transformers[0].StepDownMode {
		t.Fatalf("transformers=%+v", out.Transformers)
	}
	if len(out.PendingChecks) != 1 || out.PendingChecks[0].DueTick != 43 {
		t.Fatalf("checks=%+v", out.PendingChecks)
	}
	if out.Faults[0].Remaining != 7 || out.Blocks[0].Block != 2 {
		t.Fatalf("faults=%+v blocks=%+v", out.Faults, out.Blocks)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v9.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 9}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
