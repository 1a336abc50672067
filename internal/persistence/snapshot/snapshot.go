package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GridID  string `json:"grid_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate  int `json:"tick_rate_hz"`
	ChunkSize int `json:"chunk_size"`

	// Palette is the block palette the Blocks ids index into.
	Palette       []string `json:"palette"`
	PaletteDigest string   `json:"palette_digest"`

	Chunks []ChunkKeyV1 `json:"chunks"`
	Blocks []BlockV1    `json:"blocks"`

	Generators   []GeneratorV1   `json:"generators,omitempty"`
	Consumers    []ConsumerV1    `json:"consumers,omitempty"`
	Batteries    []BatteryV1     `json:"batteries,omitempty"`
	Transformers []TransformerV1 `json:"transformers,omitempty"`

	Faults        []FaultV1 `json:"faults,omitempty"`
	PendingChecks []CheckV1 `json:"pending_checks,omitempty"`
}

type ChunkKeyV1 struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
	CZ int `json:"cz"`
}

type BlockV1 struct {
	Pos   [3]int `json:"pos"`
	Block uint16 `json:"block"`
}

type GeneratorV1 struct {
	Pos          [3]int `json:"pos"`
	StoredEnergy int    `json:"stored_energy"`
	Fuel         int    `json:"fuel"`
}

type ConsumerV1 struct {
	Pos          [3]int `json:"pos"`
	StoredEnergy int    `json:"stored_energy"`
	Input        int    `json:"input"`
	Output       int    `json:"output"`
	Progress     int    `json:"progress"`
}

type BatteryV1 struct {
	Pos          [3]int `json:"pos"`
	OutFace      string `json:"out_face"`
	StoredEnergy int    `json:"stored_energy"`
}

type TransformerV1 struct {
	Pos          [3]int `json:"pos"`
	HighFace     string `json:"high_face"`
	StoredEnergy int    `json:"stored_energy"`
	StepDownMode bool   `json:"step_down_mode"`
}

// FaultV1 is a running malfunction timer.
type FaultV1 struct {
	Pos       [3]int `json:"pos"`
	Remaining int    `json:"remaining"`
}

// CheckV1 is a scheduled placement check not yet run.
type CheckV1 struct {
	Pos     [3]int `json:"pos"`
	DueTick uint64 `json:"due_tick"`
}

// FileName is the conventional name for a snapshot taken at tick.
func FileName(tick uint64) string { return fmt.Sprintf("%d.snap.zst", tick) }

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is repeated inside the gob body.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
