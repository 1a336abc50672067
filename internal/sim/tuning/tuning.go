package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voltcraft.ai/internal/sim/energy/network"
	"voltcraft.ai/internal/sim/energy/overvoltage"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz               int `yaml:"tick_rate_hz"`
	ChunkSize                int `yaml:"chunk_size"`
	SnapshotEveryTicks       int `yaml:"snapshot_every_ticks"`
	TelemetryEveryTicks      int `yaml:"telemetry_every_ticks"`
	PlacementCheckDelayTicks int `yaml:"placement_check_delay_ticks"`

	Network     Network     `yaml:"network"`
	Overvoltage Overvoltage `yaml:"overvoltage"`
}

type Network struct {
	MaxVisited int `yaml:"max_visited"`
}

type Overvoltage struct {
	WarnGap          int `yaml:"warn_gap"`
	MalfunctionGap   int `yaml:"malfunction_gap"`
	DestroyGap       int `yaml:"destroy_gap"`
	MalfunctionTicks int `yaml:"malfunction_ticks"`
}

func Defaults() Tuning {
	ov := overvoltage.DefaultTable()
	return Tuning{
		ProtocolVersion:          "1.0",
		TickRateHz:               20,
		ChunkSize:                16,
		SnapshotEveryTicks:       6000,
		TelemetryEveryTicks:      1,
		PlacementCheckDelayTicks: 1,
		Network:                  Network{MaxVisited: network.DefaultMaxVisited},
		Overvoltage: Overvoltage{
			WarnGap:          ov.WarnGap,
			MalfunctionGap:   ov.MalfunctionGap,
			DestroyGap:       ov.DestroyGap,
			MalfunctionTicks: ov.MalfunctionTicks,
		},
	}
}

// Load reads path over Defaults, so omitted keys keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be > 0")
	}
	if t.SnapshotEveryTicks < 0 || t.TelemetryEveryTicks < 0 {
		return fmt.Errorf("cadences must be >= 0")
	}
	if t.PlacementCheckDelayTicks < 1 {
		return fmt.Errorf("placement_check_delay_ticks must be >= 1")
	}
	if t.Network.MaxVisited <= 0 {
		return fmt.Errorf("network.max_visited must be > 0")
	}
	if err := t.OvervoltageTable().Validate(); err != nil {
		return fmt.Errorf("overvoltage: %w", err)
	}
	return nil
}

func (t Tuning) OvervoltageTable() overvoltage.Table {
	return overvoltage.Table{
		WarnGap:          t.Overvoltage.WarnGap,
		MalfunctionGap:   t.Overvoltage.MalfunctionGap,
		DestroyGap:       t.Overvoltage.DestroyGap,
		MalfunctionTicks: t.Overvoltage.MalfunctionTicks,
	}
}
