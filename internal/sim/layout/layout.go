// Package layout reads the starter world placements from layout.yaml.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voltcraft.ai/internal/sim/kernel/model"
)

type Layout struct {
	Chunks     [][3]int    `yaml:"chunks"`
	Placements []Placement `yaml:"placements"`
}

type Placement struct {
	Block    string `yaml:"block"`
	Pos      [3]int `yaml:"pos"`
	HighFace string `yaml:"high_face,omitempty"` // transformers
	OutFace  string `yaml:"out_face,omitempty"`  // batteries
	Fuel     int    `yaml:"fuel,omitempty"`
	Input    int    `yaml:"input,omitempty"`
	Stored   int    `yaml:"stored,omitempty"`
}

func (p Placement) Vec() model.Vec3i { return model.FromArray(p.Pos) }

// Face parses s, defaulting to def when empty.
func Face(s string, def model.Dir) (model.Dir, error) {
	if s == "" {
		return def, nil
	}
	d, ok := model.ParseDir(s)
	if !ok {
		return def, fmt.Errorf("unknown face %q", s)
	}
	return d, nil
}

func Load(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	seen := map[[3]int]bool{}
	for i, p := range l.Placements {
		if p.Block == "" {
			return l, fmt.Errorf("layout.yaml: placement %d: missing block", i)
		}
		if seen[p.Pos] {
			return l, fmt.Errorf("layout.yaml: placement %d: duplicate pos %v", i, p.Pos)
		}
		seen[p.Pos] = true
		if _, err := Face(p.HighFace, model.Up); err != nil {
			return l, fmt.Errorf("layout.yaml: placement %d: %w", i, err)
		}
		if _, err := Face(p.OutFace, model.Up); err != nil {
			return l, fmt.Errorf("layout.yaml: placement %d: %w", i, err)
		}
	}
	return l, nil
}
