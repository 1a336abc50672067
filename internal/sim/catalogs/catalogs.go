package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"voltcraft.ai/internal/sim/energy/tier"
)

// Block roles.
const (
	RoleNone        = ""
	RoleCable       = "CABLE"
	RoleGenerator   = "GENERATOR"
	RoleConsumer    = "CONSUMER"
	RoleBattery     = "BATTERY"
	RoleTransformer = "TRANSFORMER"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`

	Tier     tier.Tier `json:"tier,omitempty"`
	HighTier tier.Tier `json:"high_tier,omitempty"` // transformers only

	Rate     int `json:"rate,omitempty"`
	Output   int `json:"output,omitempty"`
	Capacity int `json:"capacity,omitempty"`
	OpCost   int `json:"op_cost,omitempty"`
	OpTicks  int `json:"op_ticks,omitempty"`

	// Core marks producer/consumer kinds that cables connect to even
	// without tags.
	Core bool     `json:"core,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

func (d BlockDef) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsEntity reports whether placing this block creates a block entity.
func (d BlockDef) IsEntity() bool {
	switch d.Role {
	case RoleGenerator, RoleConsumer, RoleBattery, RoleTransformer:
		return true
	}
	return false
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

// CoreBlocks lists the ids flagged core, for cable.Policy.
func (c *BlockCatalog) CoreBlocks() map[string]bool {
	out := map[string]bool{}
	for id, d := range c.Defs {
		if d.Core {
			out[id] = true
		}
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return ParseBlocks(raw, out)
}

// ParseBlocks builds a catalog from blocks.json bytes.
func ParseBlocks(raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		if err := validateDef(d); err != nil {
			return fmt.Errorf("blocks.json: %s: %w", d.ID, err)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func validateDef(d BlockDef) error {
	switch d.Role {
	case RoleNone, RoleCable, RoleBattery:
	case RoleGenerator:
		if d.Output <= 0 {
			return fmt.Errorf("generator needs output > 0")
		}
	case RoleConsumer:
		if d.Rate < 0 || d.OpCost < 0 || d.OpTicks < 0 {
			return fmt.Errorf("negative consumer field")
		}
	case RoleTransformer:
		if d.HighTier <= d.Tier {
			return fmt.Errorf("high_tier %s must be above tier %s", d.HighTier, d.Tier)
		}
	default:
		return fmt.Errorf("unknown role %q", d.Role)
	}
	if d.Capacity < 0 {
		return fmt.Errorf("negative capacity")
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
