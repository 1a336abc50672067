package grid

import (
	"fmt"

	"voltcraft.ai/internal/sim/kernel/model"
	"voltcraft.ai/internal/sim/layout"
)

// ApplyLayout loads the layout's chunks and places its blocks in file order.
func (g *Grid) ApplyLayout(l layout.Layout) error {
	for _, c := range l.Chunks {
		g.LoadChunk(ChunkKey{CX: c[0], CY: c[1], CZ: c[2]})
	}
	for i, p := range l.Placements {
		high, err := layout.Face(p.HighFace, model.Down)
		if err != nil {
			return fmt.Errorf("layout placement %d: %w", i, err)
		}
		out, err := layout.Face(p.OutFace, model.Down)
		if err != nil {
			return fmt.Errorf("layout placement %d: %w", i, err)
		}
		opts := Options{HighFace: high, OutFace: out, Fuel: p.Fuel, Input: p.Input, Stored: p.Stored}
		if err := g.Place(p.Block, p.Vec(), opts); err != nil {
			return fmt.Errorf("layout placement %d: %w", i, err)
		}
	}
	return nil
}
