package model

import (
	"fmt"
	"strings"
)

// Dir is one of the six axis-aligned faces of a block.
type Dir uint8

const (
	Down Dir = iota
	Up
	North
	South
	West
	East
)

const NumDirs = 6

// AllDirs is the fixed expansion order used everywhere a deterministic walk is needed.
var AllDirs = [NumDirs]Dir{Down, Up, North, South, West, East}

var dirOffsets = [NumDirs]Vec3i{
	Down:  {X: 0, Y: -1, Z: 0},
	Up:    {X: 0, Y: 1, Z: 0},
	North: {X: 0, Y: 0, Z: -1},
	South: {X: 0, Y: 0, Z: 1},
	West:  {X: -1, Y: 0, Z: 0},
	East:  {X: 1, Y: 0, Z: 0},
}

var dirNames = [NumDirs]string{"DOWN", "UP", "NORTH", "SOUTH", "WEST", "EAST"}

func (d Dir) Valid() bool { return d < NumDirs }

func (d Dir) Offset() Vec3i {
	if !d.Valid() {
		return Vec3i{}
	}
	return dirOffsets[d]
}

func (d Dir) Opposite() Dir {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

func (d Dir) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
	return dirNames[d]
}

func ParseDir(s string) (Dir, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range dirNames {
		if n == s {
			return Dir(i), true
		}
	}
	return 0, false
}

// Others returns every face except d, in AllDirs order.
func (d Dir) Others() []Dir {
	out := make([]Dir, 0, NumDirs-1)
	for _, o := range AllDirs {
		if o != d {
			out = append(out, o)
		}
	}
	return out
}

// DirTo returns the face of a that touches b when the two are adjacent.
func DirTo(a, b Vec3i) (Dir, bool) {
	delta := Vec3i{X: b.X - a.X, Y: b.Y - a.Y, Z: b.Z - a.Z}
	for _, d := range AllDirs {
		if dirOffsets[d] == delta {
			return d, true
		}
	}
	return 0, false
}
