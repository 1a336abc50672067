package model

import (
	"fmt"
	"sort"
)

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Rel returns the position one step from v in direction d.
func (v Vec3i) Rel(d Dir) Vec3i { return v.Add(d.Offset()) }

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

func Less(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}


// SortedPositions returns the keys of m in ascending X, Y, Z order.
func SortedPositions[T any](m map[Vec3i]T) []Vec3i {
	if len(m) == 0 {
		return nil
	}
	out := make([]Vec3i, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
