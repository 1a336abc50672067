package model

import "testing"

func TestDirOppositeRoundTrip(t *testing.T) {
	for _, d := range AllDirs {
		if d.Opposite().Opposite() != d {
			t.Fatalf("%s: opposite of opposite=%s", d, d.Opposite().Opposite())
		}
		p := Vec3i{X: 3, Y: -2, Z: 7}
		if p.Rel(d).Rel(d.Opposite()) != p {
			t.Fatalf("%s: Rel round trip moved position", d)
		}
		got, ok := DirTo(p, p.Rel(d))
		if !ok || got != d {
			t.Fatalf("DirTo=%s,%v want=%s", got, ok, d)
		}
	}
}

func TestDirOthers(t *testing.T) {
	others := Up.Others()
	if len(others) != 5 {
		t.Fatalf("len=%d want=5", len(others))
	}
	for _, d := range others {
		if d == Up {
			t.Fatalf("Others contains self")
		}
	}
}

func TestParseDir(t *testing.T) {
	d, ok := ParseDir(" east ")
	if !ok || d != East {
		t.Fatalf("ParseDir=%s,%v", d, ok)
	}
	if _, ok := ParseDir("sideways"); ok {
		t.Fatalf("expected failure")
	}
}

func TestSortedPositions(t *testing.T) {
	got := SortedPositions(map[Vec3i]bool{
		{X: 1, Y: 0, Z: 0}: true,
		{X: 0, Y: 5, Z: 0}: true,
		{X: 0, Y: 0, Z: 9}: true,
	})
	want := []Vec3i{{X: 0, Y: 0, Z: 9}, {X: 0, Y: 5, Z: 0}, {X: 1, Y: 0, Z: 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedPositions=%v want=%v", got, want)
		}
	}
}
