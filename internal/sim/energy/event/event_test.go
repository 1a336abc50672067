package event

import "testing"

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	m := Multi{nil, RecorderFunc(func(e Entry) { got = append(got, e.Action) }), Discard}
	m.Record(Entry{Action: ActionTransfer})
	if len(got) != 1 || got[0] != ActionTransfer {
		t.Fatalf("got=%v", got)
	}
}

func TestRingDropsOldest(t *testing.T) {
	r := NewRing(2)
	r.Record(Entry{Tick: 1})
	r.Record(Entry{Tick: 2})
	r.Record(Entry{Tick: 3})
	got := r.Drain()
	if len(got) != 2 || got[0].Tick != 2 || got[1].Tick != 3 {
		t.Fatalf("Drain=%+v", got)
	}
	if r.Dropped() != 1 {
		t.Fatalf("Dropped=%d want=1", r.Dropped())
	}
	if len(r.Drain()) != 0 {
		t.Fatalf("ring not emptied")
	}
}
