package main

import (
	"testing"

	"voltcraft.ai/internal/sim/energy/event"
)

func TestSummaryWindow(t *testing.T) {
	s := newSummary(5, 10)
	entries := []event.Entry{
		{Tick: 4, Action: event.ActionTransfer, Amount: 99},
		{Tick: 5, Action: event.ActionTransfer, Amount: 32},
		{Tick: 6, Action: event.ActionTransfer, Amount: 4},
		{Tick: 7, Action: event.ActionOvervoltage, Pos: [3]int{1, 0, 0}, Gap: 2, Consequence: "MALFUNCTION"},
		{Tick: 11, Action: event.ActionExplode},
	}
	for _, e := range entries {
		if err := s.add(e); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if s.seen != 3 || s.first != 5 || s.last != 7 {
		t.Fatalf("seen=%d first=%d last=%d", s.seen, s.first, s.last)
	}
	if s.delivered != 36 {
		t.Fatalf("delivered=%d want=36", s.delivered)
	}
	if s.actions[event.ActionTransfer] != 2 || s.actions[event.ActionExplode] != 0 {
		t.Fatalf("actions=%v", s.actions)
	}
	if len(s.incidents) != 1 || s.incidents[0].Gap != 2 {
		t.Fatalf("incidents=%+v", s.incidents)
	}
}
