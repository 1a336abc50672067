package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	persistlog "voltcraft.ai/internal/persistence/log"
	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/energy/event"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst")
		dataDir  = flag.String("data", "", "grid data dir containing events/events-*.jsonl.zst (optional)")
		fromTick = flag.Uint64("from_tick", 0, "ignore events before tick (optional)")
		toTick   = flag.Uint64("to_tick", 0, "ignore events after tick (optional)")
	)
	flag.Parse()

	if *snapPath == "" && *dataDir == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot or -data")
		os.Exit(2)
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		printSnapshot(snap)
	}

	if *dataDir == "" {
		return
	}
	files, err := persistlog.EventFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *dataDir)
		os.Exit(1)
	}

	sum := newSummary(*fromTick, *toTick)
	for _, path := range files {
		if err := persistlog.ReadEvents(path, sum.add); err != nil {
			fmt.Fprintln(os.Stderr, "events:", err)
			os.Exit(1)
		}
	}
	sum.print()
}

func printSnapshot(snap snapshot.SnapshotV1) {
	fmt.Printf("snapshot v%d grid=%s tick=%d rate=%dHz chunks=%d blocks=%d generators=%d consumers=%d batteries=%d transformers=%d faults=%d pending_checks=%d\n",
		snap.Header.Version, snap.Header.GridID, snap.Header.Tick, snap.TickRate,
		len(snap.Chunks), len(snap.Blocks), len(snap.Generators), len(snap.Consumers),
		len(snap.Batteries), len(snap.Transformers), len(snap.Faults), len(snap.PendingChecks))

	stored := 0
	for _, g := range snap.Generators {
		stored += g.StoredEnergy
	}
	for _, c := range snap.Consumers {
		stored += c.StoredEnergy
	}
	for _, b := range snap.Batteries {
		stored += b.StoredEnergy
	}
	for _, t := range snap.Transformers {
		stored += t.StoredEnergy
	}
	fmt.Printf("stored energy: %d EU\n", stored)
	for _, f := range snap.Faults {
		fmt.Printf("  malfunction at %v: %d ticks left\n", f.Pos, f.Remaining)
	}
}

type summary struct {
	from, to  uint64
	first     uint64
	last      uint64
	seen      int
	actions   map[string]int
	delivered int
	incidents []event.Entry
}

func newSummary(from, to uint64) *summary {
	return &summary{from: from, to: to, actions: map[string]int{}}
}

func (s *summary) add(e event.Entry) error {
	if e.Tick < s.from || (s.to != 0 && e.Tick > s.to) {
		return nil
	}
	if s.seen == 0 || e.Tick < s.first {
		s.first = e.Tick
	}
	if e.Tick > s.last {
		s.last = e.Tick
	}
	s.seen++
	s.actions[e.Action]++
	switch e.Action {
	case event.ActionTransfer:
		s.delivered += e.Amount
	case event.ActionOvervoltage:
		s.incidents = append(s.incidents, e)
	}
	return nil
}

func (s *summary) print() {
	fmt.Printf("events=%d ticks=%d..%d delivered=%d EU\n", s.seen, s.first, s.last, s.delivered)
	names := make([]string, 0, len(s.actions))
	for a := range s.actions {
		names = append(names, a)
	}
	sort.Strings(names)
	for _, a := range names {
		fmt.Printf("  %-16s %d\n", a, s.actions[a])
	}
	if len(s.incidents) == 0 {
		return
	}
	fmt.Printf("overvoltage incidents:\n")
	for _, e := range s.incidents {
		fmt.Printf("  tick=%d pos=%v gap=%d %s\n", e.Tick, e.Pos, e.Gap, e.Consequence)
	}
}
