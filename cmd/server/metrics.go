package main

import (
	"fmt"
	"net/http"

	persistlog "voltcraft.ai/internal/persistence/log"
	"voltcraft.ai/internal/sim/grid"
)

func metricsHandler(g *grid.Grid, idx runtimeIndex, events *persistlog.EventLogger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := g.Config().ID

		fmt.Fprintf(rw, "# HELP voltcraft_grid_tick Current grid tick.\n")
		fmt.Fprintf(rw, "# TYPE voltcraft_grid_tick gauge\n")
		fmt.Fprintf(rw, "voltcraft_grid_tick{grid=%q} %d\n", id, g.CurrentTick())

		st := g.Network().Stats()
		fmt.Fprintf(rw, "# HELP voltcraft_network_cache_entries Cached discovery results.\n")
		fmt.Fprintf(rw, "# TYPE voltcraft_network_cache_entries gauge\n")
		fmt.Fprintf(rw, "voltcraft_network_cache_entries{grid=%q} %d\n", id, st.Entries)

		fmt.Fprintf(rw, "# HELP voltcraft_network_cache_total Discovery cache lookups and invalidations.\n")
		fmt.Fprintf(rw, "# TYPE voltcraft_network_cache_total counter\n")
		fmt.Fprintf(rw, "voltcraft_network_cache_total{grid=%q,kind=%q} %d\n", id, "hit", st.Hits)
		fmt.Fprintf(rw, "voltcraft_network_cache_total{grid=%q,kind=%q} %d\n", id, "miss", st.Misses)
		fmt.Fprintf(rw, "voltcraft_network_cache_total{grid=%q,kind=%q} %d\n", id, "invalidation", st.Invalidations)
		fmt.Fprintf(rw, "voltcraft_network_cache_total{grid=%q,kind=%q} %d\n", id, "overflow", st.Overflows)

		if events != nil {
			fmt.Fprintf(rw, "# HELP voltcraft_event_log_failed_total Event log writes that failed.\n")
			fmt.Fprintf(rw, "# TYPE voltcraft_event_log_failed_total counter\n")
			fmt.Fprintf(rw, "voltcraft_event_log_failed_total{grid=%q} %d\n", id, events.Failed())
		}

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP voltcraft_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE voltcraft_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "voltcraft_index_queue_depth{grid=%q} %d\n", id, s.QueueDepth)

			fmt.Fprintf(rw, "# HELP voltcraft_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE voltcraft_index_dropped_total counter\n")
			fmt.Fprintf(rw, "voltcraft_index_dropped_total{grid=%q,kind=%q} %d\n", id, "event", s.DropEventTotal)
			fmt.Fprintf(rw, "voltcraft_index_dropped_total{grid=%q,kind=%q} %d\n", id, "snapshot", s.DropSnapshotTotal)
		}
	}
}
