package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "voltcraft.ai/internal/persistence/log"
	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/grid"
	"voltcraft.ai/internal/sim/layout"
	"voltcraft.ai/internal/sim/tuning"
	"voltcraft.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gridID     = flag.String("grid", "grid_1", "grid id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "starter layout for a fresh grid (default: <configs>/layout.yaml if present)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite event/snapshot index")
		telemetry  = flag.Bool("log_telemetry", false, "write telemetry frames to <data>/grids/<id>/telemetry")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	gridDir := filepath.Join(*dataDir, "grids", *gridID)
	_ = os.MkdirAll(gridDir, 0o755)

	idx, err := openRuntimeIndex(gridDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	eventLog := persistlog.NewEventLogger(gridDir)
	defer eventLog.Close()

	recorders := event.Multi{eventLog, incidentLogger(logger)}
	if idx != nil {
		recorders = append(recorders, idx)
	}

	g, err := grid.New(grid.ConfigFromTuning(*gridID, tune), cats, recorders, logger)
	if err != nil {
		logger.Fatalf("grid: %v", err)
	}
	if *telemetry {
		tl := persistlog.NewTelemetryLogger(gridDir)
		defer tl.Close()
		g.SetTelemetryLogger(tl)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(gridDir, idx)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.GridID != "" && snap.Header.GridID != *gridID {
			logger.Fatalf("snapshot grid id mismatch: flag=%s snap=%s", *gridID, snap.Header.GridID)
		}
		if err := g.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), g.CurrentTick())
	} else if lp := starterLayout(*layoutPath, *configDir); lp != "" {
		l, err := layout.Load(lp)
		if err != nil {
			logger.Fatalf("load layout: %v", err)
		}
		if err := g.ApplyLayout(l); err != nil {
			logger.Fatalf("apply layout: %v", err)
		}
		logger.Printf("fresh grid from layout=%s placements=%d", filepath.Base(lp), len(l.Placements))
	}

	ctx, cancel := signalContext()
	defer cancel()

	snapCh := make(chan snapshot.SnapshotV1, 2)
	g.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(gridDir, "snapshots", snapshot.FileName(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := g.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("grid stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(g, idx, eventLog))

	obsSrv := observer.NewServer(g, logger)
	mux.HandleFunc("/v1/telemetry/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/telemetry/ws", obsSrv.WSHandler())

	if envBool("VC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				GridID  string `json:"grid_id"`
				Tick    uint64 `json:"tick"`
				Network any    `json:"network"`
			}{
				GridID:  *gridID,
				Tick:    g.CurrentTick(),
				Network: g.Network().Stats(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			tick, err := g.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
		})
	} else {
		logger.Printf("admin endpoints disabled (VC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// incidentLogger surfaces the events an operator should see in the process
// log; everything else only goes to the event log and index.
func incidentLogger(logger *log.Logger) event.Recorder {
	return event.RecorderFunc(func(e event.Entry) {
		switch e.Action {
		case event.ActionOvervoltage:
			logger.Printf("tick=%d overvoltage at %v gap=%d -> %s", e.Tick, e.Pos, e.Gap, e.Consequence)
		case event.ActionExplode:
			logger.Printf("tick=%d %s at %v exploded", e.Tick, e.Block, e.Pos)
		case event.ActionOverflow:
			logger.Printf("tick=%d network walk from %v %s hit the visit cap", e.Tick, e.Pos, e.Face)
		}
	})
}

func starterLayout(flagPath, configDir string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	p := filepath.Join(configDir, "layout.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot prefers the index and falls back to scanning the
// snapshots dir, so a deleted or disabled index never blocks a resume.
func latestSnapshot(gridDir string, idx runtimeIndex) string {
	if idx != nil {
		if p, _, ok, err := idx.LatestSnapshot(context.Background()); err == nil && ok {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	dir := filepath.Join(gridDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
