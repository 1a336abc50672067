package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voltcraft.ai/internal/persistence/indexdb"
	"voltcraft.ai/internal/persistence/snapshot"
	"voltcraft.ai/internal/sim/catalogs"
	"voltcraft.ai/internal/sim/energy/event"
	"voltcraft.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	event.Recorder
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	LatestSnapshot(ctx context.Context) (string, uint64, bool, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(gridDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(gridDir, "index", "grid.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported VC_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
