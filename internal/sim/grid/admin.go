package grid

import (
	"context"
	"errors"
)

type snapshotReq struct {
	resp chan snapshotResp
}

type snapshotResp struct {
	tick uint64
	err  error
}

var ErrNoSnapshotSink = errors.New("snapshot sink not configured")

// RequestSnapshot asks the running loop to export a snapshot between ticks
// and offer it to the snapshot sink. It returns the snapshot's tick.
func (g *Grid) RequestSnapshot(ctx context.Context) (uint64, error) {
	resp := make(chan snapshotResp, 1)
	select {
	case g.admin <- snapshotReq{resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.tick, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (g *Grid) handleSnapshotRequest(req snapshotReq) {
	tick := g.tick.Load()
	if g.snapshotSink == nil {
		req.resp <- snapshotResp{tick: tick, err: ErrNoSnapshotSink}
		return
	}
	select {
	case g.snapshotSink <- g.ExportSnapshot():
		req.resp <- snapshotResp{tick: tick}
	default:
		req.resp <- snapshotResp{tick: tick, err: errors.New("snapshot queue full")}
	}
}
