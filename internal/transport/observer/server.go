package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voltcraft.ai/internal/observerproto"
	"voltcraft.ai/internal/sim/grid"
)

// Server exposes the grid's telemetry stream to local read-only observers
// (debug GUIs, dashboards). It never mutates the grid.
type Server struct {
	grid *grid.Grid
	log  *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(g *grid.Grid, logger *log.Logger) *Server {
	return &Server{
		grid: g,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.grid.Config()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			GridID:          cfg.ID,
			Tick:            s.grid.CurrentTick(),
			GridParams: observerproto.GridParams{
				TickRateHz: cfg.TickRateHz,
				ChunkSize:  cfg.ChunkSize,
				MaxVisited: cfg.MaxVisited,
			},
			BlockPalette:  s.grid.BlockPalette(),
			PaletteDigest: s.grid.PaletteDigest(),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 8)

		joinReq := grid.ObserverJoinRequest{
			SessionID:  sid,
			Out:        out,
			EveryTicks: sub.EveryTicks,
			WithEvents: sub.WithEvents,
		}
		select {
		case s.grid.ObserverJoin() <- joinReq:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		if s.log != nil {
			s.log.Printf("observer %s joined from %s every=%d", sid, r.RemoteAddr, sub.EveryTicks)
		}
		defer func() {
			select {
			case s.grid.ObserverLeave() <- sid:
			default:
				// Grid loop is stopping; nothing else to do.
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-out:
					if !ok {
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case s.grid.ObserverSubscribe() <- grid.ObserverSubscribeRequest{
				SessionID:  sid,
				EveryTicks: sub.EveryTicks,
				WithEvents: sub.WithEvents,
			}:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(b []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = 1
	}
	if sub.EveryTicks > 1200 {
		sub.EveryTicks = 1200
	}
	return sub, true
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
