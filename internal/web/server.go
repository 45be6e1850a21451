// Package web exposes the tracker over HTTP: a JSON status endpoint
// and a websocket that pushes a position frame per report cycle.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Status is the /api/status response.
type Status struct {
	Callsign     string        `json:"callsign"`
	Backend      string        `json:"backend"`
	APRSState    string        `json:"aprs_state"`
	Fix          PositionFrame `json:"fix"`
	LastError    string        `json:"last_error,omitempty"`
	CyclesTotal  int64         `json:"cycles_total"`
	LastCycleUTC string        `json:"last_cycle_utc,omitempty"`
}

// StatusFunc supplies the current status snapshot.
type StatusFunc func() Status

func Handler(status StatusFunc, positions *PositionBroadcaster) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		b, err := json.MarshalIndent(status(), "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/ws", wsHandler(positions))

	return mux
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Positions are not sensitive and the UI may be served from
	// another host on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsHandler(positions *PositionBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, frames := positions.Subscribe(4)
		defer positions.Unsubscribe(id)

		// Drain the client side; its close error ends the session.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					positions.Unsubscribe(id)
					return
				}
			}
		}()

		for frame := range frames {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// Serve runs the HTTP server until the context is canceled.
func Serve(ctx context.Context, listenAddr string, status StatusFunc, positions *PositionBroadcaster) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, positions),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("web: listening on %s", listenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
