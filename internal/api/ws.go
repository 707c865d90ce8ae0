package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// pushInterval is the status push cadence on the websocket.
const pushInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same-host UI only; the server binds to localhost by default.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler pushes status snapshots to connected clients at 1 Hz.
type WSHandler struct {
	status *StatusHandler
	ctx    context.Context
}

// NewWSHandler creates a websocket handler. Connections close when ctx
// is cancelled.
func NewWSHandler(ctx context.Context, status *StatusHandler) *WSHandler {
	return &WSHandler{status: status, ctx: ctx}
}

// Handle handles GET /ws.
func (h *WSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Debug("Websocket client connected", "remote", conn.RemoteAddr())

	// Reader goroutine: drain control frames and detect disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
			return
		case <-done:
			slog.Debug("Websocket client disconnected", "remote", conn.RemoteAddr())
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(h.status.snapshot()); err != nil {
				slog.Debug("Websocket push failed", "error", err)
				return
			}
		}
	}
}
