package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/fip/internal/pipeline"
	"github.com/wonny/fip/pkg/logger"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler streams pipeline progress events over websocket.
type WSHandler struct {
	events   *pipeline.Broadcaster
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(events *pipeline.Broadcaster, log *logger.Logger) *WSHandler {
	return &WSHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Stream upgrades the connection and forwards pipeline events until the
// client disconnects.
// GET /ws/pipeline
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.events.Subscribe()
	defer cancel()

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
