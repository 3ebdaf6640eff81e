package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"joltcab/internal/events"
	"joltcab/internal/repository"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// EventStreamHandler serves the per-trip websocket event stream.
type EventStreamHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewEventStreamHandler creates a new EventStreamHandler.
func NewEventStreamHandler(bus *events.Bus) *EventStreamHandler {
	return &EventStreamHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /v1/trips/:id/events. Delivery is at most once per
// connection; after a reconnect the client pulls GET /v1/trips/:id to
// resynchronize and uses sequence numbers to detect gaps.
func (h *EventStreamHandler) Stream(c *gin.Context) {
	tripID := c.Param("id")
	if tripID == "" {
		respondError(c, repository.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe(tripID)
	defer h.bus.Unsubscribe(sub)

	// Reader pump: we never expect client frames, but reading drives
	// close/ping-pong handling and tells us when the peer went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				// Trip reached a terminal status; stream is over.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "trip closed"),
					time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("event stream write failed for trip %s: %v", tripID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
