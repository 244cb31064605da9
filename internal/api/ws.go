package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-disaster-response/internal/events"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub bridges event-bus subscriptions onto websocket connections. It
// owns the connection lifecycle; the core never touches transport.
type Hub struct {
	bus *events.Bus
}

func NewHub(bus *events.Bus) *Hub {
	return &Hub{bus: bus}
}

// HandleWS upgrades the request and streams bus events to the client
// until it disconnects or the bus closes.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(id)

	slog.Info("observer connected", "subscriber_id", id, "remote", conn.RemoteAddr())

	// Drain reads so close frames are processed; clients never send
	// meaningful data.
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
		case <-done:
			slog.Info("observer disconnected", "subscriber_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Warn("failed to deliver event, dropping observer", "subscriber_id", id, "error", err)
				return
			}
		}
	}
}
