package broadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades incoming requests to a websocket that streams one
// JSON-encoded domain.TournamentStatus per Publish(id), starting with the
// current status if one exists. The wire shape and upgrade/write-deadline
// discipline follow internal/transport/observer/server.go's WSHandler.
type WSHandler struct {
	b        *Broadcaster
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds a WSHandler over b.
func NewWSHandler(b *Broadcaster, logger *log.Logger) *WSHandler {
	return &WSHandler{
		b:   b,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeTournament returns an http.HandlerFunc that streams status updates
// for the tournament named by id.
func (h *WSHandler) ServeTournament(id string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		updates, cancel := h.b.Subscribe(id)
		defer cancel()

		for status := range updates {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			b, err := json.Marshal(status)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}
