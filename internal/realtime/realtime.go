// Package realtime terminates the WebSocket side of spec §4.3: one
// connection per client, fed by a single Group Actor subscription.
package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dilbagh/theunfairwheel/internal/actor"
	"github.com/dilbagh/theunfairwheel/internal/logger"
	"github.com/dilbagh/theunfairwheel/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer; sockets allow all origins
	},
}

// Transport serves /groups/{id}/ws, one connection per client.
type Transport struct {
	log      logger.Logger
	registry *actor.Registry
}

func New(log logger.Logger, registry *actor.Registry) *Transport {
	return &Transport{log: log, registry: registry}
}

// ServeGroup upgrades the request and relays groupID's event stream to the
// socket until either side closes. It looks groupID up itself and answers
// 404 before upgrading when the group does not exist.
func (t *Transport) ServeGroup(w http.ResponseWriter, r *http.Request, groupID string) {
	a, ok := t.registry.Lookup(r.Context(), groupID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sub, err := a.Subscribe(r.Context())
	if err != nil {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Error("websocket upgrade failed", "group_id", groupID, "error", err)
		return
	}

	client := &client{log: t.log, conn: conn, events: sub.Events}
	go client.readPump()
	client.writePump()

	a.Unsubscribe(sub.ID)
}

// client pumps one subscriber's event stream to its socket. There is no
// readPump payload to act on — the protocol is server-to-client only — but
// readPump still runs to detect client-initiated close and to answer pings.
type client struct {
	log    logger.Logger
	conn   *websocket.Conn
	events <-chan models.Event
}

func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump relays c.events in order until the channel closes (actor
// dropped this subscriber per the back-pressure policy) or the socket
// errors. Either way it closes with 1011, per spec §4.3.
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if err := json.NewEncoder(w).Encode(ev); err != nil {
				w.Close()
				return
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
