package report

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans ProgressEvents out to connected dashboard sockets. It owns
// the client set outright: register, unregister and broadcast all run
// inside Run's single goroutine, so the set itself needs no locking —
// there is exactly one writer and it only fires one message shape.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	progress   chan progressEvent
	logger     *slog.Logger
}

// client is one connected dashboard socket.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a dashboard hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		progress:   make(chan progressEvent, 64),
		logger:     logger.With("component", "dashboard-hub"),
	}
}

// Run drives the hub; it loops forever and never returns, so call it
// in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("dashboard client connected", "count", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Info("dashboard client disconnected", "count", len(h.clients))

		case evt := <-h.progress:
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to marshal progress event", "error", err)
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// BroadcastProgress queues evt for delivery to every connected client,
// dropping it if the hub is falling behind rather than blocking the
// bar-round that produced it.
func (h *Hub) BroadcastProgress(evt progressEvent) {
	select {
	case h.progress <- evt:
	default:
		h.logger.Warn("dashboard falling behind, dropping progress event")
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // the dashboard never sends anything larger than a ping pong
)

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump exists only to service the websocket keepalive protocol:
// the dashboard is output-only, so any actual client message is
// discarded, but without a reader the pong handler never fires and
// the connection dies on its first read deadline.
func (c *client) readPump(hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				hub.logger.Error("dashboard websocket error", "error", err)
			}
			return
		}
	}
}

// connect registers conn as a dashboard client and starts its pumps.
// The returned channel is where the caller should push the client's
// initial snapshot.
func connect(hub *Hub, conn *websocket.Conn) chan<- []byte {
	c := &client{conn: conn, send: make(chan []byte, 8)}
	hub.register <- c

	go c.writePump()
	go c.readPump(hub)

	return c.send
}
