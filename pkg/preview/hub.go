package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientQueueSize bounds the per-client send queue. A client that falls this
// far behind is dropped rather than allowed to stall the broadcaster.
const clientQueueSize = 16

// Hub broadcasts preview updates to connected WebSocket clients. It is an
// http.Handler; mount it on the route editors connect to.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger replaces the hub logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub builds an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*hubClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &hubClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("preview client connected", "client", c.id, "clients", n)
	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast marshals v once and queues it to every client. Clients whose
// queues are full are dropped.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("broadcast marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c, "send queue full")
		}
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every client and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c, "hub closed")
	}
}

// removeLocked unregisters a client and closes its send queue. Callers hold
// h.mu; the queue is only ever closed here, and every send happens under the
// same mutex, so close cannot race a send.
func (h *Hub) removeLocked(c *hubClient, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug("preview client removed", "client", c.id, "reason", reason, "clients", len(h.clients))
}

// drop unregisters a client from outside the mutex.
func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	h.removeLocked(c, "connection closed")
	h.mu.Unlock()
}

// writePump drains the client's queue onto the connection. It owns the
// connection close; the pump ends when the queue is closed or a write fails.
func (h *Hub) writePump(c *hubClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			for range c.send {
			}
			return
		}
	}
}

// readPump consumes inbound frames until the peer goes away. The hub pushes
// only; reads exist to notice disconnects and answer control frames.
func (h *Hub) readPump(c *hubClient) {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			break
		}
	}
	h.drop(c)
}
