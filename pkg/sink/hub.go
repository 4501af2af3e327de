package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/itohio/goscale/pkg/scale"
)

// Message is the envelope sent to WebSocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessageWeight carries a scale.Result.
const MessageWeight = "weight"

// writeTimeout bounds a single write to a client.
const writeTimeout = time.Second

// upgrader accepts every origin; the hub serves a local dashboard.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub broadcasts results to connected WebSocket clients and accepts
// tare and calibrate commands from them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	ctl     Controller
	log     *slog.Logger
	timeout time.Duration
}

// NewHub creates an empty hub. ctl may be nil, in which case commands are
// rejected.
func NewHub(ctl Controller, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		ctl:     ctl,
		log:     logger.With("component", "websocket"),
		timeout: writeTimeout,
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "err", err)
		return
	}

	c := h.add(conn)
	defer h.remove(c)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := c.write(h.command(payload)); err != nil {
			return
		}
	}
}

func (h *Hub) command(payload []byte) []byte {
	if h.ctl == nil {
		data, _ := json.Marshal(Reply{Type: "error", Error: "control disabled"})
		return data
	}
	return handleCommand(h.ctl, payload)
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{conn: conn, timeout: h.timeout}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", "remote", conn.RemoteAddr().String(), "clients", n)
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		h.log.Info("client disconnected", "remote", c.conn.RemoteAddr().String())
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. A client whose write fails or times
// out is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal failed", "err", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.log.Debug("write failed", "remote", c.conn.RemoteAddr().String(), "err", err)
			h.remove(c)
		}
	}
}

// Send broadcasts r as a weight message.
func (h *Hub) Send(_ context.Context, r scale.Result) error {
	h.Broadcast(Message{Type: MessageWeight, Data: r})
	return nil
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.conn.Close()
	}
	return nil
}
