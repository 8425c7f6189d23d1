package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ambient/internal/engine"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to websocket clients
type Message struct {
	Type string       `json:"type"`
	Data engine.State `json:"data"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine state out to connected websocket clients. A client that
// falls behind drops messages rather than stalling the tick.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("ws"),
		clients: make(map[uuid.UUID]*client),
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues state for every client
func (h *Hub) Broadcast(state engine.State) {
	payload, err := json.Marshal(Message{Type: "environment", Data: state})
	if err != nil {
		h.logger.Error("Failed to encode environment update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Websocket client too slow, dropping update", zap.String("client_id", id.String()))
		}
	}
}

// ServeWS upgrades the request and streams updates until the client disconnects.
// initial is sent immediately so clients render without waiting for a tick.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial engine.State) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}

	payload, err := json.Marshal(Message{Type: "environment", Data: initial})
	if err == nil {
		c.send <- payload
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("Websocket client connected",
		zap.String("client_id", c.id.String()),
		zap.String("remote_addr", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards inbound messages and returns once the connection fails
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.logger.Debug("Websocket connection closed",
				zap.String("client_id", c.id.String()),
				zap.Error(err))
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("Websocket write failed",
				zap.String("client_id", c.id.String()),
				zap.Error(err))
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	h.logger.Info("Websocket client disconnected", zap.String("client_id", c.id.String()))
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
