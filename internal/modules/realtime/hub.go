package realtime

import (
	"context"
	"sync"
	"time"

	"gearrent/internal/events"
	"gearrent/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// sendQueueSize bounds the events buffered for one subscriber before
	// it is treated as stalled and dropped.
	sendQueueSize = 64
)

type client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan any
	mu     sync.Mutex // gorilla allows one concurrent writer
	once   sync.Once
}

func newClient(userID int64, conn *websocket.Conn, queue int) *client {
	return &client{id: uuid.NewString(), userID: userID, conn: conn, send: make(chan any, queue)}
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) writePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// close must run with the hub write lock held so no Broadcast is mid-send.
func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Hub tracks websocket subscribers of the rental event feed.
type Hub struct {
	connections map[string]*client
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*client),
	}
}

// Register adds conn and returns its connection id.
func (h *Hub) Register(userID int64, conn *websocket.Conn) string {
	cl := newClient(userID, conn, sendQueueSize)
	h.add(cl)
	go h.writePump(cl)
	return cl.id
}

func (h *Hub) add(cl *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.connections[cl.id] = cl
}

// writePump drains cl.send until the client is unregistered.
func (h *Hub) writePump(cl *client) {
	for msg := range cl.send {
		if err := cl.writeJSON(msg); err != nil {
			logger.Debug("websocket write failed", "conn_id", cl.id, "user_id", cl.userID, "error", err)
			h.Unregister(cl.id)
			return
		}
	}
}

func (h *Hub) Unregister(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if cl, exists := h.connections[id]; exists {
		cl.close()
		delete(h.connections, id)
	}
}

func (h *Hub) get(id string) *client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connections[id]
}

// Broadcast queues message for every subscriber without waiting on the
// network. Subscribers whose queue is full are dropped. Returns how many
// accepted it.
func (h *Hub) Broadcast(message any) int {
	var stalled []*client
	queued := 0

	h.mutex.RLock()
	for _, cl := range h.connections {
		select {
		case cl.send <- message:
			queued++
		default:
			stalled = append(stalled, cl)
		}
	}
	h.mutex.RUnlock()

	for _, cl := range stalled {
		logger.Warn("websocket subscriber stalled, dropping", "conn_id", cl.id, "user_id", cl.userID)
		h.Unregister(cl.id)
	}
	return queued
}

// Publish makes the hub an events.Publisher.
func (h *Hub) Publish(_ context.Context, ev events.RentalEvent) error {
	h.Broadcast(ev)
	return nil
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, cl := range h.connections {
		cl.close()
		delete(h.connections, id)
	}
}
