package notifyhub

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// sendBuffer is how many notifications may queue for one client before it is dropped.
	sendBuffer = 32
)

// client owns the write side of one connection. Only writeLoop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (cl *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				tool.DefaultLogger.Debugf("[Notify] Write to websocket client failed: %v", err)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub holds WebSocket connections and broadcasts notifications to all clients.
// Implements types.NotifyHub. Broadcast never waits on a client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

// Register adds a WebSocket connection to the hub and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) {
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[conn] = cl
	h.mu.Unlock()
	go cl.writeLoop()
}

// Unregister removes a WebSocket connection from the hub and stops its writer.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues the notification as JSON for every registered connection.
// A client whose queue is full is dropped.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Errorf("[Notify] Failed to encode notification: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
			tool.DefaultLogger.Warnf("[Notify] Dropping slow websocket client %s", conn.RemoteAddr())
			h.removeLocked(conn)
		}
	}
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(cl.send)
	// unblocks a writer stuck on a peer that stopped reading
	_ = conn.Close()
}
