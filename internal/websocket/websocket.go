package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event is the payload broadcast to all connected dashboard clients.
// Exactly one of Board, Statistics or SerialNumber is set depending on Type.
type Event struct {
	Type         string `json:"type"`
	Action       string `json:"action,omitempty"`
	Board        any    `json:"board,omitempty"`
	Statistics   any    `json:"statistics,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// client wraps a WebSocket connection with a mutex for thread-safe writes.
type client struct {
	conn *ws.Conn
	mu   sync.Mutex
}

// Hub maintains connected WebSocket clients and fans events out to them.
// Delivery is fire-and-forget: a failed write drops the client, never the
// mutation that produced the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	if c.conn != nil {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ws: close panic: %v", r)
			}
		}()
		_ = c.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients. Errors are logged and
// swallowed; a disconnected subscriber must not affect the caller.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		writeErr := func() (writeErr error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ws: write panic: %v", r)
					writeErr = fmt.Errorf("ws: write panic: %v", r)
				}
			}()
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			return c.conn.WriteMessage(ws.TextMessage, data)
		}()
		c.mu.Unlock()

		if writeErr != nil {
			h.unregister(c)
		}
	}
}

// BroadcastRaw sends an arbitrary JSON payload, used by the admin broadcast
// endpoint.
func (h *Hub) BroadcastRaw(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteMessage(ws.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.unregister(c)
		}
	}
}

// Upgrader is the default WebSocket upgrader.
var Upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the connection and keeps it alive with pings.
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	hub.register(c)
	log.Printf("ws: client connected (%d total)", hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			c.mu.Lock()
			err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	hub.unregister(c)
	log.Printf("ws: client disconnected")
}
