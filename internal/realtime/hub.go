// Package realtime pushes notifications to users over websockets.
package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudo-init-do/carrypal/internal/notify"
)

const writeWait = 10 * time.Second

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// conn serializes writes; gorilla connections allow one writer at a time.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks live connections per user. A user may hold several.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*conn]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish implements notify.Publisher. Users without a connection are skipped.
func (h *Hub) Publish(userID string, n notify.Notification) {
	h.Broadcast(userID, Event{Type: "notification", Data: n})
}

func (h *Hub) Broadcast(userID string, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[realtime][ERROR] encode %s: %v", evt.Type, err)
		return
	}
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(payload); err != nil {
			h.unregister(userID, c)
			_ = c.ws.Close()
		}
	}
}

// Connected reports how many live connections userID holds.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*conn]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// Serve upgrades the request and holds the connection until the client
// goes away. The protocol is server push; client frames are discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &conn{ws: ws}
	h.register(userID, c)
	log.Printf("[realtime] %s connected", userID)

	defer func() {
		h.unregister(userID, c)
		_ = ws.Close()
		log.Printf("[realtime] %s disconnected", userID)
	}()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}
