// Package notifyhub broadcasts progress events to websocket subscribers.
// Publication is fire and forget: no acknowledgment, no delivery guarantee,
// no ordering guarantee across concurrently connected subscribers.
package notifyhub

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/tidewell/filegate/types"
)

// Hub holds websocket connections and fans progress events out to all of
// them.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a new progress hub.
func New() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a websocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a websocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Publish sends the event as JSON to every registered connection.
// Implements types.Publisher. Write failures are ignored; the read loop of
// the dead connection unregisters it.
func (h *Hub) Publish(event types.ProgressEvent) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}
