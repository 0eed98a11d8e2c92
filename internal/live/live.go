// Package live broadcasts decoder state transitions to connected websocket
// clients, one JSON object per websocket text message, following the map-of-connections /
// per-connection write mutex / write-deadline idiom this codebase's
// ancestry uses for its own spot broadcasters.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State names the decoder's coarse lifecycle phase.
type State string

const (
	StateIdle        State = "idle"
	StateCellCapture State = "cell_capture"
	StateSyncWait    State = "sync_wait"
	StateDone        State = "done"
)

// Event is one state transition broadcast to clients.
type Event struct {
	Type      string    `json:"type"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	ErrorCode int       `json:"error_code,omitempty"`
}

// Hub fans out decoder Events to every connected websocket client.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*sync.Mutex
	upgrader websocket.Upgrader
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends ev to every connected client. A per-connection send
// failure is logged and otherwise ignored; the client's read loop will
// detect the dead connection and clean it up.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("live: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, writeMu := range h.clients {
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, payload)
		writeMu.Unlock()
		if err != nil {
			log.Printf("live: send failed: %v", err)
		}
	}
}

// ClientCount reports how many clients are currently connected, for tests
// and diagnostics.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
