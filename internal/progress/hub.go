// Package progress broadcasts per-session step transitions to
// connected ops dashboards over WebSocket (SPEC_FULL "Observability").
// Grounded on the teacher's gorilla/websocket client usage in
// internal/providers/kraken/websocket.go (mutex-guarded connection
// set, JSON-framed messages), inverted into a small server-side hub
// since the teacher only ever dials out.
package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event is one step transition broadcast to subscribers, e.g.
// "session_started", "scoring_done", "pools_built", "user_feeds_done",
// "session_finished".
type Event struct {
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans out Events to every currently-connected WebSocket client.
// Safe for concurrent use by multiple orchestrator sessions and
// multiple HTTP handler goroutines.
type Hub struct {
	mu      sync.RWMutex
	writeMu sync.Mutex // serialises Broadcast writes: one writer per conn
	clients map[*websocket.Conn]struct{}
	log     zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		log:     log.With().Str("component", "progress_hub").Logger(),
	}
}

// Register adds conn to the broadcast set. The caller owns conn's
// read loop (if any); Hub only ever writes.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

// Unregister removes conn from the broadcast set and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Broadcast sends evt to every registered client, one write after
// another, and returns once every write has returned; writes carry no
// deadline, so a slow subscriber delays the caller. A write failure
// unregisters and closes that client.
func (h *Hub) Broadcast(evt Event) {
	encoded, err := json.Marshal(evt)
	if err != nil {
		h.log.Warn().Err(err).Str("step", evt.Step).Msg("failed to encode progress event")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, encoded); err != nil {
			h.log.Debug().Err(err).Msg("progress subscriber write failed, dropping")
			h.Unregister(c)
		}
	}
}

// ClientCount reports the number of currently-connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
