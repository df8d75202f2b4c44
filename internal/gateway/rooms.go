// ABOUTME: Per-session room membership with non-blocking envelope fan-out.
// ABOUTME: Rebind moves a whole room when a provisional session is promoted.

package gateway

import (
	"log/slog"
	"sync"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// Rooms tracks which connections are subscribed to which sessions and
// broadcasts envelopes to them.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]chan<- *protocol.Envelope // session -> conn id -> send
	logger  *slog.Logger
}

// NewRooms creates an empty membership table. Pass nil for a default logger.
func NewRooms(logger *slog.Logger) *Rooms {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rooms{
		members: make(map[string]map[string]chan<- *protocol.Envelope),
		logger:  logger.With("component", "rooms"),
	}
}

// Join subscribes a connection to a session's room. Joining twice is
// harmless; the newest send channel wins.
func (r *Rooms) Join(sessionID, connID string, send chan<- *protocol.Envelope) {
	r.mu.Lock()
	if _, ok := r.members[sessionID]; !ok {
		r.members[sessionID] = make(map[string]chan<- *protocol.Envelope)
	}
	r.members[sessionID][connID] = send
	r.mu.Unlock()

	r.logger.Debug("joined session", "session_id", sessionID, "conn_id", connID)
}

// Leave removes a connection from one session's room.
func (r *Rooms) Leave(sessionID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.members[sessionID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.members, sessionID)
	}
}

// LeaveAll removes a connection from every room; called when it closes.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, room := range r.members {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.members, sessionID)
		}
	}
}

// Rebind moves every member of oldSessionID into newSessionID's room.
// Used when a provisional session is promoted so members keep receiving
// the stream under the durable id.
func (r *Rooms) Rebind(oldSessionID, newSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.members[oldSessionID]
	if !ok {
		return
	}
	delete(r.members, oldSessionID)

	target, ok := r.members[newSessionID]
	if !ok {
		target = make(map[string]chan<- *protocol.Envelope)
		r.members[newSessionID] = target
	}
	for connID, send := range room {
		target[connID] = send
	}
}

// Count returns the number of members in a session's room.
func (r *Rooms) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[sessionID])
}

// Broadcast delivers an envelope to every member of a session's room.
// Non-blocking: frames are dropped for members whose send buffers are full.
func (r *Rooms) Broadcast(sessionID string, env *protocol.Envelope) {
	r.mu.RLock()
	room := r.members[sessionID]
	targets := make([]chan<- *protocol.Envelope, 0, len(room))
	for _, send := range room {
		targets = append(targets, send)
	}
	r.mu.RUnlock()

	for _, send := range targets {
		select {
		case send <- env:
		default:
			r.logger.Debug("dropped frame for slow member",
				"session_id", sessionID,
				"event", env.Event)
		}
	}
}
