// ABOUTME: Inbound event multiplexer mapping event names to handler sets.
// ABOUTME: Handlers are keyed by registration id so Off removes exactly one.

package channel

import (
	"sync"

	"github.com/google/uuid"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// Handler consumes one inbound envelope.
type Handler func(env *protocol.Envelope)

// Mux fans inbound envelopes out to handlers registered per event name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler // event -> registration id -> handler
}

// NewMux creates an empty multiplexer.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]map[string]Handler)}
}

// On registers a handler for an event name and returns a registration id
// for later removal.
func (m *Mux) On(event string, h Handler) string {
	id := uuid.New().String()
	m.mu.Lock()
	if _, ok := m.handlers[event]; !ok {
		m.handlers[event] = make(map[string]Handler)
	}
	m.handlers[event][id] = h
	m.mu.Unlock()
	return id
}

// Off removes a single handler registration. Unknown ids are ignored.
func (m *Mux) Off(event, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hs, ok := m.handlers[event]
	if !ok {
		return
	}
	delete(hs, id)
	if len(hs) == 0 {
		delete(m.handlers, event)
	}
}

// dispatch delivers an envelope to every handler registered for its event.
// Handlers are copied under the read lock so a handler may call On/Off.
func (m *Mux) dispatch(env *protocol.Envelope) {
	m.mu.RLock()
	hs := m.handlers[env.Event]
	targets := make([]Handler, 0, len(hs))
	for _, h := range hs {
		targets = append(targets, h)
	}
	m.mu.RUnlock()

	for _, h := range targets {
		h(env)
	}
}
