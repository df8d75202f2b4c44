// ABOUTME: Client construction, inbound handler wiring, and observer registries.
// ABOUTME: Relays migration notices, response batches, and agent events to subscribers.

package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minuet-ai/agentwire/internal/channel"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

// Transport is the slice of channel.Channel the client depends on. It is
// injected explicitly; the client never reaches for a shared instance.
type Transport interface {
	Ready() bool
	Emit(event string, v any) error
	Request(ctx context.Context, event string, v any) (*protocol.Envelope, error)
	On(event string, h channel.Handler) string
	Off(event, id string)
}

// Options configures a Client.
type Options struct {
	// AckTimeout bounds how long Send waits for a delivery ack.
	// Defaults to 30s.
	AckTimeout time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client provides session membership, turn delivery, and migration relay on
// top of a Transport.
type Client struct {
	transport  Transport
	ackTimeout time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]chan sendResult // session id -> in-flight turn waiter

	subsMu        sync.RWMutex
	migrationSubs map[string]func(protocol.MigrationNotice)
	responseSubs  map[string]func(protocol.ResponseBatch)
	eventSubs     map[string]func(protocol.AgentEvent)

	handlerIDs [][2]string // (event, registration id) pairs for Close
}

// New creates a Client bound to the given transport and registers its
// inbound handlers.
func New(transport Transport, opts Options) *Client {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		transport:     transport,
		ackTimeout:    opts.AckTimeout,
		logger:        logger.With("component", "client"),
		pending:       make(map[string]chan sendResult),
		migrationSubs: make(map[string]func(protocol.MigrationNotice)),
		responseSubs:  make(map[string]func(protocol.ResponseBatch)),
		eventSubs:     make(map[string]func(protocol.AgentEvent)),
	}

	c.register(protocol.EventMessageReceived, c.onMessageReceived)
	c.register(protocol.EventMessageError, c.onMessageError)
	c.register(protocol.EventSessionCreated, c.onSessionCreated)
	c.register(protocol.EventAIResponse, c.onAIResponse)
	c.register(protocol.EventAgentEvent, c.onAgentEvent)

	return c
}

func (c *Client) register(event string, h channel.Handler) {
	id := c.transport.On(event, h)
	c.handlerIDs = append(c.handlerIDs, [2]string{event, id})
}

// Close detaches the client's inbound handlers from the transport. It does
// not close the transport, which the caller owns.
func (c *Client) Close() {
	for _, pair := range c.handlerIDs {
		c.transport.Off(pair[0], pair[1])
	}
}

// Ready reports the underlying channel's ready state.
func (c *Client) Ready() bool {
	return c.transport.Ready()
}

// OnMigration registers an observer for session-created notices and returns
// a registration id. Every observer receives every notice exactly once;
// filtering by old session id is the observer's concern.
func (c *Client) OnMigration(fn func(protocol.MigrationNotice)) string {
	id := uuid.New().String()
	c.subsMu.Lock()
	c.migrationSubs[id] = fn
	c.subsMu.Unlock()
	return id
}

// OffMigration removes a migration observer.
func (c *Client) OffMigration(id string) {
	c.subsMu.Lock()
	delete(c.migrationSubs, id)
	c.subsMu.Unlock()
}

// OnResponse registers an observer for terminal ai-response batches.
func (c *Client) OnResponse(fn func(protocol.ResponseBatch)) string {
	id := uuid.New().String()
	c.subsMu.Lock()
	c.responseSubs[id] = fn
	c.subsMu.Unlock()
	return id
}

// OffResponse removes a response observer.
func (c *Client) OffResponse(id string) {
	c.subsMu.Lock()
	delete(c.responseSubs, id)
	c.subsMu.Unlock()
}

// OnAgentEvent registers an observer for the agent progress stream.
func (c *Client) OnAgentEvent(fn func(protocol.AgentEvent)) string {
	id := uuid.New().String()
	c.subsMu.Lock()
	c.eventSubs[id] = fn
	c.subsMu.Unlock()
	return id
}

// OffAgentEvent removes an agent event observer.
func (c *Client) OffAgentEvent(id string) {
	c.subsMu.Lock()
	delete(c.eventSubs, id)
	c.subsMu.Unlock()
}

func (c *Client) onSessionCreated(env *protocol.Envelope) {
	var notice protocol.MigrationNotice
	if err := env.Decode(&notice); err != nil {
		c.logger.Warn("dropping malformed migration notice", "error", err)
		return
	}

	// An in-flight turn for the provisional session will be acked under the
	// durable id; rebind it before relaying the notice.
	c.mu.Lock()
	if ch, ok := c.pending[notice.OldSessionID]; ok {
		delete(c.pending, notice.OldSessionID)
		c.pending[notice.NewSessionID] = ch
	}
	c.mu.Unlock()

	c.subsMu.RLock()
	targets := make([]func(protocol.MigrationNotice), 0, len(c.migrationSubs))
	for _, fn := range c.migrationSubs {
		targets = append(targets, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range targets {
		fn(notice)
	}
}

func (c *Client) onAIResponse(env *protocol.Envelope) {
	var batch protocol.ResponseBatch
	if err := env.Decode(&batch); err != nil {
		c.logger.Warn("dropping malformed response batch", "error", err)
		return
	}

	c.subsMu.RLock()
	targets := make([]func(protocol.ResponseBatch), 0, len(c.responseSubs))
	for _, fn := range c.responseSubs {
		targets = append(targets, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range targets {
		fn(batch)
	}
}

func (c *Client) onAgentEvent(env *protocol.Envelope) {
	var event protocol.AgentEvent
	if err := env.Decode(&event); err != nil {
		c.logger.Warn("dropping malformed agent event", "error", err)
		return
	}

	c.subsMu.RLock()
	targets := make([]func(protocol.AgentEvent), 0, len(c.eventSubs))
	for _, fn := range c.eventSubs {
		targets = append(targets, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range targets {
		fn(event)
	}
}
