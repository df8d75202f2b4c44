// ABOUTME: Gateway wiring: websocket upgrade, envelope dispatch, broker fan-out.
// ABOUTME: Owns the rooms table, the turn dedupe cache, and the store handle.

package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/minuet-ai/agentwire/internal/broker"
	"github.com/minuet-ai/agentwire/internal/dedupe"
	"github.com/minuet-ai/agentwire/internal/protocol"
	"github.com/minuet-ai/agentwire/internal/store"
)

const (
	defaultDedupeTTL   = 5 * time.Minute
	defaultTurnTimeout = 10 * time.Second
	dedupeMaxSize      = 10000
)

// Options configures a Gateway.
type Options struct {
	// AllowedOrigins restricts browser connections; empty allows any
	// origin. Non-browser clients (no Origin header) always pass.
	AllowedOrigins []string
	// DedupeTTL is how long a turn's envelope id is remembered for
	// retransmit detection. Defaults to 5m.
	DedupeTTL time.Duration
	// TurnTimeout bounds the store and broker work for one turn.
	// Defaults to 10s.
	TurnTimeout time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Gateway is the websocket endpoint for the agent-conversation protocol.
type Gateway struct {
	store       store.Store
	broker      broker.Broker
	rooms       *Rooms
	dedupe      *dedupe.Cache
	turnTimeout time.Duration
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// New creates a Gateway over the given store and broker.
func New(st store.Store, br broker.Broker, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = defaultDedupeTTL
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}

	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = true
	}

	g := &Gateway{
		store:       st,
		broker:      br,
		rooms:       NewRooms(logger),
		dedupe:      dedupe.New(opts.DedupeTTL, dedupeMaxSize),
		turnTimeout: opts.TurnTimeout,
		logger:      logger,
	}
	g.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return allowed[origin]
		},
	}
	return g
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{
		id:   uuid.New().String(),
		sock: sock,
		send: make(chan *protocol.Envelope, sendBufferSize),
		done: make(chan struct{}),
	}
	c.logger = g.logger.With("conn_id", c.id)

	g.logger.Debug("connection opened", "conn_id", c.id, "remote", r.RemoteAddr)

	go c.writePump()
	g.readPump(c)
}

// Run fans broker output out to session rooms until ctx is cancelled.
// Response batches are also persisted as agent turns.
func (g *Gateway) Run(ctx context.Context) error {
	out, err := g.broker.Outbound(ctx)
	if err != nil {
		return err
	}

	for msg := range out {
		switch {
		case msg.Event != nil:
			env, err := protocol.NewEnvelope(protocol.EventAgentEvent, msg.Event)
			if err != nil {
				g.logger.Warn("encoding agent event failed", "error", err)
				continue
			}
			g.rooms.Broadcast(msg.SessionID, env)

		case msg.Response != nil:
			g.persistResponses(ctx, msg.SessionID, msg.Response)
			env, err := protocol.NewEnvelope(protocol.EventAIResponse, msg.Response)
			if err != nil {
				g.logger.Warn("encoding response batch failed", "error", err)
				continue
			}
			g.rooms.Broadcast(msg.SessionID, env)

		default:
			g.logger.Warn("outbound message with no payload", "session_id", msg.SessionID)
		}
	}
	return ctx.Err()
}

func (g *Gateway) persistResponses(ctx context.Context, sessionID string, batch *protocol.ResponseBatch) {
	for _, resp := range batch.Responses {
		if resp.Output == "" {
			continue
		}
		turn := &store.Turn{
			SessionID: sessionID,
			Role:      store.RoleAgent,
			Content:   resp.Output,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.store.AppendTurn(ctx, turn); err != nil {
			g.logger.Error("persisting agent turn failed",
				"session_id", sessionID,
				"error", err)
		}
	}
}

// Close releases gateway-owned resources. The store and broker are owned by
// the caller.
func (g *Gateway) Close() {
	g.dedupe.Close()
}
