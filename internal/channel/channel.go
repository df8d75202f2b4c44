// ABOUTME: Connection lifecycle manager: auto-reconnect, ready state, ack correlation.
// ABOUTME: Owns the single connection instance shared by everything above it.

package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// Channel errors.
var (
	// ErrNotReady means the channel has no established connection.
	ErrNotReady = errors.New("channel not ready")

	// ErrClosed means Close was called; the channel will never reconnect.
	ErrClosed = errors.New("channel closed")

	// ErrDisconnected means the connection dropped while an ack was pending.
	ErrDisconnected = errors.New("channel disconnected")
)

// State describes the channel lifecycle for watchers.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateDisconnected
	StateFailed // retry budget exhausted, no further automatic attempts
	StateClosed // Close called, terminal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures the reconnect policy.
type Options struct {
	// MaxAttempts is the automatic reconnect budget. Defaults to 5.
	MaxAttempts int
	// RetryDelay is the fixed delay between attempts. Defaults to 1s.
	RetryDelay time.Duration
	// DialTimeout bounds each connection attempt. Defaults to 20s.
	DialTimeout time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

type ackResult struct {
	env *protocol.Envelope
	err error
}

// Channel is the persistent duplex connection. It starts connecting at
// construction and keeps one connection alive within the retry budget.
type Channel struct {
	dialer Dialer
	opts   Options
	mux    *Mux
	logger *slog.Logger

	mu       sync.Mutex
	conn     Conn
	ready    bool
	attempts int
	closed   bool
	pending  map[string]chan ackResult // envelope id -> waiter
	watchers map[string]func(State)

	done chan struct{}
}

// New creates a Channel and begins connecting immediately.
func New(dialer Dialer, opts Options) *Channel {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 20 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Channel{
		dialer:   dialer,
		opts:     opts,
		mux:      NewMux(),
		logger:   logger.With("component", "channel"),
		pending:  make(map[string]chan ackResult),
		watchers: make(map[string]func(State)),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Ready reports whether the channel currently has an established connection.
func (c *Channel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Watch registers a state observer and returns a registration id.
// Watchers are invoked from the connection goroutine; they must not block.
func (c *Channel) Watch(fn func(State)) string {
	id := uuid.New().String()
	c.mu.Lock()
	c.watchers[id] = fn
	c.mu.Unlock()
	return id
}

// Unwatch removes a state observer.
func (c *Channel) Unwatch(id string) {
	c.mu.Lock()
	delete(c.watchers, id)
	c.mu.Unlock()
}

// On registers an inbound event handler; see Mux.On.
func (c *Channel) On(event string, h Handler) string {
	return c.mux.On(event, h)
}

// Off removes an inbound event handler; see Mux.Off.
func (c *Channel) Off(event, id string) {
	c.mux.Off(event, id)
}

// Emit sends a fire-and-forget envelope. Returns ErrNotReady when there is
// no established connection; nothing is queued for later delivery. The
// envelope carries a fresh id so the server can recognize retransmits, but
// no ack is awaited for it.
func (c *Channel) Emit(event string, v any) error {
	env, err := protocol.NewEnvelope(event, v)
	if err != nil {
		return err
	}
	env.ID = uuid.New().String()

	c.mu.Lock()
	conn, ready := c.conn, c.ready
	c.mu.Unlock()
	if !ready || conn == nil {
		return ErrNotReady
	}
	return conn.Write(env)
}

// Request sends an envelope carrying a correlation id and waits for the
// matching ack envelope. The wait is bounded only by ctx; the pending entry
// is removed on every exit path so settled waiters never accumulate.
func (c *Channel) Request(ctx context.Context, event string, v any) (*protocol.Envelope, error) {
	env, err := protocol.NewEnvelope(event, v)
	if err != nil {
		return nil, err
	}
	env.ID = uuid.New().String()

	ch := make(chan ackResult, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.ready || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	conn := c.conn
	c.pending[env.ID] = ch
	c.mu.Unlock()

	if err := conn.Write(env); err != nil {
		c.removePending(env.ID)
		return nil, err
	}

	select {
	case res := <-ch:
		return res.env, res.err
	case <-ctx.Done():
		c.removePending(env.ID)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close tears down the connection and stops all reconnection. Terminal.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.ready = false
	c.mu.Unlock()

	close(c.done)
	c.failPending(ErrClosed)

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.notify(StateClosed)
	return err
}

// run is the connection goroutine: dial, pump reads, decide how to retry.
func (c *Channel) run() {
	immediate := true
	for {
		if !immediate {
			select {
			case <-time.After(c.opts.RetryDelay):
			case <-c.done:
				return
			}
		}
		immediate = false

		select {
		case <-c.done:
			return
		default:
		}

		c.notify(StateConnecting)
		dialCtx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		conn, err := c.dialer.Dial(dialCtx)
		cancel()
		if err != nil {
			c.mu.Lock()
			c.attempts++
			attempts := c.attempts
			budget := c.opts.MaxAttempts
			c.mu.Unlock()

			c.logger.Warn("connect attempt failed",
				"attempt", attempts,
				"max_attempts", budget,
				"error", err)
			if attempts >= budget {
				// Surfaced as a state, never an error: the caller's UI
				// stays usable without live updates.
				c.notify(StateFailed)
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.ready = true
		c.attempts = 0
		c.mu.Unlock()
		c.logger.Info("channel ready")
		c.notify(StateReady)

		serverClosed := c.readLoop(conn)

		c.mu.Lock()
		c.ready = false
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()
		conn.Close()

		// Acks in flight will never arrive on the new connection.
		c.failPending(ErrDisconnected)

		if closed {
			return
		}
		c.notify(StateDisconnected)

		// A close frame from the server is not covered by the retry
		// backoff: redial right away.
		if serverClosed {
			c.logger.Info("server closed connection, redialing")
			immediate = true
		}
	}
}

// readLoop pumps inbound envelopes until the connection fails. Reports
// whether the failure was a server-sent close frame.
func (c *Channel) readLoop(conn Conn) bool {
	for {
		env, err := conn.Read()
		if err != nil {
			if errors.Is(err, ErrServerClosed) {
				return true
			}
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("connection read failed", "error", err)
			}
			return false
		}
		c.dispatch(env)
	}
}

// dispatch routes an inbound envelope: correlation id first, then the mux.
func (c *Channel) dispatch(env *protocol.Envelope) {
	if env.ID != "" {
		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- ackResult{env: env}
			return
		}
	}
	c.mux.dispatch(env)
}

func (c *Channel) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failPending settles every waiter with err and clears the registry.
func (c *Channel) failPending(err error) {
	c.mu.Lock()
	waiters := make([]chan ackResult, 0, len(c.pending))
	for id, ch := range c.pending {
		waiters = append(waiters, ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- ackResult{err: err}
	}
}

// notify calls every watcher with the new state.
func (c *Channel) notify(s State) {
	c.mu.Lock()
	targets := make([]func(State), 0, len(c.watchers))
	for _, fn := range c.watchers {
		targets = append(targets, fn)
	}
	c.mu.Unlock()

	for _, fn := range targets {
		fn(s)
	}
}
