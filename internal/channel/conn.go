// ABOUTME: Conn and Dialer abstractions plus the gorilla/websocket implementation.
// ABOUTME: Maps server-sent close frames to ErrServerClosed for redial policy.

package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// ErrServerClosed is wrapped by Conn.Read when the peer sent a close frame,
// as opposed to the connection failing. The channel redials immediately in
// that case instead of waiting out the retry delay.
var ErrServerClosed = errors.New("server closed connection")

// Conn is a single established duplex connection carrying envelopes.
// Write is safe for concurrent use; Read is driven by one reader goroutine.
type Conn interface {
	Read() (*protocol.Envelope, error)
	Write(env *protocol.Envelope) error
	Close() error
}

// Dialer establishes connections for a Channel.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebSocketDialer dials the gateway's websocket endpoint.
type WebSocketDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	Header           http.Header
}

// Dial opens a websocket connection to the configured URL.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("dialing %s: %w", d.URL, err)
	}
	return &wsConn{ws: ws}, nil
}

// wsConn adapts a gorilla websocket connection to the Conn interface.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
}

func (c *wsConn) Read() (*protocol.Envelope, error) {
	var env protocol.Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrServerClosed, err)
		}
		return nil, err
	}
	return &env, nil
}

func (c *wsConn) Write(env *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(env)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	// Best effort: tell the peer we are going away before tearing down.
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}
