// ABOUTME: Per-connection read/write pumps over the websocket.
// ABOUTME: Reads dispatch protocol envelopes; writes drain the send buffer.

package gateway

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// conn is one connected client. The send buffer is never closed: rooms
// may still hold a reference while the connection tears down, and a send
// into a closed channel would take the whole process with it. writePump
// exits on done instead.
type conn struct {
	id     string
	sock   *websocket.Conn
	send   chan *protocol.Envelope
	done   chan struct{}
	logger *slog.Logger
}

// push queues an envelope for this connection, dropping it if the buffer
// is full.
func (c *conn) push(env *protocol.Envelope) {
	select {
	case c.send <- env:
	default:
		c.logger.Debug("dropped frame for slow connection", "event", env.Event)
	}
}

// readPump consumes inbound envelopes until the connection fails.
func (g *Gateway) readPump(c *conn) {
	defer func() {
		g.rooms.LeaveAll(c.id)
		close(c.done)
		c.sock.Close()
		g.logger.Debug("connection closed", "conn_id", c.id)
	}()

	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env protocol.Envelope
		if err := c.sock.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection read failed", "error", err)
			}
			return
		}
		g.handleEnvelope(c, &env)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(env); err != nil {
				return
			}
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
