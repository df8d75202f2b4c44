// ABOUTME: Turn delivery with session-keyed correlation and a mandatory ack timeout.
// ABOUTME: One-shot settlement: the first matching ack wins, stale acks are dropped.

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minuet-ai/agentwire/internal/channel"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

var (
	// ErrAckTimeout means the gateway never acknowledged the turn within
	// the configured window. The pending registration has been removed;
	// the turn may or may not have been processed.
	ErrAckTimeout = errors.New("delivery ack timeout")

	// ErrTurnInFlight means a turn for this session is already awaiting
	// its ack. Exactly one turn per session may be outstanding.
	ErrTurnInFlight = errors.New("turn already in flight for session")
)

// DeliveryError carries the gateway's message-error payload.
type DeliveryError struct {
	SessionID string
	Reason    string
}

func (e *DeliveryError) Error() string {
	if e.Reason == "" {
		return "failed to send message"
	}
	return e.Reason
}

type sendResult struct {
	ack *protocol.DeliveryAck
	err error
}

// Send submits one turn and waits for its delivery acknowledgement,
// correlated by session id. It fails immediately with channel.ErrNotReady
// when the channel has no connection, without registering anything or
// transmitting. The wait is bounded by ctx and by the client's ack timeout,
// whichever fires first.
func (c *Client) Send(ctx context.Context, msg protocol.ChatMessage) (*protocol.DeliveryAck, error) {
	if !c.transport.Ready() {
		return nil, channel.ErrNotReady
	}

	ch := make(chan sendResult, 1)
	c.mu.Lock()
	if _, exists := c.pending[msg.SessionID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTurnInFlight, msg.SessionID)
	}
	c.pending[msg.SessionID] = ch
	c.mu.Unlock()

	if err := c.transport.Emit(protocol.EventSendMessage, msg); err != nil {
		c.removeWaiter(ch)
		return nil, err
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.ack, res.err
	case <-timer.C:
		c.removeWaiter(ch)
		return nil, fmt.Errorf("%w after %s for session %s", ErrAckTimeout, c.ackTimeout, msg.SessionID)
	case <-ctx.Done():
		c.removeWaiter(ch)
		return nil, ctx.Err()
	}
}

func (c *Client) onMessageReceived(env *protocol.Envelope) {
	var ack protocol.DeliveryAck
	if err := env.Decode(&ack); err != nil {
		c.logger.Warn("dropping malformed delivery ack", "error", err)
		return
	}
	c.settle(ack.SessionID, &ack, nil)
}

func (c *Client) onMessageError(env *protocol.Envelope) {
	var msgErr protocol.MessageError
	if err := env.Decode(&msgErr); err != nil {
		c.logger.Warn("dropping malformed message error", "error", err)
		return
	}
	c.settle(msgErr.SessionID, nil, &DeliveryError{
		SessionID: msgErr.SessionID,
		Reason:    msgErr.Error,
	})
}

// settle resolves the pending turn for a session. The registration is taken
// out of the registry before delivery, so settlement is one-shot: a second
// ack for the same session finds nothing and is dropped.
func (c *Client) settle(sessionID string, ack *protocol.DeliveryAck, err error) {
	c.mu.Lock()
	ch, ok := c.pending[sessionID]
	if ok {
		delete(c.pending, sessionID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("ack for session with no turn in flight", "session_id", sessionID)
		return
	}
	ch <- sendResult{ack: ack, err: err}
}

// removeWaiter deletes the registration holding ch under whatever key it
// currently sits. A migration notice may have rebound the entry from the
// provisional to the durable session id since Send registered it, so
// removal goes by waiter identity, not by the key Send started with.
func (c *Client) removeWaiter(ch chan sendResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sessionID, waiter := range c.pending {
		if waiter == ch {
			delete(c.pending, sessionID)
			return
		}
	}
}
