// ABOUTME: Session membership operations: join and leave with server acks.
// ABOUTME: Short-circuits to success=false when the channel is not ready.

package client

import (
	"context"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// JoinSession subscribes this client to a session's event stream. Returns
// false with no network call while the channel is not ready; membership is
// never queued. Otherwise it waits for the server ack, bounded by ctx.
// Joining is not idempotent here: repeated joins pass through to the server
// as-is.
func (c *Client) JoinSession(ctx context.Context, sessionID string) (bool, error) {
	return c.membership(ctx, protocol.EventJoinSession, sessionID)
}

// LeaveSession unsubscribes this client from a session's event stream.
// Same readiness and ack semantics as JoinSession.
func (c *Client) LeaveSession(ctx context.Context, sessionID string) (bool, error) {
	return c.membership(ctx, protocol.EventLeaveSession, sessionID)
}

func (c *Client) membership(ctx context.Context, event, sessionID string) (bool, error) {
	if !c.transport.Ready() {
		c.logger.Debug("membership short-circuit, channel not ready",
			"event", event,
			"session_id", sessionID)
		return false, nil
	}

	env, err := c.transport.Request(ctx, event, protocol.JoinRequest{SessionID: sessionID})
	if err != nil {
		return false, err
	}

	var ack protocol.AckPayload
	if err := env.Decode(&ack); err != nil {
		return false, err
	}
	return ack.Success, nil
}
