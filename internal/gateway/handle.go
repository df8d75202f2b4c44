// ABOUTME: Inbound envelope dispatch: membership acks and the send-message path.
// ABOUTME: Promotes provisional sessions, persists turns, and publishes to the broker.

package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minuet-ai/agentwire/internal/broker"
	"github.com/minuet-ai/agentwire/internal/protocol"
	"github.com/minuet-ai/agentwire/internal/store"
)

const titleMaxRunes = 80

func (g *Gateway) handleEnvelope(c *conn, env *protocol.Envelope) {
	switch env.Event {
	case protocol.EventJoinSession:
		g.handleJoin(c, env)
	case protocol.EventLeaveSession:
		g.handleLeave(c, env)
	case protocol.EventSendMessage:
		g.handleSendMessage(c, env)
	default:
		c.logger.Warn("unknown event", "event", env.Event)
	}
}

func (g *Gateway) handleJoin(c *conn, env *protocol.Envelope) {
	var req protocol.JoinRequest
	if err := env.Decode(&req); err != nil || req.SessionID == "" {
		g.ack(c, env.ID, false)
		return
	}
	g.rooms.Join(req.SessionID, c.id, c.send)
	g.ack(c, env.ID, true)
}

func (g *Gateway) handleLeave(c *conn, env *protocol.Envelope) {
	var req protocol.JoinRequest
	if err := env.Decode(&req); err != nil || req.SessionID == "" {
		g.ack(c, env.ID, false)
		return
	}
	g.rooms.Leave(req.SessionID, c.id)
	g.ack(c, env.ID, true)
}

// ack answers a direct request frame. Frames without an id get no ack.
func (g *Gateway) ack(c *conn, id string, success bool) {
	if id == "" {
		return
	}
	env, err := protocol.NewEnvelope(protocol.EventAck, protocol.AckPayload{Success: success})
	if err != nil {
		g.logger.Error("encoding ack failed", "error", err)
		return
	}
	env.ID = id
	c.push(env)
}

// handleSendMessage runs the full turn path: dedupe, provisional promotion,
// user-turn persistence, publish to the runner, and the delivery ack.
func (g *Gateway) handleSendMessage(c *conn, env *protocol.Envelope) {
	var msg protocol.ChatMessage
	if err := env.Decode(&msg); err != nil {
		g.logger.Warn("malformed send-message", "conn_id", c.id, "error", err)
		g.pushError(c, "", "invalid message payload")
		return
	}
	if msg.SessionID == "" || strings.TrimSpace(msg.Message) == "" {
		g.pushError(c, msg.SessionID, "sessionId and message are required")
		return
	}

	// Retransmits of an already-handled turn are re-acked without another
	// publish. The envelope id is the idempotency token.
	if env.ID != "" && g.dedupe.CheckAndMark(env.ID) {
		g.logger.Debug("duplicate turn ignored",
			"session_id", msg.SessionID,
			"message_id", env.ID)
		g.pushAck(c, protocol.DeliveryAck{
			Success:   true,
			Message:   "duplicate turn ignored",
			SessionID: msg.SessionID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.turnTimeout)
	defer cancel()

	sessionID, isNew, err := g.resolveSession(ctx, c, &msg)
	if err != nil {
		g.logger.Error("resolving session failed",
			"session_id", msg.SessionID,
			"error", err)
		g.failTurn(c, env.ID, msg.SessionID)
		return
	}

	if err := g.store.AppendTurn(ctx, &store.Turn{
		SessionID: sessionID,
		Role:      store.RoleUser,
		Content:   msg.Message,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		g.logger.Error("persisting user turn failed", "session_id", sessionID, "error", err)
		g.failTurn(c, env.ID, msg.SessionID)
		return
	}

	turn := &broker.TurnRequest{
		MessageID:      env.ID,
		SessionID:      sessionID,
		OrganizationID: msg.OrganizationID,
		UserID:         msg.UserID,
		Message:        msg.Message,
		SystemPrompt:   msg.SystemPrompt,
		ContextRefs:    msg.SelectedContextRefs,
	}
	if turn.MessageID == "" {
		turn.MessageID = uuid.New().String()
	}
	if err := g.broker.PublishTurn(ctx, turn); err != nil {
		g.logger.Error("publishing turn failed", "session_id", sessionID, "error", err)
		g.failTurn(c, env.ID, msg.SessionID)
		return
	}

	g.pushAck(c, protocol.DeliveryAck{
		Success:      true,
		Message:      "message received",
		SessionID:    sessionID,
		IsNewSession: isNew,
	})
}

// resolveSession maps the client-supplied session id to a durable one,
// promoting provisional or unknown ids. On promotion the sender's room
// membership follows the new id and a migration notice is pushed before
// the delivery ack.
func (g *Gateway) resolveSession(ctx context.Context, c *conn, msg *protocol.ChatMessage) (string, bool, error) {
	if !protocol.IsProvisionalSessionID(msg.SessionID) {
		_, err := g.store.GetSession(ctx, msg.SessionID)
		if err == nil {
			return msg.SessionID, false, nil
		}
		if !errors.Is(err, store.ErrSessionNotFound) {
			return "", false, err
		}
		// Unknown durable-looking ids are promoted the same way as
		// provisional ones so a stale client can keep talking.
		g.logger.Warn("unknown session id, promoting", "session_id", msg.SessionID)
	}

	sess := &store.Session{
		ID:             uuid.New().String(),
		Title:          titleFromMessage(msg.Message),
		OrganizationID: msg.OrganizationID,
		UserID:         msg.UserID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.store.CreateSession(ctx, sess); err != nil {
		return "", false, err
	}

	g.rooms.Rebind(msg.SessionID, sess.ID)
	g.rooms.Join(sess.ID, c.id, c.send)

	notice := protocol.MigrationNotice{
		OldSessionID: msg.SessionID,
		NewSessionID: sess.ID,
		Session: protocol.SessionInfo{
			ID:        sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
		},
	}
	env, err := protocol.NewEnvelope(protocol.EventSessionCreated, notice)
	if err != nil {
		return "", false, err
	}
	c.push(env)

	g.logger.Info("session promoted",
		"old_session_id", msg.SessionID,
		"session_id", sess.ID)
	return sess.ID, true, nil
}

// failTurn answers a failed turn and unmarks its dedupe entry so a
// retransmit gets a fresh attempt instead of a false duplicate ack.
func (g *Gateway) failTurn(c *conn, envelopeID, sessionID string) {
	if envelopeID != "" {
		g.dedupe.Forget(envelopeID)
	}
	g.pushError(c, sessionID, "failed to send message")
}

func (g *Gateway) pushAck(c *conn, ack protocol.DeliveryAck) {
	env, err := protocol.NewEnvelope(protocol.EventMessageReceived, ack)
	if err != nil {
		g.logger.Error("encoding delivery ack failed", "error", err)
		return
	}
	c.push(env)
}

func (g *Gateway) pushError(c *conn, sessionID, reason string) {
	env, err := protocol.NewEnvelope(protocol.EventMessageError, protocol.MessageError{
		SessionID: sessionID,
		Error:     reason,
	})
	if err != nil {
		g.logger.Error("encoding message error failed", "error", err)
		return
	}
	c.push(env)
}

// titleFromMessage derives a session title from the first user turn.
func titleFromMessage(message string) string {
	title := strings.TrimSpace(message)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes-1]) + "…"
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}
