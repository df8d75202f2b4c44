// ABOUTME: Named application messages exchanged between clients and the gateway.
// ABOUTME: Defines chat turns, delivery acks, and session migration notices.

package protocol

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event names for every application message on the wire.
// Client-to-server unless noted.
const (
	EventJoinSession     = "join-session"
	EventLeaveSession    = "leave-session"
	EventSendMessage     = "send-message"
	EventMessageReceived = "message-received" // server->client
	EventMessageError    = "message-error"    // server->client
	EventSessionCreated  = "session-created"  // server->client
	EventAIResponse      = "ai-response"      // server->client
	EventAgentEvent      = "agent-event"      // server->client
	EventAck             = "ack"              // server->client, transport-level
)

// ProvisionalPrefix marks a session id that has not been durably persisted.
// The gateway promotes such ids on the first turn.
const ProvisionalPrefix = "new-"

// NewProvisionalSessionID returns a fresh provisional session id.
func NewProvisionalSessionID() string {
	return ProvisionalPrefix + uuid.New().String()
}

// IsProvisionalSessionID reports whether id is a provisional placeholder.
func IsProvisionalSessionID(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// ChatMessage is one user turn submitted to the agent. It is immutable once
// sent; at most one turn per session may be in flight at a time.
type ChatMessage struct {
	SessionID           string   `json:"sessionId"`
	OrganizationID      string   `json:"organizationId"`
	UserID              string   `json:"userId"`
	Message             string   `json:"message"`
	SystemPrompt        string   `json:"systemPrompt,omitempty"`
	SelectedContextRefs []string `json:"selectedContextRefs,omitempty"`
}

// DeliveryAck is the success acknowledgement for a ChatMessage, correlated
// 1:1 with the turn by session id. IsNewSession is set when the turn caused
// a provisional session to be promoted.
type DeliveryAck struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SessionID    string `json:"sessionId"`
	IsNewSession bool   `json:"isNewSession,omitempty"`
}

// MessageError is the failure acknowledgement for a ChatMessage.
type MessageError struct {
	SessionID string `json:"sessionId"`
	Error     string `json:"error,omitempty"`
}

// SessionInfo describes a durable session record.
type SessionInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// MigrationNotice announces a provisional->durable session promotion.
// Emitted at most once per provisional id; all later correlation and
// membership for the conversation must use NewSessionID.
type MigrationNotice struct {
	OldSessionID string      `json:"oldSessionId"`
	NewSessionID string      `json:"newSessionId"`
	Session      SessionInfo `json:"session"`
}

// JoinRequest is the payload for join-session and leave-session.
type JoinRequest struct {
	SessionID string `json:"sessionId"`
}
