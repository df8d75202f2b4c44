// ABOUTME: Broker interface and payload types between gateway and agent runner.
// ABOUTME: Inbound turns are work-queued; outbound traffic is published.

package broker

import (
	"context"
	"errors"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// ErrClosed is returned by publish operations after Close.
var ErrClosed = errors.New("broker closed")

// TurnRequest is one user turn handed to the agent runner. SessionID is
// always the durable id; provisional promotion happens before publishing.
type TurnRequest struct {
	MessageID      string   `json:"messageId"`
	SessionID      string   `json:"sessionId"`
	OrganizationID string   `json:"organizationId"`
	UserID         string   `json:"userId"`
	Message        string   `json:"message"`
	SystemPrompt   string   `json:"systemPrompt,omitempty"`
	ContextRefs    []string `json:"contextRefs,omitempty"`
}

// Outbound is one runner-to-gateway message: exactly one of Event or
// Response is set.
type Outbound struct {
	SessionID string                  `json:"sessionId"`
	Event     *protocol.AgentEvent    `json:"event,omitempty"`
	Response  *protocol.ResponseBatch `json:"response,omitempty"`
}

// Broker moves turns to the runner and agent output back to the gateway.
type Broker interface {
	// PublishTurn enqueues a turn for the runner.
	PublishTurn(ctx context.Context, turn *TurnRequest) error

	// Turns delivers enqueued turns to the runner. The channel closes when
	// ctx is cancelled.
	Turns(ctx context.Context) (<-chan *TurnRequest, error)

	// PublishOutbound broadcasts an agent event or response batch.
	PublishOutbound(ctx context.Context, out *Outbound) error

	// Outbound delivers published agent output to the gateway. The channel
	// closes when ctx is cancelled.
	Outbound(ctx context.Context) (<-chan *Outbound, error)

	Close() error
}
