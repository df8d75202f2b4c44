// Package protocol defines the wire contract for the agent-conversation
// protocol spoken between browser/CLI clients and the agentwire gateway.
//
// # Overview
//
// Everything that crosses the connection is a JSON Envelope carrying a named
// event and an opaque payload. The payload types here are the full set of
// application messages:
//
//   - ChatMessage: one user turn submitted to the agent
//   - DeliveryAck / MessageError: the synchronous acknowledgement for a turn,
//     correlated by session id
//   - MigrationNotice: server-initiated promotion of a provisional session id
//     to a durable one
//   - AgentEvent: one entry in the per-session agent progress stream
//   - ResponseBatch: the terminal answer payload(s) for a turn
//
// # Envelopes and acks
//
// Envelope.ID is a transport-level token. On join-session and leave-session
// it correlates the request with its EventAck, which echoes the id back. On
// send-message it serves as an idempotency key for retransmit detection;
// the delivery ack is a separate message-received event correlated by
// session id, so any client subscribed to the session can observe the
// outcome.
//
// # Sessions
//
// Session ids are opaque strings. Ids carrying the "new-" prefix are
// provisional: the gateway replaces them with a durable id on the first turn
// and announces the swap with a session-created MigrationNotice. The gateway
// is the sole authority on promotion.
//
// # Agent events
//
// AgentEvent.Type is drawn from a fixed tag set (agent_started through
// agent_failed). Events for one session are strictly ordered; data carried on
// a todos_updated event is a full replacement snapshot of the todo list, not
// a delta.
package protocol
