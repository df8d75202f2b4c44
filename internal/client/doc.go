// Package client is the application-level face of the agent-conversation
// protocol: session membership, turn delivery with request/response
// semantics, and session migration relay.
//
// # Overview
//
// A Client wraps a channel.Channel (or any Transport) and turns the
// fire-and-forget envelope stream into typed operations:
//
//	cli := client.New(ch, client.Options{})
//	ok, _ := cli.JoinSession(ctx, sessionID)
//	ack, err := cli.Send(ctx, protocol.ChatMessage{...})
//
// # Membership
//
// JoinSession and LeaveSession short-circuit to success=false with no
// network traffic while the channel is not ready; membership is never
// queued. Both wait for a server ack bounded by the caller's context.
// Re-joining after a reconnect is the caller's responsibility, driven by
// watching the channel's ready transitions.
//
// # Turn delivery
//
// Send registers the turn in a pending registry keyed by session id, then
// emits send-message. The matching message-received or message-error event
// settles the registration; settlement is one-shot and mutually exclusive,
// so a later stray ack for the same session cannot touch an already-settled
// call. Every Send is bounded by a mandatory ack timeout: if the gateway
// never answers, the call fails with ErrAckTimeout and the registration is
// removed, so stale entries cannot accumulate over the channel's lifetime.
//
// At most one turn per session may be in flight; a second Send for the same
// session fails with ErrTurnInFlight.
//
// # Migration
//
// When the gateway promotes a provisional session it emits session-created.
// The client rebinds any in-flight turn from the old id to the new one, then
// relays the notice to every registered migration observer exactly once.
// The relay is unfiltered; observers decide whether the old id concerns
// them.
package client
