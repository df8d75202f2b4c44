// Package channel provides the persistent duplex connection underlying the
// agent-conversation protocol, with automatic reconnection and an inbound
// event multiplexer.
//
// # Overview
//
// A Channel owns one logical connection to the gateway. It is constructed
// with an explicit Dialer (dependency-injected, never a package singleton)
// and starts connecting immediately:
//
//	ch := channel.New(&channel.WebSocketDialer{URL: url}, channel.Options{})
//	defer ch.Close()
//
// # Lifecycle
//
// Connection policy: a bounded number of automatic attempts with a fixed
// inter-attempt delay. On success the attempt counter resets; when the
// budget is exhausted the channel stops retrying and reports StateFailed to
// watchers instead of returning an error, so the caller's UI can stay usable
// without live updates. A close frame sent by the server is redialed
// immediately rather than waiting out the retry delay. Close is terminal.
//
// State transitions are observable via Watch; callers use the transition to
// StateReady to re-join sessions after a reconnect, since the channel itself
// never replays membership.
//
// # Multiplexing
//
// Inbound envelopes are routed two ways:
//
//   - envelopes carrying a correlation ID settle the matching Request call
//   - everything else is fanned out to handlers registered with On
//
// Request is used for membership operations that want a direct ack; Emit is
// fire-and-forget and underlies send-message, whose acknowledgement travels
// as a separate named event correlated by session id (see package client).
package channel
