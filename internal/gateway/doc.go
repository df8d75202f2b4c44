// Package gateway is the server side of the agent-conversation protocol.
//
// # Overview
//
// The gateway accepts websocket connections, tracks per-session room
// membership, accepts user turns, and fans agent output back out to every
// member of a session's room:
//
//	gw := gateway.New(store, broker, gateway.Options{})
//	go gw.Run(ctx)          // broker -> rooms fan-out
//	mux.Handle("/ws", gw)   // websocket endpoint
//
// # Turn handling
//
// A send-message envelope is processed in four steps: resolve the session
// (promoting provisional or unknown ids into durable store records and
// announcing the swap with session-created), persist the user turn, hand
// the turn to the agent runner through the broker, and acknowledge with
// message-received. Any failure acknowledges with message-error instead;
// the client is never left guessing unless the connection itself died.
//
// Retransmitted turns are recognized by their envelope id and acknowledged
// again without reaching the runner.
//
// # Fan-out
//
// Agent events and terminal response batches arrive from the broker tagged
// with a session id and are broadcast to that session's room. Delivery is
// best effort: a slow consumer's frames are dropped rather than stalling
// the room, and nothing is replayed after a reconnect. Clients pull history
// through the read-only HTTP API mounted by RegisterAPI instead.
package gateway
