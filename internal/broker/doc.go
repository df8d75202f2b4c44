// Package broker carries traffic between the gateway and the agent runner
// process.
//
// # Overview
//
// Inbound turns flow gateway -> runner; outbound agent events and terminal
// response batches flow runner -> gateway, which fans them out to the
// session's websocket room. The two directions have different shapes:
//
//   - Inbound uses a work-queue shape (each turn consumed once)
//   - Outbound uses pub/sub (every gateway instance sees every message and
//     delivers to whichever rooms it hosts)
//
// # Implementations
//
//   - RedisBroker: Redis Streams for the inbound queue, Redis pub/sub for
//     the outbound fan-in; the production choice when gateway and runner
//     are separate processes
//   - MemoryBroker: plain channels, for tests and single-binary development
package broker
