// Package store persists conversation sessions and their turn history.
//
// # Overview
//
// The gateway is the sole writer. Sessions are created when a provisional
// session id is promoted on its first turn; turns record the user and agent
// sides of each exchange so a reconnecting client can pull history instead
// of relying on event replay (the protocol does not replay missed events).
//
// # Implementations
//
//   - SQLiteStore: the production store, modernc.org/sqlite with WAL mode
//     and automatic schema creation
//
// The Store interface exists so the gateway can be tested against a
// temporary database file without further mocking.
package store
