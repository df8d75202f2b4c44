// Package dedupe provides a TTL-bounded seen-key cache. The gateway uses it
// to drop retransmitted send-message envelopes after a client reconnect, so
// one user turn never reaches the agent twice.
package dedupe
