// Package activity derives a compact "what is the agent doing" view from a
// session's agent event log.
//
// Reduce is a pure function of the full event list: it is re-run on every
// mutation of the log rather than updated incrementally, so the derived
// state can never diverge from a replayed log. Todo snapshots are
// full-replacement: only the latest todos_updated event counts, earlier
// snapshots are discarded rather than merged.
//
// The turn-ended input is accepted alongside the terminal event types:
// event delivery across a flaky channel is not guaranteed end-to-end, so a
// caller that has seen the terminal response batch can end the turn even if
// the agent_completed event was lost.
package activity
