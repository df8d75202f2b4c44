// ABOUTME: Pure reducer from an agent event log to the current activity state.
// ABOUTME: Tool progress, latest todo snapshot, recent events, active flag.

package activity

import (
	"math"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

// recentWindow is how many trailing events the state keeps for display.
const recentWindow = 3

// State is the derived activity view for one session. It is recomputed
// from scratch on every Reduce call and never mutated in place.
type State struct {
	IsActive            bool
	RecentEvents        []protocol.AgentEvent
	ToolProgressPercent int
	ActiveTodos         []protocol.Todo
	CompletedTodos      []protocol.Todo
	CurrentThought      string
}

// Reduce derives the activity state from a session's full event log.
// turnEnded is the caller's explicit end-of-turn signal, redundant with the
// terminal event types; either ends the turn.
func Reduce(events []protocol.AgentEvent, turnEnded bool) State {
	state := State{IsActive: !turnEnded}

	start := len(events) - recentWindow
	if start < 0 {
		start = 0
	}
	state.RecentEvents = append(state.RecentEvents, events[start:]...)

	var started, finished int
	var latestTodos []protocol.Todo
	for _, ev := range events {
		switch ev.Type {
		case protocol.ToolStarted:
			started++
		case protocol.ToolCompleted, protocol.ToolFailed:
			finished++
		case protocol.TodosUpdated:
			// Full replacement snapshot; earlier lists are discarded.
			if ev.Data != nil {
				latestTodos = ev.Data.Todos
			} else {
				latestTodos = nil
			}
		case protocol.AgentThinking:
			if ev.Data != nil {
				state.CurrentThought = ev.Data.Message
			}
		}
		// Once a terminal event is observed the turn stays ended,
		// regardless of later spurious events.
		if ev.Type.Terminal() {
			state.IsActive = false
		}
	}

	state.ToolProgressPercent = toolProgress(started, finished)

	for _, todo := range latestTodos {
		switch todo.Status {
		case protocol.TodoInProgress:
			state.ActiveTodos = append(state.ActiveTodos, todo)
		case protocol.TodoCompleted:
			state.CompletedTodos = append(state.CompletedTodos, todo)
		}
	}

	return state
}

// toolProgress is the percentage of started tools that have finished,
// clamped to [0,100]. Zero when no tool has started, whatever the finish
// counts claim (malformed input guard).
func toolProgress(started, finished int) int {
	if started <= 0 {
		return 0
	}
	pct := int(math.Round(float64(finished) / float64(started) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
