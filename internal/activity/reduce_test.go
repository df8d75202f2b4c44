// ABOUTME: Tests for the activity reducer: active flag, progress clamp,
// ABOUTME: full-replacement todo snapshots, and recent-event windowing.

package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuet-ai/agentwire/internal/protocol"
)

func ev(t protocol.EventType) protocol.AgentEvent {
	return protocol.AgentEvent{Type: t, SessionID: "sess-1", Timestamp: time.Now()}
}

func evData(t protocol.EventType, data protocol.EventData) protocol.AgentEvent {
	e := ev(t)
	e.Data = &data
	return e
}

func TestReduce_ActiveUntilTerminalEvent(t *testing.T) {
	events := []protocol.AgentEvent{
		ev(protocol.AgentStarted),
		ev(protocol.ToolStarted),
		ev(protocol.ToolCompleted),
	}
	assert.True(t, Reduce(events, false).IsActive)

	events = append(events, ev(protocol.AgentCompleted))
	assert.False(t, Reduce(events, false).IsActive)

	// Spurious events after the terminal one do not revive the turn.
	events = append(events, ev(protocol.ToolStarted), ev(protocol.AgentThinking))
	assert.False(t, Reduce(events, false).IsActive)
}

func TestReduce_AgentFailedEndsTurn(t *testing.T) {
	events := []protocol.AgentEvent{ev(protocol.AgentStarted), ev(protocol.AgentFailed)}
	assert.False(t, Reduce(events, false).IsActive)
}

func TestReduce_ExplicitTurnEndedSignalWins(t *testing.T) {
	// No terminal event in the log (lost on a flaky channel), but the caller
	// saw the terminal response batch.
	events := []protocol.AgentEvent{ev(protocol.AgentStarted), ev(protocol.ToolStarted)}
	assert.True(t, Reduce(events, false).IsActive)
	assert.False(t, Reduce(events, true).IsActive)
}

func TestReduce_ToolProgress(t *testing.T) {
	tests := []struct {
		name   string
		events []protocol.AgentEvent
		want   int
	}{
		{"no events", nil, 0},
		{"no tools started", []protocol.AgentEvent{ev(protocol.AgentStarted)}, 0},
		{
			"half done",
			[]protocol.AgentEvent{
				ev(protocol.ToolStarted), ev(protocol.ToolStarted),
				ev(protocol.ToolCompleted),
			},
			50,
		},
		{
			"failures count as finished",
			[]protocol.AgentEvent{
				ev(protocol.ToolStarted), ev(protocol.ToolStarted),
				ev(protocol.ToolCompleted), ev(protocol.ToolFailed),
			},
			100,
		},
		{
			"one of three",
			[]protocol.AgentEvent{
				ev(protocol.ToolStarted), ev(protocol.ToolStarted), ev(protocol.ToolStarted),
				ev(protocol.ToolCompleted),
			},
			33,
		},
		{
			"completions without starts stay clamped",
			[]protocol.AgentEvent{ev(protocol.ToolCompleted), ev(protocol.ToolFailed)},
			0,
		},
		{
			"more completions than starts clamp to 100",
			[]protocol.AgentEvent{
				ev(protocol.ToolStarted),
				ev(protocol.ToolCompleted), ev(protocol.ToolCompleted), ev(protocol.ToolCompleted),
			},
			100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.events, false).ToolProgressPercent
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestReduce_LatestTodoSnapshotWins(t *testing.T) {
	first := []protocol.Todo{{Content: "outline report", Status: protocol.TodoInProgress}}
	second := []protocol.Todo{
		{Content: "gather sources", Status: protocol.TodoCompleted},
		{Content: "draft summary", Status: protocol.TodoInProgress},
		{Content: "review tone", Status: protocol.TodoPending},
	}

	events := []protocol.AgentEvent{
		evData(protocol.TodosUpdated, protocol.EventData{Todos: first}),
		evData(protocol.TodosUpdated, protocol.EventData{Todos: second}),
	}

	state := Reduce(events, false)
	require.Len(t, state.ActiveTodos, 1)
	assert.Equal(t, "draft summary", state.ActiveTodos[0].Content)
	require.Len(t, state.CompletedTodos, 1)
	assert.Equal(t, "gather sources", state.CompletedTodos[0].Content)

	// The earlier snapshot's item must not survive as a union.
	for _, todo := range append(state.ActiveTodos, state.CompletedTodos...) {
		assert.NotEqual(t, "outline report", todo.Content)
	}
}

func TestReduce_NoTodosUpdatedMeansEmptyLists(t *testing.T) {
	state := Reduce([]protocol.AgentEvent{ev(protocol.AgentStarted)}, false)
	assert.Empty(t, state.ActiveTodos)
	assert.Empty(t, state.CompletedTodos)
}

func TestReduce_RecentEventsKeepsLastThreeInOrder(t *testing.T) {
	events := []protocol.AgentEvent{
		ev(protocol.AgentStarted),
		ev(protocol.ToolStarted),
		ev(protocol.ToolCompleted),
		ev(protocol.AgentThinking),
	}
	state := Reduce(events, false)
	require.Len(t, state.RecentEvents, 3)
	assert.Equal(t, protocol.ToolStarted, state.RecentEvents[0].Type)
	assert.Equal(t, protocol.ToolCompleted, state.RecentEvents[1].Type)
	assert.Equal(t, protocol.AgentThinking, state.RecentEvents[2].Type)

	short := Reduce(events[:2], false)
	assert.Len(t, short.RecentEvents, 2)
}

func TestReduce_CurrentThoughtTracksLatestThinking(t *testing.T) {
	events := []protocol.AgentEvent{
		evData(protocol.AgentThinking, protocol.EventData{Message: "searching meetings"}),
		evData(protocol.AgentThinking, protocol.EventData{Message: "summarizing findings"}),
	}
	assert.Equal(t, "summarizing findings", Reduce(events, false).CurrentThought)
}

func TestReduce_IsPureAcrossCalls(t *testing.T) {
	events := []protocol.AgentEvent{
		ev(protocol.ToolStarted),
		evData(protocol.TodosUpdated, protocol.EventData{
			Todos: []protocol.Todo{{Content: "draft summary", Status: protocol.TodoInProgress}},
		}),
	}

	a := Reduce(events, false)
	b := Reduce(events, false)
	assert.Equal(t, a, b)
}
