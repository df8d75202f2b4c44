// ABOUTME: Agent progress event types streamed per session during a turn.
// ABOUTME: Fixed tag set, todo snapshots, and terminal-event classification.

package protocol

import "time"

// EventType tags one entry in the agent progress stream.
type EventType string

// The fixed agent event tag set.
const (
	AgentStarted      EventType = "agent_started"
	AgentThinking     EventType = "agent_thinking"
	ToolStarted       EventType = "tool_started"
	ToolProgress      EventType = "tool_progress"
	ToolCompleted     EventType = "tool_completed"
	ToolFailed        EventType = "tool_failed"
	SubagentStarted   EventType = "subagent_started"
	SubagentCompleted EventType = "subagent_completed"
	ResearchFindings  EventType = "research_findings"
	TodosUpdated      EventType = "todos_updated"
	AgentCompleted    EventType = "agent_completed"
	AgentFailed       EventType = "agent_failed"
)

// Terminal reports whether the event type ends a turn.
func (t EventType) Terminal() bool {
	return t == AgentCompleted || t == AgentFailed
}

// Valid reports whether t is a member of the fixed tag set.
func (t EventType) Valid() bool {
	switch t {
	case AgentStarted, AgentThinking, ToolStarted, ToolProgress,
		ToolCompleted, ToolFailed, SubagentStarted, SubagentCompleted,
		ResearchFindings, TodosUpdated, AgentCompleted, AgentFailed:
		return true
	}
	return false
}

// TodoStatus is the lifecycle state of one todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Todo is one item in an agent's working plan.
type Todo struct {
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// EventData carries the optional payload of an AgentEvent. Which fields are
// populated depends on the event type; Todos appears only on todos_updated
// and is a full replacement snapshot.
type EventData struct {
	Message  string `json:"message,omitempty"`
	ToolName string `json:"toolName,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
	Findings string `json:"findings,omitempty"`
	Todos    []Todo `json:"todos,omitempty"`
}

// AgentEvent is one entry in the per-session agent progress stream. Events
// for a single session arrive in the order the agent emitted them.
type AgentEvent struct {
	Type      EventType  `json:"type"`
	SessionID string     `json:"sessionId"`
	Timestamp time.Time  `json:"timestamp"`
	Data      *EventData `json:"data,omitempty"`
}
