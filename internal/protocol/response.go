// ABOUTME: Terminal turn output payloads: agent answers, references, tool calls.
// ABOUTME: A ResponseBatch with IsComplete=true ends one turn's stream.

package protocol

import "encoding/json"

// Reference points at a source the agent drew on for an answer.
type Reference struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Source      string         `json:"source,omitempty"`
	Relevance   float64        `json:"relevance,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToolCall records one tool invocation made while producing an answer.
type ToolCall struct {
	ToolName string          `json:"toolName"`
	Input    json.RawMessage `json:"input,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
}

// AgentResponse is a single answer fragment from the agent.
type AgentResponse struct {
	Output            string      `json:"output"`
	References        []Reference `json:"references,omitempty"`
	ToolCalls         []ToolCall  `json:"toolCalls,omitempty"`
	KnowledgeBaseUsed bool        `json:"knowledgeBaseUsed,omitempty"`
	AppointmentBooked bool        `json:"appointmentBooked,omitempty"`
}

// ResponseBatch is the terminal payload for a turn. IsComplete=true marks the
// end of that turn's event stream.
type ResponseBatch struct {
	Responses      []AgentResponse `json:"responses"`
	IsComplete     bool            `json:"isComplete"`
	SessionID      string          `json:"sessionId"`
	ConversationID string          `json:"conversationId"`
}
