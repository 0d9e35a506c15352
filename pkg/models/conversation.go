package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation is an owner-scoped chat thread. It is created implicitly the
// first time a user sends a message without a conversation id.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single immutable entry in a conversation, ordered by CreatedAt.
// Assistant messages carry the tool-call audit trail for the turn that
// produced them; a message is only persisted after its tool calls executed and
// were verified.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	OwnerID        string     `json:"owner_id"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	ToolCalls      []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToolCall records one tool invocation and its outcome within a turn.
// Exactly one of Result or Error is set after execution.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`

	// Verified is true when the post-mutation read-back confirmed the
	// expected state change. Read-only calls are verified trivially.
	Verified bool `json:"verified"`
}
