package agent

import (
	"context"
	"encoding/json"
)

// LLMProvider defines the interface for hosted completion backends.
//
// Implementations handle the specifics of communicating with different LLM
// APIs (OpenAI-compatible, Anthropic) while presenting a unified
// request/response interface to the orchestrator.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Multiple goroutines may
// call Complete() simultaneously for different turns.
type LLMProvider interface {
	// Complete sends the transcript plus tool schemas and returns the
	// model's reply. The reply may carry structured tool invocations,
	// free text, or both. Implementations must never fabricate a reply
	// on transport failure.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Name returns the provider name.
	Name() string
}

// CompletionRequest contains all parameters for one completion call.
type CompletionRequest struct {
	// Model specifies which model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// System is the system prompt that sets the assistant's behavior.
	System string `json:"system,omitempty"`

	// Messages contains the conversation history in chronological order,
	// ending with the new user message.
	Messages []CompletionMessage `json:"messages"`

	// Tools defines the tools the model may request to execute.
	Tools []ToolDefinition `json:"tools,omitempty"`

	// MaxTokens limits the generated response length. If 0, the
	// provider's default is used.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionMessage represents a single transcript message.
// Role values: "user", "assistant", "tool".
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCallID ties a "tool" role message back to the invocation it
	// answers, for providers that thread tool results through messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition is the schema advertised to the model for one tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolInvocation is a single tool execution request recovered from the
// model's reply, either structured or extracted from free text. The owner
// identity is never part of an invocation; the executor injects it.
type ToolInvocation struct {
	// ID is the provider-assigned call id, or a generated one for
	// invocations recovered from free text.
	ID string `json:"id"`

	// Name is the requested tool name, unvalidated until dispatch.
	Name string `json:"name"`

	// Arguments is the raw JSON argument object.
	Arguments json.RawMessage `json:"arguments"`
}

// Completion is the model's reply to one completion call.
type Completion struct {
	// Text is the free-text portion of the reply. May be empty when the
	// model only requested tools.
	Text string `json:"text,omitempty"`

	// ToolCalls contains structured invocations, in request order.
	// Empty when the backend answered with text only.
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`

	// StopReason is the provider's termination reason, informational only.
	StopReason string `json:"stop_reason,omitempty"`
}
