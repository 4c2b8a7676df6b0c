// Package llm provides the model-facing abstractions for planning and risk
// assessment: a small chat completion Provider interface, the OpenAI-backed
// implementation under llm/openai, and the planner and assessor built on
// top of them. Model output is always parsed into closed, validated types
// before it can influence the loop.
package llm

import "context"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single chat turn sent to or received from a provider.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication and return plain messages. Parsing
// model output into plans and assessments is the caller's concern; this
// keeps providers reusable and testable independently of loop logic.
type Provider interface {
	// Complete sends messages to the LLM and returns the full response.
	Complete(ctx context.Context, messages []*Message) (*Message, error)

	// GetModel returns the model name being used.
	GetModel() string
}
