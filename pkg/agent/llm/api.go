// Package llm defines the language model client contract shared by all
// provider implementations. The pipeline consumes providers only through
// LLMClient; everything provider-specific stays behind it.
package llm

import (
	"context"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	Temperature float32
	MaxTokens   int
}

// Usage reports token consumption for a completion. Providers that do not
// report usage leave both fields zero; callers fall back to estimation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// LLMClient defines the interface for language model interactions.
// Implementations must be single-shot: no conversation state is carried
// between calls.
type LLMClient interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// SingleUserRequest builds the common single-prompt request shape used by the
// router and generator: one user message, explicit temperature and cap.
func SingleUserRequest(prompt string, temperature float32, maxTokens int) CompletionRequest {
	return CompletionRequest{
		Messages:    []CompletionMessage{NewUserMessage(prompt)},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
