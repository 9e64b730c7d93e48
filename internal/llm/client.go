// Package llm defines the chat-completion client interface and the
// OpenRouter-backed implementation with retry.
package llm

import (
	"context"
	"fmt"
)

// Role constants for messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Immutable after construction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a Complete call. The system prompt is
// sent as the first message, followed by the history in order.
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Client is the interface the conversation pipeline talks to.
type Client interface {
	// Complete sends a request and returns the reply, retrying transient
	// failures internally. It resolves to either a reply or a terminal
	// *Error; it never returns partial results.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Error is the terminal failure surfaced after the retry budget is spent.
type Error struct {
	Exhausted bool
	Attempts  int
	Err       error // last underlying cause
}

func (e *Error) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("llm: giving up after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("llm: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
