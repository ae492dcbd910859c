// Package provider abstracts the chat completion backends. The agent talks
// to a Gateway and never sees provider SDK types.
package provider

import (
	"context"
	"errors"
	"iter"

	"github.com/sweetpotato0/pharmacy-assistant/message"
)

var (
	// ErrNotConfigured is returned when a gateway is used without valid
	// credentials.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrNoChoices is returned when a completion comes back without any
	// choices to act on.
	ErrNoChoices = errors.New("completion returned no choices")
)

// Tool choice modes. Auto lets the model decide; None forbids tool calls and
// forces a plain text answer.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// CompletionRequest is a provider-neutral chat completion request.
type CompletionRequest struct {
	Messages    []*message.Message
	Tools       []map[string]any
	ToolChoice  string
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one candidate answer from the model.
type Choice struct {
	Message      *message.Message
	FinishReason string
}

// CompletionResponse is a provider-neutral chat completion result.
type CompletionResponse struct {
	Model   string
	Choices []*Choice
	Usage   Usage
}

// Gateway is a chat completion backend.
type Gateway interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// Configured reports whether usable credentials are present. Callers
	// check this before accepting work so an unconfigured backend fails
	// fast instead of at request time.
	Configured() bool

	// Complete performs one blocking chat completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamText performs a streaming completion and yields content
	// increments as they arrive. A non-nil error ends the sequence.
	StreamText(ctx context.Context, req *CompletionRequest) iter.Seq2[string, error]
}
