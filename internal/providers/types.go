// Package providers implements the Provider Router (§4.B): a shared
// LLMProvider contract, an OpenAI-compatible wire adapter, and a router
// that maintains a default provider plus a fallback chain auto-derived
// from available credentials.
package providers

import (
	"context"

	"github.com/osa-run/osa/pkg/models"
)

// Model describes one model a provider exposes.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}

// CompletionRequest is the canonical shape every provider adapter accepts.
type CompletionRequest struct {
	Model                string
	System               string
	Messages             []models.Message
	Tools                []ToolSpec
	MaxTokens            int
	Temperature          float64
	EnableThinking       bool
	ThinkingBudgetTokens int
}

// ToolSpec is the function-calling shape passed to a provider; it is the
// router's projection of a registered tool, not the tool implementation.
type ToolSpec struct {
	Name        string
	Description string
	Schema      []byte // JSON Schema
}

// StreamDelta is one ordered event from chat_stream's callback (§4.B).
type StreamDelta struct {
	TextDelta     string
	ThinkingDelta string
	ToolUseStart  *ToolUseStart
	ToolUseDelta  string
	Done          *CompletionResult
}

// ToolUseStart marks the beginning of a streamed tool-use block.
type ToolUseStart struct {
	ID   string
	Name string
}

// CompletionResult is the final aggregated response.
type CompletionResult struct {
	Content        string
	ToolCalls      []models.ToolCall
	ThinkingBlocks []models.ThinkingBlock
	Usage          Usage
}

// Usage is token accounting returned with a completion.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// StreamCallback receives ordered deltas during chat_stream.
type StreamCallback func(StreamDelta)

// LLMProvider is the contract every backend (Anthropic, OpenAI-compatible,
// Bedrock, Gemini, a local provider) implements (§4.B).
type LLMProvider interface {
	Name() string
	Models() []Model
	SupportsTools() bool
	SupportsThinking() bool

	Chat(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback) error
}
