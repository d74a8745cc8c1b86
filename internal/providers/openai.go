package providers

import (
	"context"
	"encoding/json"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/osa-run/osa/pkg/models"
)

// OpenAICompatible wraps github.com/sashabaranov/go-openai. It serves
// OpenAI itself as well as any OpenAI-wire-format backend (Groq,
// OpenRouter) by pointing BaseURL at a different host, matching §4.B's
// "wire format for the OpenAI-compatible family is identical across
// members" invariant.
type OpenAICompatible struct {
	client       *openai.Client
	name         string
	defaultModel string
	models       []Model
}

// NewOpenAICompatible builds an adapter. baseURL may be empty to use
// OpenAI's default API host.
func NewOpenAICompatible(name, apiKey, baseURL, defaultModel string, models []Model) *OpenAICompatible {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompatible{
		client:       openai.NewClientWithConfig(cfg),
		name:         name,
		defaultModel: defaultModel,
		models:       models,
	}
}

func (p *OpenAICompatible) Name() string            { return p.name }
func (p *OpenAICompatible) Models() []Model          { return p.models }
func (p *OpenAICompatible) SupportsTools() bool      { return true }
func (p *OpenAICompatible) SupportsThinking() bool   { return false }

func (p *OpenAICompatible) buildRequest(req CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Schema),
			},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Tools:       tools,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}
}

func toOpenAIMessage(m models.Message) openai.ChatCompletionMessage {
	role := string(m.Role)
	out := openai.ChatCompletionMessage{Role: role, Content: m.Content}
	if m.Role == models.RoleTool {
		out.ToolCallID = m.ToolCallID
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			},
		})
	}
	return out
}

func (p *OpenAICompatible) Chat(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return CompletionResult{}, p.wrapErr(req.Model, err)
	}
	return fromOpenAIResponse(resp), nil
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) CompletionResult {
	result := CompletionResult{
		Usage: Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return result
	}
	choice := resp.Choices[0]
	result.Content = choice.Message.Content
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return result
}

func (p *OpenAICompatible) ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback) error {
	oreq := p.buildRequest(req)
	oreq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, oreq)
	if err != nil {
		return p.wrapErr(req.Model, err)
	}
	defer stream.Close()

	var content string
	toolCalls := map[int]*models.ToolCall{}
	var order []int
	var usage Usage

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.wrapErr(req.Model, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content += delta.Content
			cb(StreamDelta{TextDelta: delta.Content})
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			existing, ok := toolCalls[idx]
			if !ok {
				existing = &models.ToolCall{ID: tc.ID, Name: tc.Function.Name}
				toolCalls[idx] = existing
				order = append(order, idx)
				cb(StreamDelta{ToolUseStart: &ToolUseStart{ID: tc.ID, Name: tc.Function.Name}})
			}
			if tc.Function.Arguments != "" {
				existing.Arguments = append(existing.Arguments, []byte(tc.Function.Arguments)...)
				cb(StreamDelta{ToolUseDelta: tc.Function.Arguments})
			}
		}
	}

	final := CompletionResult{Content: content, Usage: usage}
	for _, idx := range order {
		final.ToolCalls = append(final.ToolCalls, *toolCalls[idx])
	}
	cb(StreamDelta{Done: &final})
	return nil
}

func (p *OpenAICompatible) wrapErr(model string, err error) error {
	reason := FailoverUnknown
	var apiErr *openai.APIError
	if e, ok := err.(*openai.APIError); ok {
		apiErr = e
		switch e.HTTPStatusCode {
		case 401, 403:
			reason = FailoverAuth
		case 429:
			reason = FailoverRateLimit
		case 400:
			reason = FailoverInvalidRequest
		default:
			if e.HTTPStatusCode >= 500 {
				reason = FailoverServerError
			}
		}
	}
	if IsContextOverflow(err) {
		reason = FailoverContextOverflow
	}
	status := 0
	if apiErr != nil {
		status = apiErr.HTTPStatusCode
	}
	return &Error{Reason: reason, Provider: p.name, Model: model, Status: status, Message: err.Error(), Cause: err}
}
