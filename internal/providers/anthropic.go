package providers

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/osa-run/osa/pkg/models"
)

// Anthropic implements LLMProvider over github.com/anthropics/anthropic-sdk-go.
// Its ChatStream synthesizes the callback protocol from one synchronous
// Messages.New call: real incremental SSE relay is only built for the
// OpenAI-compatible adapter to keep this reference
// tractable, but the streaming *contract* — ordered text/tool-use deltas
// followed by one Done event — is identical either way from the Session
// Reasoning Loop's point of view.
type Anthropic struct {
	client       anthropic.Client
	defaultModel string
	models       []Model
	thinking     bool
}

// NewAnthropic builds an Anthropic-backed provider.
func NewAnthropic(apiKey, defaultModel string, models []Model, enableThinking bool) *Anthropic {
	return &Anthropic{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
		models:       models,
		thinking:     enableThinking,
	}
}

func (p *Anthropic) Name() string          { return "anthropic" }
func (p *Anthropic) Models() []Model       { return p.models }
func (p *Anthropic) SupportsTools() bool   { return true }
func (p *Anthropic) SupportsThinking() bool { return p.thinking }

func (p *Anthropic) convertMessages(msgs []models.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var content []anthropic.ContentBlockParamUnion
		switch m.Role {
		case models.RoleTool:
			content = append(content, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		default:
			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Arguments, &input)
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
		}
		if len(content) == 0 {
			continue
		}
		if m.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result
}

func (p *Anthropic) buildParams(req CompletionRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  p.convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{}, t.Name,
		))
	}
	if p.thinking && req.EnableThinking {
		budget := int64(req.ThinkingBudgetTokens)
		if budget <= 0 {
			budget = 4096
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}
	return params
}

func (p *Anthropic) Chat(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	params := p.buildParams(req)
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResult{}, &Error{Reason: classifyAnthropicErr(err), Provider: "anthropic", Model: req.Model, Message: err.Error(), Cause: err}
	}
	return fromAnthropicMessage(msg), nil
}

func fromAnthropicMessage(msg *anthropic.Message) CompletionResult {
	result := CompletionResult{
		Usage: Usage{InputTokens: msg.Usage.InputTokens, OutputTokens: msg.Usage.OutputTokens},
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Content += variant.Text
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			result.ToolCalls = append(result.ToolCalls, models.ToolCall{
				ID: variant.ID, Name: variant.Name, Arguments: args,
			})
		case anthropic.ThinkingBlock:
			result.ThinkingBlocks = append(result.ThinkingBlocks, models.ThinkingBlock{
				Text: variant.Thinking, Signature: variant.Signature,
			})
		}
	}
	return result
}

// ChatStream synthesizes the streaming contract from one blocking call
// (see the type doc comment for why).
func (p *Anthropic) ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback) error {
	result, err := p.Chat(ctx, req)
	if err != nil {
		return err
	}
	if result.Content != "" {
		cb(StreamDelta{TextDelta: result.Content})
	}
	for _, tb := range result.ThinkingBlocks {
		cb(StreamDelta{ThinkingDelta: tb.Text})
	}
	for _, tc := range result.ToolCalls {
		cb(StreamDelta{ToolUseStart: &ToolUseStart{ID: tc.ID, Name: tc.Name}})
	}
	cb(StreamDelta{Done: &result})
	return nil
}

func classifyAnthropicErr(err error) FailoverReason {
	if IsContextOverflow(err) {
		return FailoverContextOverflow
	}
	var apiErr *anthropic.Error
	if ok := asAnthropicError(err, &apiErr); ok {
		switch apiErr.StatusCode {
		case 401, 403:
			return FailoverAuth
		case 429:
			return FailoverRateLimit
		case 400:
			return FailoverInvalidRequest
		}
		if apiErr.StatusCode >= 500 {
			return FailoverServerError
		}
	}
	return FailoverUnknown
}

func asAnthropicError(err error, target **anthropic.Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*anthropic.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
