package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/genai"

	"github.com/osa-run/osa/pkg/models"
)

// Gemini implements LLMProvider over google.golang.org/genai. Like the
// Anthropic and Bedrock adapters it synthesizes the streaming contract from
// one blocking GenerateContent call.
type Gemini struct {
	client       *genai.Client
	defaultModel string
	models       []Model
}

// NewGemini builds a Gemini-backed provider against the public Gemini API.
func NewGemini(ctx context.Context, apiKey, defaultModel string, models []Model) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Gemini{client: client, defaultModel: defaultModel, models: models}, nil
}

func (p *Gemini) Name() string           { return "gemini" }
func (p *Gemini) Models() []Model        { return p.models }
func (p *Gemini) SupportsTools() bool    { return true }
func (p *Gemini) SupportsThinking() bool { return false }

func (p *Gemini) convertMessages(msgs []models.Message) []*genai.Content {
	var result []*genai.Content
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			continue
		}

		content := &genai.Content{}
		switch m.Role {
		case models.RoleAssistant:
			content.Role = genai.RoleModel
		default:
			content.Role = genai.RoleUser
		}

		if m.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal(tc.Arguments, &args); err != nil {
				args = map[string]any{}
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
			})
		}
		if m.Role == models.RoleTool {
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: m.ToolCallID, Response: response},
			})
		}

		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result
}

func (p *Gemini) buildConfig(req CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(req.MaxTokens, math.MaxInt32))
	}
	for _, t := range req.Tools {
		var schema genai.Schema
		_ = json.Unmarshal(t.Schema, &schema)
		config.Tools = append(config.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name: t.Name, Description: t.Description, Parameters: &schema,
			}},
		})
	}
	return config
}

func (p *Gemini) Chat(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, p.convertMessages(req.Messages), p.buildConfig(req))
	if err != nil {
		return CompletionResult{}, p.wrapErr(model, err)
	}
	return fromGeminiResponse(resp), nil
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) CompletionResult {
	var result CompletionResult
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return result
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			result.ToolCalls = append(result.ToolCalls, models.ToolCall{
				Name: part.FunctionCall.Name, Arguments: args,
			})
		}
	}
	return result
}

// ChatStream synthesizes the callback protocol from one GenerateContent
// call (see the type doc comment).
func (p *Gemini) ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback) error {
	result, err := p.Chat(ctx, req)
	if err != nil {
		return err
	}
	if result.Content != "" {
		cb(StreamDelta{TextDelta: result.Content})
	}
	for _, tc := range result.ToolCalls {
		cb(StreamDelta{ToolUseStart: &ToolUseStart{ID: tc.ID, Name: tc.Name}})
	}
	cb(StreamDelta{Done: &result})
	return nil
}

func (p *Gemini) wrapErr(model string, err error) error {
	reason := FailoverUnknown
	if IsContextOverflow(err) {
		reason = FailoverContextOverflow
	}
	var apiErr genai.APIError
	if geminiErrorAs(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			reason = FailoverAuth
		case 429:
			reason = FailoverRateLimit
		case 400:
			reason = FailoverInvalidRequest
		default:
			if apiErr.Code >= 500 {
				reason = FailoverServerError
			}
		}
	}
	return &Error{Reason: reason, Provider: "gemini", Model: model, Message: err.Error(), Cause: err}
}

func geminiErrorAs(err error, target *genai.APIError) bool {
	for err != nil {
		if e, ok := err.(genai.APIError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
