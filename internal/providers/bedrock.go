package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/osa-run/osa/pkg/models"
)

// Bedrock implements LLMProvider over AWS Bedrock's Converse API. Like
// Anthropic, it synthesizes the streaming contract from one blocking call
// rather than relaying ConverseStream's event stream.
type Bedrock struct {
	client       *bedrockruntime.Client
	defaultModel string
	models       []Model
}

// BedrockCredentials carries explicit AWS credentials; leave fields empty to
// fall back to the default credential chain (env, shared config, IAM role).
type BedrockCredentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewBedrock builds a Bedrock-backed provider.
func NewBedrock(ctx context.Context, creds BedrockCredentials, defaultModel string, models []Model) (*Bedrock, error) {
	region := creds.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	return &Bedrock{
		client:       bedrockruntime.NewFromConfig(cfg),
		defaultModel: defaultModel,
		models:       models,
	}, nil
}

func (p *Bedrock) Name() string           { return "bedrock" }
func (p *Bedrock) Models() []Model        { return p.models }
func (p *Bedrock) SupportsTools() bool    { return true }
func (p *Bedrock) SupportsThinking() bool { return false }

func (p *Bedrock) convertMessages(msgs []models.Message) []types.Message {
	result := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			continue
		}

		var content []types.ContentBlock
		switch m.Role {
		case models.RoleTool:
			content = append(content, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(m.ToolCallID),
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: m.Content}},
				},
			})
		default:
			if m.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var input any
				if err := json.Unmarshal(tc.Arguments, &input); err != nil {
					input = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			}
		}
		if len(content) == 0 {
			continue
		}

		role := types.ConversationRoleUser
		if m.Role == models.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}
	return result
}

func (p *Bedrock) Chat(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: p.convertMessages(req.Messages),
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(min(req.MaxTokens, math.MaxInt32))
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(maxTokens)}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return CompletionResult{}, p.wrapErr(model, err)
	}
	return fromBedrockOutput(out), nil
}

func fromBedrockOutput(out *bedrockruntime.ConverseOutput) CompletionResult {
	var result CompletionResult
	if out.Usage != nil {
		result.Usage = Usage{
			InputTokens:  int64(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int64(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	msgOut, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return result
	}
	for _, block := range msgOut.Value.Content {
		switch variant := block.(type) {
		case *types.ContentBlockMemberText:
			result.Content += variant.Value
		case *types.ContentBlockMemberToolUse:
			var args json.RawMessage
			if b, err := variant.Value.Input.MarshalSmithyDocument(); err == nil {
				args = b
			}
			result.ToolCalls = append(result.ToolCalls, models.ToolCall{
				ID: aws.ToString(variant.Value.ToolUseId), Name: aws.ToString(variant.Value.Name), Arguments: args,
			})
		}
	}
	return result
}

// ChatStream synthesizes the callback protocol from one Converse call (see
// the type doc comment).
func (p *Bedrock) ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback) error {
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

func (p *Bedrock) wrapErr(model string, err error) error {
	reason := FailoverUnknown
	if IsContextOverflow(err) {
		reason = FailoverContextOverflow
	}
	var apiErr smithy.APIError
	if errorsAs(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException":
			reason = FailoverRateLimit
		case "AccessDeniedException", "UnrecognizedClientException":
			reason = FailoverAuth
		case "ValidationException":
			reason = FailoverInvalidRequest
		case "ModelNotReadyException", "ModelTimeoutException":
			reason = FailoverModelUnavailable
		case "InternalServerException", "ServiceUnavailableException":
			reason = FailoverServerError
		}
	}
	return &Error{Reason: reason, Provider: "bedrock", Model: model, Message: err.Error(), Cause: err}
}

func errorsAs(err error, target *smithy.APIError) bool {
	for err != nil {
		if e, ok := err.(smithy.APIError); ok {
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
