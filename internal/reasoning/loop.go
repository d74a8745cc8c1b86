// Package reasoning implements the Session Reasoning Loop (§4.H): a
// bounded ReAct driver run synchronously per call, serialized by the
// session actor that owns it.
package reasoning

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/compaction"
	"github.com/osa-run/osa/internal/providers"
	"github.com/osa-run/osa/internal/sandbox"
	"github.com/osa-run/osa/pkg/models"
)

const defaultMaxIterations = 30
const maxContextOverflowRetries = 3

var tracer = otel.Tracer("osa/reasoning")

// Router is the subset of providers.Router the loop needs, so tests can
// substitute a fake without standing up real provider credentials.
type Router interface {
	ChatStream(ctx context.Context, req providers.CompletionRequest, cb providers.StreamCallback, opts providers.ChatOpts) error
}

// Config parameterizes one Loop.
type Config struct {
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	EnableThinking bool
}

// Options override per-call behavior (§4.H "opts").
type Options struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Result is process_message's synchronous return value.
type Result struct {
	Content        string
	ThinkingBlocks []models.ThinkingBlock
	Meta           models.LastRunMeta
}

// Loop drives one session's bounded ReAct reasoning (§4.H step 8).
type Loop struct {
	router    Router
	registry  *sandbox.Registry
	compactor *compaction.Compactor
	bus       *bus.Bus
	cfg       Config
	logger    *slog.Logger
}

// New builds a Loop.
func New(router Router, registry *sandbox.Registry, compactor *compaction.Compactor, b *bus.Bus, cfg Config, logger *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{router: router, registry: registry, compactor: compactor, bus: b, cfg: cfg, logger: logger.With("component", "reasoning")}
}

// Run executes the bounded ReAct loop over messages (already including
// the newly-appended user turn and the assembled system message) and
// returns the final assistant content (§4.H steps 6-10). maxContextTokens
// is the provider's context window, used to drive compaction-and-retry
// on overflow.
func (l *Loop) Run(ctx context.Context, sessionID string, messages []models.Message, tools []providers.ToolSpec, opts Options, maxContextTokens int) (Result, error) {
	iteration := 0
	overflowRetries := 0
	var turn []models.Message // assistant messages produced by this call

	for iteration < l.cfg.MaxIterations {
		iterCtx, span := tracer.Start(ctx, "reasoning.iteration", trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("iteration", iteration),
		))

		l.bus.Emit(bus.Event{Kind: bus.KindLLMRequest, SessionID: sessionID, Payload: map[string]any{"iteration": iteration}})
		start := time.Now()

		req := providers.CompletionRequest{
			Messages:             messages,
			Tools:                tools,
			MaxTokens:            firstNonZero(opts.MaxTokens, l.cfg.MaxTokens),
			Temperature:          l.cfg.Temperature,
			EnableThinking:       l.cfg.EnableThinking,
			ThinkingBudgetTokens: 4096,
		}

		var aggregated providers.CompletionResult
		callbackErr := l.router.ChatStream(iterCtx, req, func(d providers.StreamDelta) {
			switch {
			case d.TextDelta != "":
				l.bus.Emit(bus.Event{Kind: bus.KindAgentResponse, SessionID: sessionID, Payload: map[string]any{"text_delta": d.TextDelta}})
			case d.ThinkingDelta != "":
				l.bus.EmitSystem(sessionID, "thinking_delta", map[string]any{"text": d.ThinkingDelta})
			case d.Done != nil:
				aggregated = *d.Done
			}
		}, providers.ChatOpts{Provider: opts.Provider, Model: opts.Model})

		duration := time.Since(start)

		if callbackErr != nil {
			span.RecordError(callbackErr)
			if providers.IsContextOverflow(callbackErr) && overflowRetries < maxContextOverflowRetries {
				overflowRetries++
				messages = l.compactor.MaybeCompact(ctx, messages, maxContextTokens)
				span.End()
				continue
			}
			if providers.IsContextOverflow(callbackErr) {
				span.End()
				return Result{Content: "I've exceeded the context window for this conversation and can't continue without starting fresh."}, nil
			}
			l.logger.Error("provider call failed", "error", callbackErr, "iteration", iteration)
			span.End()
			return Result{Content: "I encountered an error and could not complete this request."}, nil
		}

		l.bus.Emit(bus.Event{Kind: bus.KindLLMResponse, SessionID: sessionID, Payload: map[string]any{
			"duration_ms": duration.Milliseconds(), "usage": aggregated.Usage,
		}})

		if len(aggregated.ToolCalls) == 0 {
			span.End()
			return Result{
				Content:        aggregated.Content,
				ThinkingBlocks: aggregated.ThinkingBlocks,
				Meta:           models.LastRunMeta{Iterations: iteration + 1, ToolsUsed: countToolUses(turn)},
			}, nil
		}

		assistantMsg := models.Message{
			Role:           models.RoleAssistant,
			Content:        aggregated.Content,
			ToolCalls:      aggregated.ToolCalls,
			ThinkingBlocks: aggregated.ThinkingBlocks,
		}
		messages = append(messages, assistantMsg)
		turn = append(turn, assistantMsg)

		for _, tc := range aggregated.ToolCalls {
			messages = append(messages, l.runTool(iterCtx, sessionID, tc))
		}
		span.End()

		iteration++
	}

	return Result{Content: "I wasn't able to finish within the reasoning budget for this turn."}, nil
}

func (l *Loop) runTool(ctx context.Context, sessionID string, tc models.ToolCall) models.Message {
	l.bus.Emit(bus.Event{Kind: bus.KindToolCall, SessionID: sessionID, Payload: map[string]any{
		"phase": "start", "name": tc.Name, "args_hint": hintArgs(tc.Arguments),
	}})
	start := time.Now()

	blocks, err := l.registry.Invoke(ctx, tc.Name, tc.Arguments)
	duration := time.Since(start)

	l.bus.Emit(bus.Event{Kind: bus.KindToolCall, SessionID: sessionID, Payload: map[string]any{
		"phase": "end", "name": tc.Name, "duration_ms": duration.Milliseconds(),
	}})

	content := renderBlocks(blocks)
	if err != nil {
		content = "Error: " + err.Error()
	}
	return models.Message{Role: models.RoleTool, Content: content, ToolCallID: tc.ID}
}

func renderBlocks(blocks []sandbox.ContentBlock) string {
	if len(blocks) == 1 && blocks[0].Type == "text" {
		return blocks[0].Text
	}
	b, _ := json.Marshal(blocks)
	return string(b)
}

func hintArgs(args json.RawMessage) string {
	const maxHint = 120
	s := string(args)
	if len(s) > maxHint {
		return s[:maxHint] + "…"
	}
	return s
}

func countToolUses(messages []models.Message) int {
	count := 0
	for _, m := range messages {
		if m.Role == models.RoleAssistant && len(m.ToolCalls) > 0 {
			count++
		}
	}
	return count
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
