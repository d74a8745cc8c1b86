package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osa-run/osa/pkg/models"
)

// ContentBlock is one piece of a wrapped tool result (§4.C step 4).
type ContentBlock struct {
	Type      string `json:"type"` // "text" | "image"
	Text      string `json:"text,omitempty"`
	Base64    string `json:"base64,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// ExecuteFunc is a registered tool's implementation.
type ExecuteFunc func(ctx context.Context, args json.RawMessage) ([]ContentBlock, error)

// Tool is one registered tool.
type Tool struct {
	Meta    models.ToolMetadata
	Execute ExecuteFunc
	// Timeout overrides the registry's default wall-clock timeout; zero
	// means "use the registry default".
	Timeout time.Duration
}

// PreHookResult lets a pre_tool_use hook short-circuit execution.
type PreHookResult struct {
	Blocked bool
	Reason  string
}

// PreHook runs synchronously before a tool executes; any hook returning
// Blocked=true short-circuits execution (§4.C step 1).
type PreHook func(ctx context.Context, toolName string, args json.RawMessage) PreHookResult

// PostHook runs asynchronously after a tool executes (§4.C step 3).
type PostHook func(toolName string, args json.RawMessage, blocks []ContentBlock, err error, duration time.Duration)

// Registry is the serialized tool registry actor. Lookup and
// ToolsSnapshot give a lock-free read-only view for callers already running inside a
// serialized path (e.g. a sub-agent invoked by the registry itself) to
// avoid self-deadlock (§4.C, §5, §9).
type Registry struct {
	mu            sync.RWMutex
	tools         map[string]Tool
	preHooks      []PreHook
	postHooks     []PostHook
	snapshot      atomic.Pointer[map[string]Tool]
	defaultTimeout time.Duration
	logger        *slog.Logger
}

// NewRegistry builds an empty tool registry.
func NewRegistry(defaultTimeout time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	r := &Registry{
		tools:          make(map[string]Tool),
		defaultTimeout: defaultTimeout,
		logger:         logger.With("component", "sandbox"),
	}
	empty := map[string]Tool{}
	r.snapshot.Store(&empty)
	return r
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Meta.Name] = t
	r.publishSnapshot()
}

// AddPreHook appends a pre_tool_use hook.
func (r *Registry) AddPreHook(h PreHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks = append(r.preHooks, h)
}

// AddPostHook appends a post_tool_use hook.
func (r *Registry) AddPostHook(h PostHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postHooks = append(r.postHooks, h)
}

func (r *Registry) publishSnapshot() {
	snap := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		snap[k] = v
	}
	r.snapshot.Store(&snap)
}

// Lookup resolves a tool via the lock-free snapshot path (§4.C "two
// lookup paths"). Safe to call from within an already-serialized caller.
func (r *Registry) Lookup(name string) (Tool, bool) {
	snap := *r.snapshot.Load()
	t, ok := snap[name]
	return t, ok
}

// ToolsSnapshot returns every registered tool's metadata via the
// lock-free path, for building a provider's `tools` request field.
func (r *Registry) ToolsSnapshot() []models.ToolMetadata {
	snap := *r.snapshot.Load()
	out := make([]models.ToolMetadata, 0, len(snap))
	for _, t := range snap {
		out = append(out, t.Meta)
	}
	return out
}

// Invoke runs the execution pipeline: pre-hooks, the tool function under a
// wall-clock timeout, then post-hooks (§4.C).
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) ([]ContentBlock, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("sandbox: unknown tool %q", name)
	}

	r.mu.RLock()
	preHooks := append([]PreHook(nil), r.preHooks...)
	postHooks := append([]PostHook(nil), r.postHooks...)
	r.mu.RUnlock()

	for _, hook := range preHooks {
		verdict := safePreHook(hook, ctx, name, args)
		if verdict.Blocked {
			reason := verdict.Reason
			if reason == "" {
				reason = "blocked by policy"
			}
			return []ContentBlock{{Type: "text", Text: "Blocked: " + reason}}, nil
		}
	}

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	blocks, err := runTool(runCtx, tool, args)
	duration := time.Since(start)

	for _, hook := range postHooks {
		go safePostHook(hook, name, args, blocks, err, duration)
	}

	if err != nil {
		return []ContentBlock{{Type: "text", Text: "Error: " + err.Error()}}, nil
	}
	return blocks, nil
}

func runTool(ctx context.Context, tool Tool, args json.RawMessage) ([]ContentBlock, error) {
	type result struct {
		blocks []ContentBlock
		err    error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("tool panicked: %v", rec)}
			}
		}()
		blocks, err := tool.Execute(ctx, args)
		done <- result{blocks: blocks, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("tool %q timed out", tool.Meta.Name)
	case res := <-done:
		return res.blocks, res.err
	}
}

func safePreHook(hook PreHook, ctx context.Context, name string, args json.RawMessage) (result PreHookResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = PreHookResult{}
		}
	}()
	return hook(ctx, name, args)
}

func safePostHook(hook PostHook, name string, args json.RawMessage, blocks []ContentBlock, err error, duration time.Duration) {
	defer func() { _ = recover() }()
	hook(name, args, blocks, err, duration)
}
