// Package orchestrator implements component I (§4.I): LLM-based task
// decomposition, topological wave scheduling, parallel tier-aware
// sub-agent execution, and result synthesis.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/compaction"
	"github.com/osa-run/osa/internal/observability"
	"github.com/osa-run/osa/internal/providers"
	"github.com/osa-run/osa/internal/reasoning"
	"github.com/osa-run/osa/internal/sandbox"
	"github.com/osa-run/osa/pkg/models"
)

const subAgentTimeout = 5 * time.Minute

var tracer = otel.Tracer("osa/orchestrator")

// SynthesisLLM is the narrow chat contract the synthesis step needs.
type SynthesisLLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Orchestrator drives decomposition, wave scheduling, sub-agent execution
// and synthesis for one long-lived process (§4.I, §5 "Orchestrator owns
// private mutable state and processes requests sequentially").
type Orchestrator struct {
	router              reasoning.Router
	registry            *sandbox.Registry
	tiers               *TierMap
	bus                 *bus.Bus
	decomposeLLM        DecomposeLLM
	synthesisLLM        SynthesisLLM
	skills              *SkillRegistry
	maxConcurrentAgents int
	logger              *slog.Logger
	metrics             *observability.Metrics

	mu    sync.Mutex
	tasks map[string]*models.Task
	waves map[string][][]*models.SubTask
}

// New builds an Orchestrator. metrics may be nil.
func New(router reasoning.Router, registry *sandbox.Registry, tiers *TierMap, b *bus.Bus, decomposeLLM DecomposeLLM, synthesisLLM SynthesisLLM, maxConcurrentAgents int, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrentAgents <= 0 {
		maxConcurrentAgents = defaultMaxConcurrentAgents
	}
	return &Orchestrator{
		router: router, registry: registry, tiers: tiers, bus: b,
		decomposeLLM: decomposeLLM, synthesisLLM: synthesisLLM,
		skills: NewSkillRegistry(), maxConcurrentAgents: maxConcurrentAgents,
		metrics: metrics,
		logger:  logger.With("component", "orchestrator"),
		tasks:   map[string]*models.Task{},
		waves:   map[string][][]*models.SubTask{},
	}
}

// Execute runs analyze → (direct reply | decompose → schedule → run
// waves → synthesize) for one message (§4.I "execute(message, session_id,
// opts)"). sessionID is the owning conversation, used only for bus event
// correlation; sub-agents get their own synthetic ids.
func (o *Orchestrator) Execute(ctx context.Context, message, sessionID string) (taskID, synthesis string, err error) {
	isComplex, subTasks, err := Analyze(ctx, o.decomposeLLM, message)
	if err != nil {
		return "", "", fmt.Errorf("orchestrator: analyze: %w", err)
	}

	taskID = uuid.NewString()
	strategy := models.StrategySimple
	if isComplex {
		strategy = models.StrategyComplex
	}
	task := &models.Task{
		ID: taskID, OriginalMessage: message, SessionID: sessionID,
		Strategy: strategy, CreatedAt: time.Now(),
	}
	o.mu.Lock()
	o.tasks[taskID] = task
	o.mu.Unlock()

	if !isComplex {
		direct := &models.SubTask{Name: "direct", Role: models.RoleLead, Description: message}
		task.SubTasks = []*models.SubTask{direct}
		result, procErr := o.runSubAgent(ctx, taskID, direct, "", sessionID)
		o.finishTask(task, result, procErr == nil)
		return taskID, result, procErr
	}

	taskSubTasks := make([]*models.SubTask, len(subTasks))
	for i := range subTasks {
		st := subTasks[i]
		taskSubTasks[i] = &st
	}
	task.SubTasks = taskSubTasks

	waves := Waves(taskSubTasks, o.maxConcurrentAgents, o.logger)
	o.mu.Lock()
	o.waves[taskID] = waves
	o.mu.Unlock()

	results := map[string]string{}
	var resultsMu sync.Mutex

	for waveIdx, wave := range waves {
		o.bus.EmitSystem(sessionID, "orchestrator_wave_start", map[string]any{"task_id": taskID, "wave": waveIdx, "size": len(wave)})

		var wg sync.WaitGroup
		for _, st := range wave {
			wg.Add(1)
			go func(st *models.SubTask) {
				defer wg.Done()
				resultsMu.Lock()
				deps := dependencyContext(st.DependsOn, results)
				resultsMu.Unlock()

				out, _ := o.runSubAgent(ctx, taskID, st, deps, sessionID)

				resultsMu.Lock()
				results[st.Name] = out
				resultsMu.Unlock()
			}(st)
		}
		wg.Wait()

		o.bus.EmitSystem(sessionID, "orchestrator_wave_end", map[string]any{"task_id": taskID, "wave": waveIdx})
	}

	synthesis = o.synthesize(ctx, message, waves, results)
	anyFailed := false
	for _, st := range task.SubTasks {
		if st.Status == models.SubTaskFailed {
			anyFailed = true
		}
	}
	o.finishTask(task, synthesis, !anyFailed)

	return taskID, synthesis, nil
}

func dependencyContext(depends []string, results map[string]string) string {
	if len(depends) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Context from Previous Agents:\n")
	for _, d := range depends {
		if r, ok := results[d]; ok {
			fmt.Fprintf(&b, "## %s\n%s\n\n", d, r)
		}
	}
	return b.String()
}

func (o *Orchestrator) finishTask(task *models.Task, synthesis string, ok bool) {
	task.Synthesis = synthesis
	task.CompletedAt = time.Now()
	task.Partial = !ok
}

// runSubAgent runs one sub-task's bounded reasoning loop to completion or
// the 5-minute per-sub-agent timeout (§5 "Suspension points... Orchestrator
// sub-agent waits (5 min per sub-agent per wave)"; §4.I "on timeout or
// exception, the sub-task is marked failed and its result becomes
// FAILED: <reason>"). st is mutated in place so Progress()/ListTasks()
// observe live state.
func (o *Orchestrator) runSubAgent(ctx context.Context, taskID string, st *models.SubTask, depContext string, parentSessionID string) (string, error) {
	tier := roleTier(st.Role)
	settings := o.tiers.Settings(tier)

	st.Tier = tier
	st.Status = models.SubTaskRunning
	st.StartedAt = time.Now()

	ctx, span := tracer.Start(ctx, "orchestrator.sub_agent", trace.WithAttributes(
		attribute.String("task_id", taskID),
		attribute.String("sub_task", st.Name),
		attribute.String("role", string(st.Role)),
		attribute.String("tier", string(tier)),
	))
	defer span.End()

	o.metrics.SubAgentStarted()
	defer func() {
		outcome := "ok"
		if st.Status == models.SubTaskFailed {
			outcome = "error"
		}
		o.metrics.SubAgentFinished(string(tier), outcome)
	}()

	o.bus.EmitSystem(parentSessionID, "orchestrator_subagent_start", map[string]any{
		"task_id": taskID, "name": st.Name, "role": st.Role, "tier": tier,
	})

	subCtx, cancel := context.WithTimeout(ctx, subAgentTimeout)
	defer cancel()

	system := RoleTemplate(st.Role)
	userPrompt := st.Description
	if depContext != "" {
		userPrompt = depContext + "\n" + userPrompt
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: system, Timestamp: time.Now().UTC()},
		{Role: models.RoleUser, Content: userPrompt, Timestamp: time.Now().UTC()},
	}

	tools := o.toolSpecsFor(st.ToolsNeeded)
	compactor := compaction.New(nil, o.logger)
	loop := reasoning.New(o.router, o.registry, compactor, o.bus, reasoning.Config{
		MaxIterations: settings.MaxIterations,
		MaxTokens:     settings.MaxResponseTokens,
		Temperature:   settings.Temperature,
	}, o.logger)

	subAgentSessionID := taskID + ":" + st.Name
	result, err := loop.Run(subCtx, subAgentSessionID, messages, tools, reasoning.Options{Model: settings.Model}, 128_000)

	st.CompletedAt = time.Now()
	if err != nil {
		st.Status = models.SubTaskFailed
		st.Error = err.Error()
		span.RecordError(err)
		reason := fmt.Sprintf("FAILED: %s", err.Error())
		o.bus.EmitSystem(parentSessionID, "orchestrator_subagent_end", map[string]any{"task_id": taskID, "name": st.Name, "status": "failed"})
		return reason, err
	}
	if subCtx.Err() != nil {
		st.Status = models.SubTaskFailed
		st.Error = "timed out after 5 minutes"
		o.bus.EmitSystem(parentSessionID, "orchestrator_subagent_end", map[string]any{"task_id": taskID, "name": st.Name, "status": "failed"})
		return "FAILED: timed out after 5 minutes", nil
	}

	st.Status = models.SubTaskCompleted
	st.Result = result.Content
	st.ToolUseCount = result.Meta.ToolsUsed
	o.bus.EmitSystem(parentSessionID, "orchestrator_subagent_end", map[string]any{"task_id": taskID, "name": st.Name, "status": "completed"})
	return result.Content, nil
}

func (o *Orchestrator) toolSpecsFor(names []string) []providers.ToolSpec {
	if len(names) == 0 {
		return nil
	}
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}
	var out []providers.ToolSpec
	for _, meta := range o.registry.ToolsSnapshot() {
		if wanted[meta.Name] {
			out = append(out, providers.ToolSpec{Name: meta.Name, Description: meta.Description, Schema: meta.Schema})
		}
	}
	return out
}

const synthesisSystemPrompt = "You are a synthesis agent. You are given an original user request and the results produced by several specialist sub-agents. Produce one unified, coherent response that addresses the original request, reconciling any conflicts between sub-agent results and noting any that failed."

// synthesize produces the unified response, falling back to concatenation
// on synthesis failure (§4.I "Synthesis").
func (o *Orchestrator) synthesize(ctx context.Context, originalMessage string, waves [][]*models.SubTask, results map[string]string) string {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Original request: %s\n\n", originalMessage)
	for _, wave := range waves {
		for _, st := range wave {
			fmt.Fprintf(&prompt, "## %s (%s)\n%s\n\n", st.Name, st.Role, results[st.Name])
		}
	}

	out, err := o.synthesisLLM.Complete(ctx, synthesisSystemPrompt, prompt.String())
	if err == nil && strings.TrimSpace(out) != "" {
		return out
	}

	o.logger.Warn("orchestrator: synthesis call failed, falling back to concatenation", "error", err)
	var b strings.Builder
	for _, wave := range waves {
		for _, st := range wave {
			fmt.Fprintf(&b, "## %s\n%s\n\n", st.Name, results[st.Name])
		}
	}
	return strings.TrimSpace(b.String())
}

// Progress returns a task's current tracked state (§4.I "progress(task_id)").
func (o *Orchestrator) Progress(taskID string) (*models.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[taskID]
	return t, ok
}

// ListTasks returns every tracked task (§4.I "list_tasks()").
func (o *Orchestrator) ListTasks() []*models.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*models.Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, t)
	}
	return out
}

// Skills exposes the orchestrator's skill registry for create_skill /
// suggest_or_create tool bindings.
func (o *Orchestrator) Skills() *SkillRegistry { return o.skills }
