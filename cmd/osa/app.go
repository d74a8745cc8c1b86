package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/osa-run/osa/internal/budget"
	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/config"
	"github.com/osa-run/osa/internal/observability"
	"github.com/osa-run/osa/internal/obslog"
	"github.com/osa-run/osa/internal/orchestrator"
	"github.com/osa-run/osa/internal/providers"
	"github.com/osa-run/osa/internal/sandbox"
	"github.com/osa-run/osa/internal/scheduler"
	"github.com/osa-run/osa/internal/sessions"
	"github.com/osa-run/osa/internal/store"
	"github.com/osa-run/osa/internal/webauth"
	"github.com/osa-run/osa/pkg/models"
)

// App is the fully-wired component graph one `osa` process runs, built
// once at boot by newApp and shared by every subcommand that touches
// live state (serve, session, cron, budget).
type App struct {
	cfg    config.Runtime
	logger *slog.Logger

	bus          *bus.Bus
	metrics      *observability.Metrics
	tracerDown   func(context.Context) error
	auth         *webauth.Service
	router       *providers.Router
	orchestrator *orchestrator.Orchestrator
	sessions     *sessions.Manager
	budget       *budget.Budget
	treasury     *budget.Treasury
	scheduler    *scheduler.Scheduler
	heartbeat    *scheduler.Heartbeat
	store        store.Store

	sessionsDir string
}

// newApp loads .env files, builds the component graph, and opens the
// durable store (if OSA_STORE_DRIVER is set). Callers must call
// app.Close() when done.
func newApp(ctx context.Context) (*App, error) {
	home, _ := os.UserHomeDir()
	_ = config.LoadEnv(".", home)
	cfg := config.LoadRuntime()

	logger := obslog.New(obslog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("osa: create home dir: %w", err)
	}
	sessionsDir := filepath.Join(cfg.Home, "sessions")

	metrics := observability.NewMetrics()
	_, tracerDown := observability.NewTracerProvider("osa")

	b := bus.New(logger)
	secret := cfg.SharedSecret
	if !cfg.RequireAuth {
		secret = ""
	}
	auth := webauth.New(secret, 24*time.Hour)

	chain, err := buildProviderChain(ctx, cfg)
	if err != nil {
		return nil, err
	}
	router, err := providers.NewRouter(chain, providers.WithRateLimit(4, 8))
	if err != nil {
		return nil, fmt.Errorf("osa: build router: %w", err)
	}

	registry := sandbox.NewRegistry(30*time.Second, logger)

	limits := budget.Limits{DailyUSD: cfg.DailyBudgetUSD, MonthlyUSD: cfg.MonthlyBudgetUSD, PerCallUSD: cfg.PerCallLimitUSD}
	bdg := budget.New(defaultPricing(), limits, b, metrics)

	var treasury *budget.Treasury
	if cfg.TreasuryEnabled {
		treasury = budget.NewTreasury(0, budget.TreasuryLimits{
			DailyLimit: cfg.TreasuryDailyLimit, MaxSingle: cfg.TreasuryMaxSingle,
		}, b)
	}

	completer := routerCompleter{router: router}
	tiers := orchestrator.NewStaticTierMap(firstNonEmpty(cfg.Model, "default"), firstNonEmpty(cfg.Model, "default"), firstNonEmpty(cfg.Model, "default"))
	orch := orchestrator.New(router, registry, tiers, b, completer, completer, 4, metrics, logger)

	process := func(ctx context.Context, sessionID string, _ models.Signal, _ []models.Message, userMessage models.Message) (models.Message, models.LastRunMeta, error) {
		_, synthesis, err := orch.Execute(ctx, userMessage.Content, sessionID)
		if err != nil {
			return models.Message{}, models.LastRunMeta{}, err
		}
		return models.Message{Role: models.RoleAssistant, Content: synthesis, Timestamp: time.Now().UTC()}, models.LastRunMeta{}, nil
	}
	sessionMgr := sessions.New(sessionsDir, process, b, logger)

	var idx store.Store
	if cfg.StoreDriver != "" {
		idx, err = store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("osa: open store: %w", err)
		}
	}

	agentRunner := func(ctx context.Context, task, channel string) error {
		_, _, err := orch.Execute(ctx, task, "scheduler:"+channel)
		return err
	}
	sched := scheduler.New(
		filepath.Join(cfg.Home, "CRONS.json"),
		filepath.Join(cfg.Home, "TRIGGERS.json"),
		cfg.Home, agentRunner, b, metrics, logger,
	)

	taskRunner := func(ctx context.Context, taskTitle string) error {
		_, _, err := orch.Execute(ctx, taskTitle, "heartbeat")
		return err
	}
	hb := scheduler.NewHeartbeat(filepath.Join(cfg.Home, "HEARTBEAT.md"), time.Minute, taskRunner, metrics, logger)

	return &App{
		cfg: cfg, logger: logger,
		bus: b, metrics: metrics, tracerDown: tracerDown, auth: auth,
		router: router, orchestrator: orch, sessions: sessionMgr,
		budget: bdg, treasury: treasury, scheduler: sched, heartbeat: hb,
		store: idx, sessionsDir: sessionsDir,
	}, nil
}

// Close releases everything newApp opened.
func (a *App) Close(ctx context.Context) {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.tracerDown != nil {
		_ = a.tracerDown(ctx)
	}
}

// buildProviderChain constructs an LLMProvider for every backend with
// credentials present in the environment, ordered cfg.DefaultProvider
// first, then cfg.FallbackChain, matching §4.B's "fallback chain
// auto-derived from available credentials".
func buildProviderChain(ctx context.Context, cfg config.Runtime) ([]providers.LLMProvider, error) {
	available := map[string]providers.LLMProvider{}

	if cfg.AnthropicAPIKey != "" {
		available["anthropic"] = providers.NewAnthropic(cfg.AnthropicAPIKey, firstNonEmpty(cfg.Model, "claude-sonnet-4-5-20250929"), nil, cfg.ThinkingEnabled)
	}
	if cfg.OpenAIAPIKey != "" {
		available["openai"] = providers.NewOpenAICompatible("openai", cfg.OpenAIAPIKey, "", firstNonEmpty(cfg.Model, "gpt-4o"), nil)
	}
	if cfg.GeminiAPIKey != "" {
		gem, err := providers.NewGemini(ctx, cfg.GeminiAPIKey, firstNonEmpty(cfg.Model, "gemini-2.0-flash"), nil)
		if err != nil {
			return nil, fmt.Errorf("osa: gemini provider: %w", err)
		}
		available["gemini"] = gem
	}
	if cfg.BedrockEnabled {
		br, err := providers.NewBedrock(ctx, providers.BedrockCredentials{Region: cfg.BedrockRegion}, cfg.Model, nil)
		if err != nil {
			return nil, fmt.Errorf("osa: bedrock provider: %w", err)
		}
		available["bedrock"] = br
	}

	if len(available) == 0 {
		return nil, fmt.Errorf("osa: no provider credentials found (set ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, or OSA_BEDROCK_ENABLED)")
	}

	order := append([]string{cfg.DefaultProvider}, cfg.FallbackChain...)
	var chain []providers.LLMProvider
	seen := map[string]bool{}
	for _, name := range order {
		if p, ok := available[name]; ok && !seen[name] {
			chain = append(chain, p)
			seen[name] = true
		}
	}
	for name, p := range available {
		if !seen[name] {
			chain = append(chain, p)
			seen[name] = true
		}
	}
	return chain, nil
}

// routerCompleter adapts providers.Router's streaming Chat contract to the
// single-shot Complete(systemPrompt, userPrompt) contract orchestrator's
// DecomposeLLM/SynthesisLLM interfaces need.
type routerCompleter struct {
	router *providers.Router
}

func (c routerCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := c.router.Chat(ctx, providers.CompletionRequest{
		System:    systemPrompt,
		Messages:  []models.Message{{Role: models.RoleUser, Content: userPrompt, Timestamp: time.Now().UTC()}},
		MaxTokens: 2048,
	}, providers.ChatOpts{})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// defaultPricing returns the built-in per-million-token rates: a "default"
// entry plus one entry per provider backend.
func defaultPricing() budget.PricingTable {
	return budget.PricingTable{
		"default":  {InputPerMillion: 3, OutputPerMillion: 15},
		"anthropic": {InputPerMillion: 3, OutputPerMillion: 15},
		"openai":    {InputPerMillion: 2.5, OutputPerMillion: 10},
		"gemini":    {InputPerMillion: 1.25, OutputPerMillion: 5},
		"bedrock":   {InputPerMillion: 3, OutputPerMillion: 15},
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
