// Package scheduler implements component J (§4.J): the heartbeat engine,
// cron engine, trigger registry, and their shared job dispatch, plus
// config hot reload.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/observability"
	"github.com/osa-run/osa/internal/sandbox"
)

const cronTickInterval = time.Minute

// AgentRunner executes a one-shot reasoning actor task, used for
// cron/trigger `agent` jobs (§4.J).
type AgentRunner func(ctx context.Context, task, channel string) error

type cronEntry struct {
	job     Job
	spec    *CronSpec
	breaker *circuitBreaker
}

// Scheduler owns the cron tick loop and the trigger registry, wiring both
// to the same job dispatcher; the heartbeat engine is built separately
// with NewHeartbeat and runs tasks through its own TaskRunner (§4.J,
// §5 "Scheduler owns private mutable state and processes requests
// sequentially from a mailbox" — the cron ticker and fsnotify watcher
// are this mailbox's two producers).
type Scheduler struct {
	jobsPath     string
	triggersPath string
	workspace    string
	runAgent     AgentRunner
	httpClient   *http.Client
	bus          *bus.Bus
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu      sync.RWMutex
	entries map[string]*cronEntry
	Hbeat   *Heartbeat

	Triggers *TriggerRegistry

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New builds a Scheduler. jobsPath/triggersPath are JSON files reloaded
// by Reload and by Watch's fsnotify hook. metrics may be nil.
func New(jobsPath, triggersPath, workspace string, runAgent AgentRunner, b *bus.Bus, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		jobsPath: jobsPath, triggersPath: triggersPath, workspace: workspace,
		runAgent: runAgent, httpClient: &http.Client{Timeout: 30 * time.Second},
		bus: b, metrics: metrics, logger: logger.With("component", "scheduler"),
		entries: map[string]*cronEntry{},
	}
	s.Triggers = NewTriggerRegistry(func(job Job, source string) error {
		return s.dispatch(context.Background(), job, source)
	})
	return s
}

// Reload re-reads both JSON files without restarting the scheduler.
// Circuit-breaker state persists across reloads — this rebuilds each
// entry's CronSpec but carries its existing *circuitBreaker forward by
// job id, clearing it only when the job id is new (§4.J "Hot reload").
func (s *Scheduler) Reload() error {
	jobs, err := loadJobs(s.jobsPath)
	if err != nil {
		return fmt.Errorf("scheduler: reload jobs: %w", err)
	}
	triggers, err := loadTriggers(s.triggersPath)
	if err != nil {
		return fmt.Errorf("scheduler: reload triggers: %w", err)
	}

	s.mu.Lock()
	next := make(map[string]*cronEntry, len(jobs))
	for _, job := range jobs {
		if job.Type != "" && job.Schedule == "" {
			continue
		}
		spec, err := ParseCronSpec(job.Schedule)
		if err != nil {
			s.logger.Error("scheduler: invalid cron schedule, skipping job", "job_id", job.ID, "error", err)
			continue
		}
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			s.logger.Warn("scheduler: cron schedule fails robfig validation (hand-rolled matcher still used for ticks)", "job_id", job.ID, "error", err)
		}

		breaker := s.entries[job.ID]
		var cb *circuitBreaker
		if breaker != nil {
			cb = breaker.breaker
		} else {
			jobID := job.ID
			cb = newCircuitBreaker(func() { s.metrics.RecordCircuitBreakerOpen("cron:" + jobID) })
		}
		next[job.ID] = &cronEntry{job: job, spec: spec, breaker: cb}
	}
	s.entries = next
	s.mu.Unlock()

	s.Triggers.Load(triggers)
	s.logger.Info("scheduler: reloaded", "jobs", len(next), "triggers", len(triggers))
	return nil
}

// Start begins the one-minute cron tick loop (§4.J "Cron engine: on a
// one-minute tick").
func (s *Scheduler) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	ticker := time.NewTicker(cronTickInterval)

	go func() {
		defer close(s.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case now := <-ticker.C:
				s.tick(ctx, now)
			}
		}
	}()
}

// Jobs returns the currently loaded cron jobs, for `osa cron list`.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.job)
	}
	return out
}

// Stop halts the cron tick loop and the fsnotify watcher, if running.
func (s *Scheduler) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.metrics.RecordSchedulerTick()

	s.mu.RLock()
	entries := make([]*cronEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		if !e.job.Enabled || !e.breaker.Closed() || !e.spec.Matches(now) {
			continue
		}
		go func(e *cronEntry) {
			if err := s.dispatch(ctx, e.job, "cron:"+e.job.ID); err != nil {
				e.breaker.RecordFailure()
				s.logger.Error("scheduler: cron job failed", "job_id", e.job.ID, "error", err)
				return
			}
			e.breaker.RecordSuccess()
		}(e)
	}
}

// dispatch runs one job by type, shared by cron ticks and triggers (§4.J
// "dispatches identically to cron job types").
func (s *Scheduler) dispatch(ctx context.Context, job Job, source string) error {
	var err error
	switch job.Type {
	case JobAgent:
		err = s.runAgent(ctx, job.Job, "scheduler")
	case JobCommand:
		err = s.runCommand(ctx, job.Command)
	case JobWebhook:
		err = s.runWebhook(ctx, job)
	default:
		err = fmt.Errorf("scheduler: unknown job type %q", job.Type)
	}

	s.bus.EmitSystem("", "scheduler_job_ran", map[string]any{
		"job_id": job.ID, "source": source, "type": job.Type, "ok": err == nil,
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordSchedulerJob(string(job.Type), outcome)

	if err != nil && job.OnFailure == "agent" && job.FailureJob != "" {
		if agentErr := s.runAgent(ctx, job.FailureJob, "scheduler"); agentErr != nil {
			s.logger.Error("scheduler: on_failure agent task also failed", "job_id", job.ID, "error", agentErr)
		}
	}
	return err
}

// runCommand runs a shell job under the same sandbox policy as tools
// (§4.C, §4.J "command: shell command run under the same sandbox policy
// as tools").
func (s *Scheduler) runCommand(ctx context.Context, command string) error {
	verdict := sandbox.CheckShellCommand(command, s.workspace)
	if verdict.Blocked {
		return fmt.Errorf("scheduler: command rejected by sandbox policy: %s", verdict.Reason)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.workspace
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("scheduler: command failed: %w: %s", err, sandbox.TruncateOutput(string(out)))
	}
	return nil
}

func (s *Scheduler) runWebhook(ctx context.Context, job Job) error {
	method := job.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, job.URL, io.NopCloser(bytes.NewReader(nil)))
	if err != nil {
		return fmt.Errorf("scheduler: build webhook request: %w", err)
	}
	for k, v := range job.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler: webhook request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("scheduler: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Watch starts an fsnotify watcher on both config files, triggering
// Reload on write events (§4.J "Hot reload").
func (s *Scheduler) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scheduler: fsnotify: %w", err)
	}
	s.watcher = w
	for _, p := range []string{s.jobsPath, s.triggersPath} {
		if err := w.Add(p); err != nil {
			s.logger.Warn("scheduler: could not watch config file", "path", p, "error", err)
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := s.Reload(); err != nil {
						s.logger.Error("scheduler: hot reload failed", "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("scheduler: fsnotify error", "error", err)
			}
		}
	}()
	return nil
}

func loadJobs(path string) ([]Job, error) {
	var jobs []Job
	if err := loadJSON(path, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func loadTriggers(path string) ([]Trigger, error) {
	var triggers []Trigger
	if err := loadJSON(path, &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

func loadJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
