package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/osa-run/osa/internal/observability"
)

const defaultHeartbeatInterval = 30 * time.Minute

var checkboxLine = regexp.MustCompile(`^(\s*-\s*\[)( |x|X)(\]\s*)(.*)$`)

// TaskRunner executes one heartbeat checklist task via a one-shot
// reasoning actor with channel="heartbeat" (§4.J "Heartbeat engine").
type TaskRunner func(ctx context.Context, taskTitle string) error

// Heartbeat reads a markdown checklist file on a fixed interval and runs
// each unchecked task, grounded on the donor's heartbeat.Runner
// ticker+stopCh+doneCh shape (internal/heartbeat/runner.go) but re-purposed
// from a typing-indicator heartbeat to a checklist-execution heartbeat.
type Heartbeat struct {
	path     string
	interval time.Duration
	run      TaskRunner
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*circuitBreaker

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHeartbeat builds a Heartbeat reading checklistPath every interval
// (interval <= 0 uses the 30-minute default). metrics may be nil.
func NewHeartbeat(checklistPath string, interval time.Duration, run TaskRunner, metrics *observability.Metrics, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{
		path: checklistPath, interval: interval, run: run, metrics: metrics,
		logger: logger.With("component", "heartbeat"), breakers: map[string]*circuitBreaker{},
	}
}

// Start begins ticking in a background goroutine.
func (h *Heartbeat) Start(ctx context.Context) {
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	ticker := time.NewTicker(h.interval)

	go func() {
		defer close(h.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.tick(ctx)
			}
		}
	}()
}

// Stop halts ticking and waits for the in-flight tick (if any) to finish.
func (h *Heartbeat) Stop() {
	if h.stopCh == nil {
		return
	}
	close(h.stopCh)
	<-h.doneCh
}

func (h *Heartbeat) tick(ctx context.Context) {
	lines, err := readLines(h.path)
	if err != nil {
		h.logger.Error("heartbeat: failed to read checklist", "path", h.path, "error", err)
		return
	}

	changed := false
	for i, line := range lines {
		m := checkboxLine.FindStringSubmatch(line)
		if m == nil || strings.EqualFold(m[2], "x") {
			continue
		}
		title := strings.TrimSpace(m[4])
		if title == "" {
			continue
		}

		cb := h.breakerFor(title)
		if !cb.Closed() {
			h.logger.Warn("heartbeat: skipping task, circuit open", "task", title)
			continue
		}

		if err := h.run(ctx, title); err != nil {
			cb.RecordFailure()
			h.logger.Error("heartbeat: task failed", "task", title, "error", err)
			continue
		}

		cb.RecordSuccess()
		lines[i] = fmt.Sprintf("%sx%s%s (completed %s)", m[1], m[3], title, time.Now().UTC().Format(time.RFC3339))
		changed = true
	}

	if changed {
		if err := writeLines(h.path, lines); err != nil {
			h.logger.Error("heartbeat: failed to rewrite checklist", "path", h.path, "error", err)
		}
	}
}

func (h *Heartbeat) breakerFor(title string) *circuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	cb, ok := h.breakers[title]
	if !ok {
		cb = newCircuitBreaker(func() { h.metrics.RecordCircuitBreakerOpen("heartbeat:" + title) })
		h.breakers[title] = cb
	}
	return cb
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
