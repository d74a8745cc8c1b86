// Package tasktracker implements component L (§4.L): a per-session
// checklist with atomic JSON persistence, grounded on the donor's
// pairing.Store temp-file+rename write pattern (internal/pairing/store.go).
package tasktracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/pkg/models"
)

// Status is a task's lifecycle state (§4.L "pending → in_progress →
// completed|failed"), aliased onto the canonical type.
type Status = models.TrackerTaskStatus

const (
	StatusPending    = models.TrackerPending
	StatusInProgress = models.TrackerInProgress
	StatusCompleted  = models.TrackerCompleted
	StatusFailed     = models.TrackerFailed
)

// Task is one checklist entry, aliased onto the canonical DTO.
type Task = models.TrackerTask

type fileFormat struct {
	Version int    `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// Tracker is one session's checklist, an actor-style component owning
// private mutable state (§5).
type Tracker struct {
	sessionID string
	path      string
	bus       *bus.Bus

	mu    sync.Mutex
	tasks []Task
}

// New builds a Tracker persisting to <homeDir>/sessions/<sessionID>/tasks.json
// (§4.L "Persistence per session to a JSON file").
func New(homeDir, sessionID string, b *bus.Bus) *Tracker {
	path := filepath.Join(homeDir, "sessions", sessionID, "tasks.json")
	t := &Tracker{sessionID: sessionID, path: path, bus: b}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var f fileFormat
	if json.Unmarshal(data, &f) == nil {
		t.tasks = f.Tasks
	}
}

func (t *Tracker) persist() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("tasktracker: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(fileFormat{Version: 1, Tasks: t.tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("tasktracker: marshal: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("tasktracker: write temp: %w", err)
	}
	return os.Rename(tmp, t.path)
}

func (t *Tracker) emit(name string, task Task) {
	if t.bus == nil {
		return
	}
	t.bus.EmitSystem(t.sessionID, name, map[string]any{"task_id": task.ID, "title": task.Title, "status": task.Status})
}

// AddTask appends one pending task.
func (t *Tracker) AddTask(title string) (Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := Task{ID: uuid.NewString(), Title: title, Status: StatusPending, CreatedAt: time.Now().UTC()}
	t.tasks = append(t.tasks, task)
	if err := t.persist(); err != nil {
		return Task{}, err
	}
	t.emit("task_added", task)
	return task, nil
}

// AddTasks appends several tasks in one atomic write (§4.L "add_tasks").
func (t *Tracker) AddTasks(titles []string) ([]Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var added []Task
	for _, title := range titles {
		task := Task{ID: uuid.NewString(), Title: title, Status: StatusPending, CreatedAt: time.Now().UTC()}
		t.tasks = append(t.tasks, task)
		added = append(added, task)
	}
	if err := t.persist(); err != nil {
		return nil, err
	}
	for _, task := range added {
		t.emit("task_added", task)
	}
	return added, nil
}

// StartTask transitions a task to in_progress.
func (t *Tracker) StartTask(id string) error {
	return t.transition(id, func(task *Task) error {
		task.Status = StatusInProgress
		task.StartedAt = time.Now().UTC()
		return nil
	}, "task_started")
}

// CompleteTask transitions a task to completed.
func (t *Tracker) CompleteTask(id string) error {
	return t.transition(id, func(task *Task) error {
		task.Status = StatusCompleted
		task.CompletedAt = time.Now().UTC()
		return nil
	}, "task_completed")
}

// FailTask transitions a task to failed with a reason (§4.L
// "fail_task(reason)").
func (t *Tracker) FailTask(id, reason string) error {
	return t.transition(id, func(task *Task) error {
		task.Status = StatusFailed
		task.Reason = reason
		task.CompletedAt = time.Now().UTC()
		return nil
	}, "task_failed")
}

// RecordTokens adds delta tokens to a task's running total.
func (t *Tracker) RecordTokens(id string, delta int64) error {
	return t.transition(id, func(task *Task) error {
		task.Tokens += delta
		return nil
	}, "")
}

func (t *Tracker) transition(id string, mutate func(*Task) error, eventName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, task := range t.tasks {
		if task.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("tasktracker: unknown task %q", id)
	}
	if err := mutate(&t.tasks[idx]); err != nil {
		return err
	}
	if err := t.persist(); err != nil {
		return err
	}
	if eventName != "" {
		t.emit(eventName, t.tasks[idx])
	}
	return nil
}

// GetTasks returns a snapshot of the checklist.
func (t *Tracker) GetTasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Task(nil), t.tasks...)
}

// ClearTasks empties the checklist.
func (t *Tracker) ClearTasks() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = nil
	return t.persist()
}
