// Package store implements the optional durable index named in
// SPEC_FULL.md's DOMAIN STACK expansion of §4.K (Session Manager) and
// §4.L (Task Tracker): a database/sql-backed TaskStore/SessionIndex
// layered on top of the spec's default JSONL/JSON persistence, selected
// by OSA_STORE_DRIVER. It is never a replacement for that default —
// internal/sessions and internal/tasktracker keep writing their own
// files regardless of whether a Store is configured.
package store

import (
	"context"
	"time"
)

// TaskRecord mirrors one tasktracker.Task row (§4.L), indexed by
// session so a store can answer "give me every task across sessions"
// without replaying JSON files.
type TaskRecord struct {
	ID          string
	SessionID   string
	Title       string
	Status      string
	Reason      string
	Tokens      int64
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// SessionRecord mirrors one Session Manager entry (§4.K), recording
// enough to answer `session list`/`session show` against the durable
// index instead of walking the sessions directory.
type SessionRecord struct {
	ID           string
	Status       string
	RestartCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store is the durable index interface. Implementations must be safe
// for concurrent use; UpsertTask/UpsertSession are idempotent on ID.
type Store interface {
	UpsertTask(ctx context.Context, t TaskRecord) error
	ListTasks(ctx context.Context, sessionID string) ([]TaskRecord, error)
	UpsertSession(ctx context.Context, s SessionRecord) error
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	Close() error
}
