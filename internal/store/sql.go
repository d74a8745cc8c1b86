package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect picks the placeholder style and driver name for a backend.
type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

func driverFor(name string) (dialect, string, error) {
	switch name {
	case "postgres", "postgresql":
		return dialectPostgres, "postgres", nil
	case "sqlite", "sqlite3", "":
		return dialectSQLite, "sqlite", nil
	default:
		return "", "", fmt.Errorf("store: unknown OSA_STORE_DRIVER %q", name)
	}
}

// sqlStore implements Store over database/sql. The same query text works
// against both backends except for placeholder syntax, handled by ph.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured backend (OSA_STORE_DRIVER: "postgres"
// or "sqlite") and ensures its schema exists.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	dia, driverName, err := driverFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}
	s := newWithDB(db, dia)
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// newWithDB wires an already-open *sql.DB, letting tests inject a
// go-sqlmock connection without depending on a real lib/pq or
// modernc.org/sqlite connection.
func newWithDB(db *sql.DB, dia dialect) *sqlStore {
	return &sqlStore{db: db, dialect: dia}
}

// ph renders the nth (1-indexed) placeholder for the store's dialect.
func (s *sqlStore) ph(n int) string {
	if s.dialect == dialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *sqlStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS osa_tasks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			tokens BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS osa_sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			restart_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertTask implements Store.
func (s *sqlStore) UpsertTask(ctx context.Context, t TaskRecord) error {
	query := fmt.Sprintf(`INSERT INTO osa_tasks (id, session_id, title, status, reason, tokens, created_at, started_at, completed_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			tokens = excluded.tokens,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9))

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.SessionID, t.Title, t.Status, t.Reason, t.Tokens, t.CreatedAt, t.StartedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("store: upsert task: %w", err)
	}
	return nil
}

// ListTasks implements Store. An empty sessionID lists every task.
func (s *sqlStore) ListTasks(ctx context.Context, sessionID string) ([]TaskRecord, error) {
	var rows *sql.Rows
	var err error
	if sessionID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, session_id, title, status, reason, tokens, created_at, started_at, completed_at FROM osa_tasks ORDER BY created_at`)
	} else {
		query := fmt.Sprintf(`SELECT id, session_id, title, status, reason, tokens, created_at, started_at, completed_at FROM osa_tasks WHERE session_id = %s ORDER BY created_at`, s.ph(1))
		rows, err = s.db.QueryContext(ctx, query, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var t TaskRecord
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Title, &t.Status, &t.Reason, &t.Tokens, &t.CreatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertSession implements Store.
func (s *sqlStore) UpsertSession(ctx context.Context, rec SessionRecord) error {
	query := fmt.Sprintf(`INSERT INTO osa_sessions (id, status, restart_count, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			restart_count = excluded.restart_count,
			updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Status, rec.RestartCount, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert session: %w", err)
	}
	return nil
}

// ListSessions implements Store.
func (s *sqlStore) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, restart_count, created_at, updated_at FROM osa_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.RestartCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
