package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T, dia dialect) (sqlmock.Sqlmock, *sqlStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return mock, newWithDB(db, dia)
}

func TestUpsertTaskSQLite(t *testing.T) {
	mock, s := setupMock(t, dialectSQLite)
	now := time.Now()

	mock.ExpectExec("INSERT INTO osa_tasks").
		WithArgs("task-1", "sess-1", "write tests", "completed", "", int64(42), now, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpsertTask(context.Background(), TaskRecord{
		ID: "task-1", SessionID: "sess-1", Title: "write tests",
		Status: "completed", Tokens: 42, CreatedAt: now, StartedAt: now, CompletedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTaskPostgresUsesDollarPlaceholders(t *testing.T) {
	mock, s := setupMock(t, dialectPostgres)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO osa_tasks \(id, session_id, title, status, reason, tokens, created_at, started_at, completed_at\)\s*VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)`).
		WithArgs("task-1", "sess-1", "write tests", "pending", "", int64(0), now, time.Time{}, time.Time{}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpsertTask(context.Background(), TaskRecord{
		ID: "task-1", SessionID: "sess-1", Title: "write tests", Status: "pending", CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTasksForSession(t *testing.T) {
	mock, s := setupMock(t, dialectSQLite)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "session_id", "title", "status", "reason", "tokens", "created_at", "started_at", "completed_at"}).
		AddRow("task-1", "sess-1", "write tests", "failed", "timeout", int64(10), now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM osa_tasks WHERE session_id = ?").
		WithArgs("sess-1").
		WillReturnRows(rows)

	got, err := s.ListTasks(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "timeout", got[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSessionAndList(t *testing.T) {
	mock, s := setupMock(t, dialectSQLite)
	now := time.Now()

	mock.ExpectExec("INSERT INTO osa_sessions").
		WithArgs("sess-1", "alive", 1, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpsertSession(context.Background(), SessionRecord{
		ID: "sess-1", Status: "alive", RestartCount: 1, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "status", "restart_count", "created_at", "updated_at"}).
		AddRow("sess-1", "alive", 1, now, now)
	mock.ExpectQuery("SELECT (.+) FROM osa_sessions").WillReturnRows(rows)

	got, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sess-1", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverForRejectsUnknown(t *testing.T) {
	_, _, err := driverFor("mysql")
	assert.Error(t, err)
}

func TestDriverForDefaultsToSQLite(t *testing.T) {
	dia, driverName, err := driverFor("")
	require.NoError(t, err)
	assert.Equal(t, dialectSQLite, dia)
	assert.Equal(t, "sqlite", driverName)
}
