package tasktracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStartCompleteLifecycle(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-1", nil)

	task, err := tr.AddTask("write the report")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)

	require.NoError(t, tr.StartTask(task.ID))
	require.NoError(t, tr.CompleteTask(task.ID))

	tasks := tr.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, StatusCompleted, tasks[0].Status)
	assert.False(t, tasks[0].CompletedAt.IsZero())
}

func TestFailTaskRecordsReason(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-2", nil)
	task, _ := tr.AddTask("deploy")
	require.NoError(t, tr.FailTask(task.ID, "permission denied"))

	tasks := tr.GetTasks()
	assert.Equal(t, StatusFailed, tasks[0].Status)
	assert.Equal(t, "permission denied", tasks[0].Reason)
}

func TestPersistenceSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-3", nil)
	_, err := tr.AddTask("persist me")
	require.NoError(t, err)

	reloaded := New(dir, "sess-3", nil)
	tasks := reloaded.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "persist me", tasks[0].Title)
}

func TestUnknownTaskIDErrors(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-4", nil)
	err := tr.StartTask("does-not-exist")
	assert.Error(t, err)
}

func TestClearTasks(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-5", nil)
	tr.AddTask("a")
	tr.AddTask("b")
	require.NoError(t, tr.ClearTasks())
	assert.Empty(t, tr.GetTasks())
}
