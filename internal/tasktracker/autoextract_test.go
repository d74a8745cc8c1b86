package tasktracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitlesNumberedList(t *testing.T) {
	resp := "Here's the plan:\n1. Set up the database schema\n2. Build the API layer\n3. Write integration tests\n"
	titles := ExtractTitles(resp)
	require.Len(t, titles, 3)
	assert.Equal(t, "Set up the database schema", titles[0])
}

func TestExtractTitlesFiltersShortAndLong(t *testing.T) {
	resp := "1. ok\n2. Build the API layer\n3. " + string(make([]byte, 200))
	titles := ExtractTitles(resp)
	assert.Len(t, titles, 1)
}

func TestMaybeAutoExtractSkipsWhenTasksExist(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-6", nil)
	tr.AddTask("existing task")

	resp := "1. Set up the database\n2. Build the API layer\n3. Write integration tests\n"
	added, err := tr.MaybeAutoExtract(resp)
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Len(t, tr.GetTasks(), 1)
}

func TestMaybeAutoExtractRequiresThreeParsed(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-7", nil)

	resp := "1. Set up the database\n2. Build the API layer\n"
	added, err := tr.MaybeAutoExtract(resp)
	require.NoError(t, err)
	assert.Nil(t, added)
}

func TestMaybeAutoExtractAddsWhenEligible(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir, "sess-8", nil)

	resp := "1. Set up the database schema\n2. Build the API layer\n3. Write integration tests\n"
	added, err := tr.MaybeAutoExtract(resp)
	require.NoError(t, err)
	assert.Len(t, added, 3)
}
