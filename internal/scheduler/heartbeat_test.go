package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatTickChecksOffCompletedTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte("- [ ] water the plants\n- [x] already done\n"), 0o644))

	var ran []string
	hb := NewHeartbeat(path, 0, func(ctx context.Context, title string) error {
		ran = append(ran, title)
		return nil
	}, nil, nil)

	hb.tick(context.Background())

	assert.Equal(t, []string{"water the plants"}, ran)
	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "- [x] water the plants (completed")
	assert.Contains(t, string(out), "- [x] already done")
}

func TestHeartbeatOpensCircuitAfterRepeatedFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte("- [ ] flaky task\n"), 0o644))

	calls := 0
	hb := NewHeartbeat(path, 0, func(ctx context.Context, title string) error {
		calls++
		return assert.AnError
	}, nil, nil)

	for i := 0; i < 5; i++ {
		hb.tick(context.Background())
	}

	assert.Equal(t, 3, calls, "circuit should open after 3 consecutive failures and skip subsequent ticks")
}
