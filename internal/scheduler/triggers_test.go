package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireTriggerInterpolatesPayload(t *testing.T) {
	var dispatched Job
	r := NewTriggerRegistry(func(job Job, source string) error {
		dispatched = job
		return nil
	})
	r.Register(Trigger{
		ID:      "deploy",
		Enabled: true,
		Type:    JobAgent,
		Job:     "deploy {{payload.env}} at {{timestamp}}",
	})

	err := r.FireTrigger("deploy", map[string]any{"env": "staging"})
	require.NoError(t, err)
	assert.Contains(t, dispatched.Job, "deploy staging at")
}

func TestFireTriggerRejectsDisabled(t *testing.T) {
	r := NewTriggerRegistry(func(job Job, source string) error { return nil })
	r.Register(Trigger{ID: "x", Enabled: false, Type: JobAgent})
	err := r.FireTrigger("x", nil)
	assert.Error(t, err)
}

func TestFireTriggerUnknownID(t *testing.T) {
	r := NewTriggerRegistry(func(job Job, source string) error { return nil })
	err := r.FireTrigger("nope", nil)
	assert.Error(t, err)
}
