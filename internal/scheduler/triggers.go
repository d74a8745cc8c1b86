package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/osa-run/osa/pkg/models"
)

// Trigger is one externally-fireable action (§4.J "Triggers"), aliased
// onto the canonical DTO.
type Trigger = models.Trigger

// TriggerRegistry is the enabled-map keyed by trigger id (§4.J "loaded
// from an enabled map keyed by trigger id").
type TriggerRegistry struct {
	mu       sync.RWMutex
	triggers map[string]Trigger
	dispatch func(Job, string) error
}

func NewTriggerRegistry(dispatch func(Job, string) error) *TriggerRegistry {
	return &TriggerRegistry{triggers: map[string]Trigger{}, dispatch: dispatch}
}

func (r *TriggerRegistry) Register(t Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[t.ID] = t
}

func (r *TriggerRegistry) Load(triggers []Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = make(map[string]Trigger, len(triggers))
	for _, t := range triggers {
		r.triggers[t.ID] = t
	}
}

// FireTrigger looks up id, interpolates payload/timestamp placeholders
// into the trigger's job action template, then dispatches it identically
// to a cron job (§4.J "fire_trigger(id, payload) ... dispatches identically
// to cron job types"). A fired trigger only ever carries an agent or
// command action (models.Trigger has no webhook fields); it is lifted
// into a Job with those two fields populated and everything else zero.
func (r *TriggerRegistry) FireTrigger(id string, payload map[string]any) error {
	r.mu.RLock()
	t, ok := r.triggers[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown trigger %q", id)
	}
	if !t.Enabled {
		return fmt.Errorf("scheduler: trigger %q is disabled", id)
	}

	action := Job{ID: t.ID, Name: t.Name, Enabled: true, Type: t.Type, Job: t.Job, Command: t.Command}
	action = interpolateJob(action, payload)
	return r.dispatch(action, "trigger:"+id)
}

// interpolateJob substitutes {{payload}} (the whole payload as JSON),
// {{timestamp}} (ISO 8601 UTC now), and {{payload.KEY}} into the job's
// action-bearing fields (§4.J "Triggers").
func interpolateJob(job Job, payload map[string]any) Job {
	repl := templateReplacer(payload)
	job.Job = repl(job.Job)
	job.Command = repl(job.Command)
	job.URL = repl(job.URL)
	if job.Headers != nil {
		interpolated := make(map[string]string, len(job.Headers))
		for k, v := range job.Headers {
			interpolated[k] = repl(v)
		}
		job.Headers = interpolated
	}
	return job
}

func templateReplacer(payload map[string]any) func(string) string {
	raw, _ := json.Marshal(payload)
	now := time.Now().UTC().Format(time.RFC3339)

	return func(s string) string {
		if s == "" {
			return s
		}
		s = strings.ReplaceAll(s, "{{payload}}", string(raw))
		s = strings.ReplaceAll(s, "{{timestamp}}", now)
		for k, v := range payload {
			placeholder := fmt.Sprintf("{{payload.%s}}", k)
			s = strings.ReplaceAll(s, placeholder, fmt.Sprintf("%v", v))
		}
		return s
	}
}
