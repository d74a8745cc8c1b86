package models

import "time"

// QuietHourRange is a time-of-day window, parsed from OSA_QUIET_HOURS by
// config.ParseQuietHours. Ranges may cross midnight (StartHour > EndHour).
// The heartbeat engine does not consult them; it runs tasks on every tick.
type QuietHourRange struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// HeartbeatCheckState is the per-task record the heartbeat engine keeps
// across ticks (§3 "Heartbeat State").
type HeartbeatCheckState struct {
	TaskTitle        string    `json:"task_title"`
	LastRun          time.Time `json:"last_run"`
	LastResult       string    `json:"last_result"`
	RunCount         int       `json:"run_count"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	CircuitOpen      bool      `json:"circuit_open"`
}

// HeartbeatState is the atomically-persisted heartbeat file contents.
type HeartbeatState struct {
	Checks     map[string]*HeartbeatCheckState `json:"checks"`
	QuietHours []QuietHourRange                `json:"-"`
}

// JobType distinguishes the three cron/trigger dispatch kinds (§3 "Cron Job / Trigger").
type JobType string

const (
	JobAgent   JobType = "agent"
	JobCommand JobType = "command"
	JobWebhook JobType = "webhook"
)

// CronJob is one entry of CRONS.json (§6).
type CronJob struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Enabled    bool    `json:"enabled"`
	Schedule   string  `json:"schedule"`
	Type       JobType `json:"type"`
	Job        string  `json:"job,omitempty"`     // agent task template
	Command    string  `json:"command,omitempty"` // shell command
	URL        string  `json:"url,omitempty"`
	Method     string  `json:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	OnFailure  string  `json:"on_failure,omitempty"`  // "agent"
	FailureJob string  `json:"failure_job,omitempty"`

	ConsecutiveFailures int `json:"-"`
}

// Trigger is one entry of TRIGGERS.json (§6).
type Trigger struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Enabled   bool    `json:"enabled"`
	EventName string  `json:"event_name"`
	Type      JobType `json:"type"`
	Job       string  `json:"job,omitempty"`
	Command   string  `json:"command,omitempty"`

	ConsecutiveFailures int `json:"-"`
}

// TrackerTaskStatus is the lifecycle state of a Task Tracker checklist item.
type TrackerTaskStatus string

const (
	TrackerPending    TrackerTaskStatus = "pending"
	TrackerInProgress TrackerTaskStatus = "in_progress"
	TrackerCompleted  TrackerTaskStatus = "completed"
	TrackerFailed     TrackerTaskStatus = "failed"
)

// TrackerTask is one per-session checklist item (§3 "Task-Tracker Task").
type TrackerTask struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Status      TrackerTaskStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Tokens      int64             `json:"tokens"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
}
