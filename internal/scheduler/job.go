package scheduler

import "github.com/osa-run/osa/pkg/models"

// JobType is scheduler's dispatchable job kind, aliased onto the
// canonical type so cron jobs, triggers, and heartbeat delegation all
// agree on one set of values (§4.J "Three job types").
type JobType = models.JobType

const (
	JobAgent   = models.JobAgent
	JobCommand = models.JobCommand
	JobWebhook = models.JobWebhook
)

// Job is the dispatchable action shape cron jobs reduce to; aliased onto
// the canonical cron-job DTO since dispatch only ever needs its type and
// action fields (§4.J). Triggers carry a narrower models.Trigger and are
// lifted into a Job at fire time by FireTrigger.
type Job = models.CronJob
