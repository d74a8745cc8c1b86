package orchestrator

import (
	"log/slog"

	"github.com/osa-run/osa/pkg/models"
)

const defaultMaxConcurrentAgents = 10

// Waves topologically sorts sub-tasks into dependency waves (§4.I
// "Scheduling algorithm"). Wave n contains every sub-task whose
// depends_on is entirely satisfied by waves 0..n-1. If no task in the
// remaining set is ready but tasks remain — a cycle — every remaining
// task is forced into one final wave rather than deadlocking. Pointers
// are threaded through (rather than copied) so execution can mutate each
// SubTask's Status/Tier/Result fields in place for progress() and
// list_tasks() to observe.
func Waves(subTasks []*models.SubTask, maxConcurrentAgents int, logger *slog.Logger) [][]*models.SubTask {
	if maxConcurrentAgents <= 0 {
		maxConcurrentAgents = defaultMaxConcurrentAgents
	}
	if logger == nil {
		logger = slog.Default()
	}

	capped := subTasks
	if len(capped) > maxConcurrentAgents {
		logger.Warn("orchestrator: sub-task count exceeds max_concurrent_agents, truncating",
			"requested", len(capped), "cap", maxConcurrentAgents)
		capped = capped[:maxConcurrentAgents]
	}

	byName := make(map[string]*models.SubTask, len(capped))
	for _, st := range capped {
		byName[st.Name] = st
	}

	remaining := make(map[string]*models.SubTask, len(capped))
	for _, st := range capped {
		remaining[st.Name] = st
	}

	var waves [][]*models.SubTask
	done := map[string]bool{}

	for len(remaining) > 0 {
		var wave []*models.SubTask
		for _, st := range remaining {
			if dependsSatisfied(st.DependsOn, done, byName) {
				wave = append(wave, st)
			}
		}

		if len(wave) == 0 {
			logger.Warn("orchestrator: dependency cycle detected among remaining sub-tasks, forcing final parallel wave",
				"remaining_count", len(remaining))
			for _, st := range remaining {
				wave = append(wave, st)
			}
			waves = append(waves, wave)
			return waves
		}

		for _, st := range wave {
			delete(remaining, st.Name)
			done[st.Name] = true
		}
		waves = append(waves, wave)
	}

	return waves
}

// dependsSatisfied reports whether every dependency in deps is either
// already completed, or not a known sub-task name (an unresolvable
// dependency is treated as satisfied so one bad edge can't deadlock the
// whole schedule).
func dependsSatisfied(deps []string, done map[string]bool, byName map[string]*models.SubTask) bool {
	for _, d := range deps {
		if _, known := byName[d]; !known {
			continue
		}
		if !done[d] {
			return false
		}
	}
	return true
}
