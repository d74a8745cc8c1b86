package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa-run/osa/pkg/models"
)

func TestWavesThreeStageDAG(t *testing.T) {
	subTasks := []*models.SubTask{
		{Name: "schema", Role: models.RoleData},
		{Name: "api", Role: models.RoleBackend, DependsOn: []string{"schema"}},
		{Name: "ui", Role: models.RoleFrontend, DependsOn: []string{"api"}},
	}

	waves := Waves(subTasks, 10, nil)
	require.Len(t, waves, 3)
	assert.Equal(t, "schema", waves[0][0].Name)
	assert.Equal(t, "api", waves[1][0].Name)
	assert.Equal(t, "ui", waves[2][0].Name)
}

func TestWavesIndependentTasksShareOneWave(t *testing.T) {
	subTasks := []*models.SubTask{
		{Name: "a", Role: models.RoleBackend},
		{Name: "b", Role: models.RoleFrontend},
	}
	waves := Waves(subTasks, 10, nil)
	require.Len(t, waves, 1)
	assert.Len(t, waves[0], 2)
}

func TestWavesCycleForcesFinalWave(t *testing.T) {
	subTasks := []*models.SubTask{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}
	waves := Waves(subTasks, 10, nil)
	require.Len(t, waves, 1)
	assert.Len(t, waves[0], 2)
}

func TestWavesCapsAtMaxConcurrentAgents(t *testing.T) {
	subTasks := make([]*models.SubTask, 15)
	for i := range subTasks {
		subTasks[i] = &models.SubTask{Name: string(rune('a' + i))}
	}
	waves := Waves(subTasks, 10, nil)
	total := 0
	for _, w := range waves {
		total += len(w)
	}
	assert.Equal(t, 10, total)
}

func TestNormalizeRoleLegacyAlias(t *testing.T) {
	assert.Equal(t, models.RoleBackend, models.NormalizeRole("api"))
	assert.Equal(t, models.RoleRedTeam, models.NormalizeRole("security"))
	assert.Equal(t, models.RoleServices, models.NormalizeRole("unknown-thing"))
	assert.Equal(t, models.RoleQA, models.NormalizeRole("QA"))
}
