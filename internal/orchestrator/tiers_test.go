package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa-run/osa/pkg/models"
)

func TestStaticTierMapSettings(t *testing.T) {
	tm := NewStaticTierMap("gpt-elite", "gpt-specialist", "gpt-utility")

	elite := tm.Settings(models.TierElite)
	assert.Equal(t, "gpt-elite", elite.Model)
	assert.Equal(t, 0.5, elite.Temperature)
	assert.Equal(t, 25, elite.MaxIterations)
	assert.Equal(t, 8192, elite.MaxResponseTokens)

	utility := tm.Settings(models.TierUtility)
	assert.Equal(t, "gpt-utility", utility.Model)
	assert.Equal(t, 0.2, utility.Temperature)
	assert.Equal(t, 8, utility.MaxIterations)
}

func TestLocalTierMapDerivesFromModelSize(t *testing.T) {
	tm := NewLocalTierMap([]string{"llama-8b", "llama-70b", "llama-1b"})
	assert.Equal(t, "llama-70b", tm.models[models.TierElite])
	assert.Equal(t, "llama-1b", tm.models[models.TierUtility])
}

func TestRoleTierAssignment(t *testing.T) {
	assert.Equal(t, models.TierElite, roleTier(models.RoleLead))
	assert.Equal(t, models.TierSpecialist, roleTier(models.RoleQA))
	assert.Equal(t, models.TierUtility, roleTier(models.RoleDesign))
}
