package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestOrCreateShortCircuitsOnRelevantMatch(t *testing.T) {
	r := NewSkillRegistry()
	r.CreateSkill("deploy_staging", "deploy the staging environment", "run deploy script", nil)

	created, suggestions := r.SuggestOrCreate("deploy_staging_2", "deploy the staging environment again", "", nil)
	assert.Nil(t, created)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "deploy_staging", suggestions[0].Skill.Name)
}

func TestSuggestOrCreateCreatesWhenNoMatch(t *testing.T) {
	r := NewSkillRegistry()
	created, suggestions := r.SuggestOrCreate("totally_new", "a completely unrelated capability", "do the thing", nil)
	assert.Empty(t, suggestions)
	require.NotNil(t, created)
	assert.Equal(t, "totally_new", created.Name)
}
