package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa-run/osa/pkg/models"
)

type fakeDecomposeLLM struct {
	response string
	err      error
}

func (f fakeDecomposeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func TestAnalyzeSimple(t *testing.T) {
	isComplex, subTasks, err := Analyze(context.Background(), fakeDecomposeLLM{response: `{"complexity": "simple"}`}, "what time is it")
	require.NoError(t, err)
	assert.False(t, isComplex)
	assert.Empty(t, subTasks)
}

func TestAnalyzeComplexDecomposesDAG(t *testing.T) {
	resp := `{"complexity": "complex", "sub_tasks": [
		{"name": "schema", "description": "design schema", "role": "data", "depends_on": []},
		{"name": "api", "description": "build api", "role": "backend", "depends_on": ["schema"]}
	]}`
	isComplex, subTasks, err := Analyze(context.Background(), fakeDecomposeLLM{response: resp}, "build a feature")
	require.NoError(t, err)
	assert.True(t, isComplex)
	require.Len(t, subTasks, 2)
	assert.Equal(t, models.RoleData, subTasks[0].Role)
	assert.Equal(t, []string{"schema"}, subTasks[1].DependsOn)
}

func TestAnalyzeToleratesCodeFenceWrapping(t *testing.T) {
	resp := "```json\n{\"complexity\": \"simple\"}\n```"
	isComplex, _, err := Analyze(context.Background(), fakeDecomposeLLM{response: resp}, "hi")
	require.NoError(t, err)
	assert.False(t, isComplex)
}

func TestAnalyzeRejectsInvalidSchema(t *testing.T) {
	_, _, err := Analyze(context.Background(), fakeDecomposeLLM{response: `{"complexity": "nonsense"}`}, "x")
	assert.Error(t, err)
}
