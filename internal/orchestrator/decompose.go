package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/osa-run/osa/pkg/models"
)

// decomposition is the raw strict-JSON shape the decomposition LLM call
// must emit (§4.I "the response encodes either {complexity: simple} or
// {complexity: complex, sub_tasks: [...]}").
type decomposition struct {
	Complexity string `json:"complexity"`
	SubTasks   []struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Role        string   `json:"role"`
		ToolsNeeded []string `json:"tools_needed"`
		DependsOn   []string `json:"depends_on"`
	} `json:"sub_tasks"`
}

const decompositionSchemaJSON = `{
  "type": "object",
  "required": ["complexity"],
  "properties": {
    "complexity": {"type": "string", "enum": ["simple", "complex"]},
    "sub_tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "description", "role"],
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "role": {"type": "string"},
          "tools_needed": {"type": "array", "items": {"type": "string"}},
          "depends_on": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var decompositionSchema = mustCompileSchema(decompositionSchemaJSON)

func mustCompileSchema(schemaJSON string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("decomposition.json", strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Errorf("orchestrator: invalid decomposition schema: %w", err))
	}
	s, err := c.Compile("decomposition.json")
	if err != nil {
		panic(fmt.Errorf("orchestrator: compile decomposition schema: %w", err))
	}
	return s
}

// DecomposeLLM is the narrow chat contract the decomposition step needs.
type DecomposeLLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const decomposePrompt = `You are a task decomposition engine. Given a user request, decide whether it is "simple" (one agent can handle it directly) or "complex" (it benefits from being split across specialist sub-agents).

Respond with ONLY strict JSON matching this shape, no prose:
{"complexity": "simple"} OR
{"complexity": "complex", "sub_tasks": [{"name": "...", "description": "...", "role": "lead|backend|frontend|data|design|infra|qa|red_team|services", "tools_needed": ["..."], "depends_on": ["..."]}]}

Roles must come from the enumerated list. depends_on names must reference other sub_tasks' "name" fields.`

// Analyze runs the decomposition LLM call and validates its strict-JSON
// output against a fixed schema before trusting it (§4.I, DOMAIN STACK
// jsonschema entry).
func Analyze(ctx context.Context, llm DecomposeLLM, message string) (bool, []models.SubTask, error) {
	raw, err := llm.Complete(ctx, decomposePrompt, message)
	if err != nil {
		return false, nil, fmt.Errorf("orchestrator: decomposition call: %w", err)
	}

	raw = extractJSON(raw)
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return false, nil, fmt.Errorf("orchestrator: decomposition output not JSON: %w", err)
	}
	if err := decompositionSchema.Validate(doc); err != nil {
		return false, nil, fmt.Errorf("orchestrator: decomposition output failed schema: %w", err)
	}

	var parsed decomposition
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return false, nil, fmt.Errorf("orchestrator: decode decomposition: %w", err)
	}

	if parsed.Complexity != "complex" || len(parsed.SubTasks) == 0 {
		return false, nil, nil
	}

	subTasks := make([]models.SubTask, 0, len(parsed.SubTasks))
	for _, st := range parsed.SubTasks {
		subTasks = append(subTasks, models.SubTask{
			Name:        st.Name,
			Description: st.Description,
			Role:        models.NormalizeRole(st.Role),
			ToolsNeeded: st.ToolsNeeded,
			DependsOn:   st.DependsOn,
			Status:      models.SubTaskPending,
		})
	}
	return true, subTasks, nil
}

// extractJSON trims leading/trailing prose or code fences a model may
// wrap strict JSON output in, taking the outermost {...} span.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
