package models

import (
	"strings"
	"time"
)

// Orchestrator sub-task roles use the Role type declared in message.go;
// nine values are codified at design level with legacy aliases normalized
// onto them (§4.I).
const (
	RoleLead     Role = "lead"
	RoleBackend  Role = "backend"
	RoleFrontend Role = "frontend"
	RoleData     Role = "data"
	RoleDesign   Role = "design"
	RoleInfra    Role = "infra"
	RoleQA       Role = "qa"
	RoleRedTeam  Role = "red_team"
	RoleServices Role = "services"
)

// legacyRoleAliases maps older/alternate spellings onto the canonical
// nine roles, per §4.I "legacy aliases accepted and normalized".
var legacyRoleAliases = map[string]Role{
	"architect":    RoleLead,
	"coordinator":  RoleLead,
	"orchestrator": RoleLead,
	"api":        RoleBackend,
	"server":     RoleBackend,
	"ui":         RoleFrontend,
	"client":     RoleFrontend,
	"database":   RoleData,
	"analytics":  RoleData,
	"ux":         RoleDesign,
	"devops":     RoleInfra,
	"ops":        RoleInfra,
	"test":       RoleQA,
	"testing":    RoleQA,
	"security":   RoleRedTeam,
	"pentest":    RoleRedTeam,
	"integration": RoleServices,
}

// NormalizeRole maps a free-form role string onto the canonical Role set.
// Unknown values fall back to RoleServices, the most general worker role.
func NormalizeRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	r := Role(s)
	switch r {
	case RoleLead, RoleBackend, RoleFrontend, RoleData, RoleDesign, RoleInfra, RoleQA, RoleRedTeam, RoleServices:
		return r
	}
	if canon, ok := legacyRoleAliases[s]; ok {
		return canon
	}
	return RoleServices
}

// Tier is a capability class selecting a model, temperature, iteration
// cap, and token budget for a sub-agent (§3 "Tier", GLOSSARY "Tier").
type Tier string

const (
	TierElite      Tier = "elite"
	TierSpecialist Tier = "specialist"
	TierUtility    Tier = "utility"
)

// TierSettings are the concrete parameters a Tier resolves to for one
// provider. For a local provider these are derived dynamically from the
// reported model list (SPEC_FULL.md "Provider tier-map auto-derivation").
type TierSettings struct {
	Tier            Tier    `json:"tier"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	MaxIterations   int     `json:"max_iterations"`
	MaxResponseTokens int   `json:"max_response_tokens"`
}

// DefaultTierSettings returns the temperature/iteration/token defaults
// named verbatim in §4.I ("temperature by tier elite 0.5, specialist 0.4,
// utility 0.2", "max iterations 25/15/8", "max response tokens 8k/4k/2k").
func DefaultTierSettings(tier Tier) TierSettings {
	switch tier {
	case TierElite:
		return TierSettings{Tier: tier, Temperature: 0.5, MaxIterations: 25, MaxResponseTokens: 8192}
	case TierSpecialist:
		return TierSettings{Tier: tier, Temperature: 0.4, MaxIterations: 15, MaxResponseTokens: 4096}
	default:
		return TierSettings{Tier: TierUtility, Temperature: 0.2, MaxIterations: 8, MaxResponseTokens: 2048}
	}
}

// SubTaskStatus is the lifecycle state of one orchestrated sub-agent.
type SubTaskStatus string

const (
	SubTaskPending   SubTaskStatus = "pending"
	SubTaskRunning   SubTaskStatus = "running"
	SubTaskCompleted SubTaskStatus = "completed"
	SubTaskFailed    SubTaskStatus = "failed"
)

// SubTask is one node of the orchestrator's dependency DAG (§3 "Task (Orchestrator)").
type SubTask struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Role          Role     `json:"role"`
	ToolsNeeded   []string `json:"tools_needed,omitempty"`
	DependsOn     []string `json:"depends_on,omitempty"`

	Status            SubTaskStatus `json:"status"`
	Tier              Tier          `json:"tier"`
	ToolUseCount      int           `json:"tool_use_count"`
	EstimatedTokens   int           `json:"estimated_tokens"`
	CurrentAction     string        `json:"current_action,omitempty"`
	Result            string        `json:"result,omitempty"`
	Error             string        `json:"error,omitempty"`
	StartedAt         time.Time     `json:"started_at,omitempty"`
	CompletedAt       time.Time     `json:"completed_at,omitempty"`
}

// TaskStrategy distinguishes a single-turn reply from an orchestrated run.
type TaskStrategy string

const (
	StrategySimple  TaskStrategy = "simple"
	StrategyComplex TaskStrategy = "complex"
)

// Task is one orchestrator run: the original request decomposed into a
// DAG of SubTasks, executed wave by wave, and synthesized into one reply.
type Task struct {
	ID              string       `json:"id"`
	OriginalMessage string       `json:"original_message"`
	SessionID       string       `json:"session_id"`
	Strategy        TaskStrategy `json:"strategy"`
	SubTasks        []*SubTask   `json:"sub_tasks"`
	Synthesis       string       `json:"synthesis,omitempty"`
	Partial         bool         `json:"partial,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	CompletedAt     time.Time    `json:"completed_at,omitempty"`
}
