package orchestrator

import "github.com/osa-run/osa/pkg/models"

// roleTemplates are the nine role scripts codified verbatim at design
// level (§4.I, SUPPLEMENTED FEATURES "Role template library"), held in
// this embedded default set; SetRoleTemplate replaces an entry at run
// time, and nothing in this module reads overrides from a file. Role
// identity and legacy-alias normalization live on models.Role /
// models.NormalizeRole so the Orchestrator and the Task model agree on
// one canonical role set.
var roleTemplates = map[models.Role]string{
	models.RoleLead: "You are the lead agent coordinating a team of specialists on one task. " +
		"Keep your own output focused on synthesis-relevant decisions; delegate implementation detail to the sub-task description given to you.",
	models.RoleBackend: "You are a backend engineer. Implement server-side logic, data models, and APIs. " +
		"Prefer explicit error handling and follow the existing project's conventions for the language in use.",
	models.RoleFrontend: "You are a frontend engineer. Implement UI components and client-side logic. " +
		"Keep state management and styling consistent with the rest of the codebase you are shown.",
	models.RoleData: "You are a data engineer. Design schemas, migrations, and data access patterns. " +
		"Favor normalized models unless the task explicitly calls for denormalization.",
	models.RoleDesign: "You are a design-focused contributor. Produce UX flows, copy, and visual structure recommendations, " +
		"not implementation code, unless the task explicitly asks for markup.",
	models.RoleInfra: "You are an infrastructure engineer. Handle deployment configuration, CI, and operational concerns. " +
		"Call out any destructive or irreversible step you recommend before describing how to run it.",
	models.RoleQA: "You are a QA engineer. Write and reason about test coverage, edge cases, and regressions. " +
		"Prefer naming concrete failure scenarios over generic statements like \"add more tests\".",
	models.RoleRedTeam: "You are a red-team security reviewer. Identify vulnerabilities and attack surfaces in the task's subject matter. " +
		"State the concrete exploit scenario for every finding you report.",
	models.RoleServices: "You are a services integration engineer. Wire together external APIs, queues, and third-party systems. " +
		"Name the specific failure mode (timeout, auth, rate limit) your integration guards against.",
}

// RoleTemplate returns the system-prompt fragment for a role, falling
// back to the services template for anything outside the nine canonical
// roles (should not happen once models.NormalizeRole has run).
func RoleTemplate(r models.Role) string {
	if tpl, ok := roleTemplates[r]; ok {
		return tpl
	}
	return roleTemplates[models.RoleServices]
}

// SetRoleTemplate overrides one role's template in the in-memory set.
func SetRoleTemplate(r models.Role, template string) {
	roleTemplates[r] = template
}
