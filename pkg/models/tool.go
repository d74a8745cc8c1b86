package models

import "encoding/json"

// ToolMetadata carries the optional flags a registered tool can declare
// (§3 "Tool Definition"). The schema and execute function live with the
// tool implementation, not in this persistence-facing struct.
type ToolMetadata struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Schema       json.RawMessage `json:"schema"`
	Destructive  bool            `json:"destructive,omitempty"`
	NeedsConfirm bool            `json:"needs_confirmation,omitempty"`
}
