package models

// Mode is the coarse intent bucket a Signal is classified into.
type Mode string

const (
	ModeAnalyze  Mode = "analyze"
	ModeBuild    Mode = "build"
	ModeExecute  Mode = "execute"
	ModeMaintain Mode = "maintain"
	ModeConverse Mode = "converse"
)

// Signal is the 5-tuple classification of an inbound message (§3 "Signal").
// Genre, Type, and Format are intentionally free-form strings: the donor
// classifier tables grow new values without a code change. No plan-mode
// trigger is evaluated against them.
type Signal struct {
	Mode   Mode    `json:"mode"`
	Genre  string  `json:"genre,omitempty"`
	Type   string  `json:"type,omitempty"`
	Format string  `json:"format,omitempty"`
	Weight float64 `json:"weight"`
}
