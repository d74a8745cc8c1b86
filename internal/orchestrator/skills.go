package orchestrator

import (
	"strings"
	"sync"
)

// Skill is one learned/registered capability (§4.I "Skill lifecycle").
// The on-disk skill-definition file format stays out of scope; this
// registry covers only the in-process create, match and suggest-or-create
// operations, held in memory.
type Skill struct {
	Name         string
	Description  string
	Instructions string
	Tools        []string
}

// SkillRegistry is a long-lived actor-style component (§5) owning its own
// skill set; reads and writes are both serialized by its mutex since
// skill creation is rare relative to orchestration calls.
type SkillRegistry struct {
	mu     sync.Mutex
	skills []Skill
}

func NewSkillRegistry() *SkillRegistry {
	return &SkillRegistry{}
}

// CreateSkill registers a new skill in memory and returns it; it writes no
// file and emits no bus event.
func (r *SkillRegistry) CreateSkill(name, description, instructions string, tools []string) Skill {
	s := Skill{Name: name, Description: description, Instructions: instructions, Tools: tools}
	r.mu.Lock()
	r.skills = append(r.skills, s)
	r.mu.Unlock()
	return s
}

// Match scores every registered skill's relevance to a query using a
// simple keyword-overlap heuristic (word Jaccard over name+description),
// matching the donor's lightweight text-similarity style for this kind
// of auxiliary lookup (no embedding model is in scope here).
func (r *SkillRegistry) Match(query string) []ScoredSkill {
	r.mu.Lock()
	defer r.mu.Unlock()

	qWords := wordSet(query)
	out := make([]ScoredSkill, 0, len(r.skills))
	for _, s := range r.skills {
		score := jaccard(qWords, wordSet(s.Name+" "+s.Description))
		out = append(out, ScoredSkill{Skill: s, Score: score})
	}
	return out
}

// ScoredSkill pairs a Skill with its relevance score against a query.
type ScoredSkill struct {
	Skill Skill
	Score float64
}

const relevanceThreshold = 0.5

// SuggestOrCreate first checks the registry for matches above the
// relevance threshold; if any exist, creation is short-circuited and the
// candidates are returned for user confirmation instead (§4.I
// "suggest_or_create... first queries the Skill Registry for matches
// above a relevance threshold (0.5); high-relevance matches short-circuit
// creation").
func (r *SkillRegistry) SuggestOrCreate(name, description, instructions string, tools []string) (created *Skill, suggestions []ScoredSkill) {
	candidates := r.Match(description)
	var relevant []ScoredSkill
	for _, c := range candidates {
		if c.Score >= relevanceThreshold {
			relevant = append(relevant, c)
		}
	}
	if len(relevant) > 0 {
		return nil, relevant
	}
	s := r.CreateSkill(name, description, instructions, tools)
	return &s, nil
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
