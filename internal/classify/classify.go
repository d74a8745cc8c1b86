// Package classify implements the fast deterministic Signal classifier
// and the noise filter described in §4.G. Both are pure functions over a
// message string plus a small regex/keyword table, matching the
// pattern-table style the donor uses for its shell-safety analyzer
// (internal/tools/security/shell_parser.go): a handful of package-level
// compiled regexes and lookup maps, no network or disk access, so the
// classifier's latency stays well under the 1ms budget.
package classify

import (
	"regexp"
	"strings"

	"github.com/osa-run/osa/pkg/models"
)

// genreKeywords maps a Genre label to the keywords that trigger it. Order
// matters: the first matching genre wins, so more specific genres are
// listed before general ones.
var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"code", []string{"function", "class", "bug", "refactor", "compile", "stack trace", "error:"}},
	{"infra", []string{"deploy", "server", "kubernetes", "docker", "ci/cd", "pipeline"}},
	{"data", []string{"dataset", "query", "sql", "csv", "dataframe"}},
	{"ops", []string{"restart", "status", "monitor", "alert"}},
}

var buildVerbs = regexp.MustCompile(`(?i)\b(build|implement|create|write|add|refactor|design)\b`)
var executeVerbs = regexp.MustCompile(`(?i)\b(run|execute|deploy|start|stop|restart|install)\b`)
var maintainVerbs = regexp.MustCompile(`(?i)\b(fix|debug|update|upgrade|patch|maintain|clean ?up)\b`)
var analyzeVerbs = regexp.MustCompile(`(?i)\b(analyze|explain|review|investigate|why|what is|how does)\b`)

var questionWord = regexp.MustCompile(`(?i)^\s*(what|why|how|when|where|who|can you|could you|is|are|do|does)\b`)

// Fast classifies an inbound message into a Signal in well under 1ms:
// every step is a compiled-regex match or a map lookup, no I/O.
func Fast(message, channel string) models.Signal {
	trimmed := strings.TrimSpace(message)
	sig := models.Signal{
		Mode:   classifyMode(trimmed),
		Genre:  classifyGenre(trimmed),
		Type:   classifyType(trimmed),
		Format: "text",
		Weight: classifyWeight(trimmed),
	}
	return sig
}

func classifyMode(msg string) models.Mode {
	switch {
	case executeVerbs.MatchString(msg):
		return models.ModeExecute
	case maintainVerbs.MatchString(msg):
		return models.ModeMaintain
	case buildVerbs.MatchString(msg):
		return models.ModeBuild
	case analyzeVerbs.MatchString(msg):
		return models.ModeAnalyze
	default:
		return models.ModeConverse
	}
}

func classifyGenre(msg string) string {
	lower := strings.ToLower(msg)
	for _, g := range genreKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.genre
			}
		}
	}
	return "general"
}

func classifyType(msg string) string {
	if questionWord.MatchString(msg) || strings.HasSuffix(strings.TrimSpace(msg), "?") {
		return "question"
	}
	if len(msg) > 0 {
		return "request"
	}
	return "general"
}

// classifyWeight scores how much attention the message deserves in
// [0,1]: 0.3 base, plus a length bonus (+0.1 over 20 chars, +0.2 over 60,
// +0.3 over 200) and +0.3 when a build/execute/maintain verb appears,
// capped at 1. NoiseFilter compares it against its MinWeight.
func classifyWeight(msg string) float64 {
	if msg == "" {
		return 0
	}
	weight := 0.3
	switch {
	case len(msg) > 200:
		weight += 0.3
	case len(msg) > 60:
		weight += 0.2
	case len(msg) > 20:
		weight += 0.1
	}
	if buildVerbs.MatchString(msg) || executeVerbs.MatchString(msg) || maintainVerbs.MatchString(msg) {
		weight += 0.3
	}
	if weight > 1 {
		weight = 1
	}
	return weight
}
