package tasktracker

import (
	"regexp"
	"strings"
)

const (
	minTitleLen   = 5
	maxTitleLen   = 120
	maxExtracted  = 20
	minParsedRule = 3
)

var (
	numberedListLine = regexp.MustCompile(`^\s*\d+\.\s+(.+)$`)
	checkboxListLine = regexp.MustCompile(`^\s*-\s*\[[ xX]\]\s+(.+)$`)
)

// ExtractTitles parses numbered-list and checkbox lines out of an
// assistant response, filtering to 5..120 char titles and capping at 20
// unique entries (§4.L "Auto-extraction").
func ExtractTitles(response string) []string {
	seen := map[string]bool{}
	var out []string

	for _, line := range strings.Split(response, "\n") {
		var title string
		if m := numberedListLine.FindStringSubmatch(line); m != nil {
			title = strings.TrimSpace(m[1])
		} else if m := checkboxListLine.FindStringSubmatch(line); m != nil {
			title = strings.TrimSpace(m[1])
		} else {
			continue
		}

		if len(title) < minTitleLen || len(title) > maxTitleLen {
			continue
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		out = append(out, title)
		if len(out) >= maxExtracted {
			break
		}
	}
	return out
}

// MaybeAutoExtract adds extracted titles only if the session currently
// has zero tasks and at least 3 titles were parsed. It is not registered
// as a post-response hook; nothing in the module calls it after a reply.
func (t *Tracker) MaybeAutoExtract(response string) ([]Task, error) {
	titles := ExtractTitles(response)
	if len(titles) < minParsedRule {
		return nil, nil
	}
	if len(t.GetTasks()) != 0 {
		return nil, nil
	}
	return t.AddTasks(titles)
}
