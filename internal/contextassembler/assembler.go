package contextassembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osa-run/osa/pkg/models"
)

// Tier is a block's priority tier (§4.D).
type Tier int

const (
	Tier1 Tier = iota // always, uncapped
	Tier2             // <= 40% of system_budget
	Tier3             // <= 30% of system_budget
	Tier4             // remainder
)

var tierPercent = map[Tier]float64{
	Tier2: 0.40,
	Tier3: 0.30,
}

// Block is one candidate piece of system-prompt content.
type Block struct {
	Name  string
	Tier  Tier
	Text  string
	Order int // declaration order within its tier
}

// BlockUsage is one block's outcome, returned by Build; FormatPressureSummary
// renders a slice of them as a context_pressure payload body.
type BlockUsage struct {
	Name       string
	Tier       Tier
	Tokens     int
	Included   bool
	Truncated  bool
}

// SessionState is the minimal shape the assembler needs from a session;
// callers project their own session type onto this.
type SessionState struct {
	Messages []models.Message
	Channel  string
	SessionID string
}

const (
	defaultMaxTokens  = 128_000
	responseReserve   = 4_096
	minSystemBudget   = 2_000
	truncationMarker  = "\n[... truncated to fit context budget ...]"
)

// Config parameterizes Build; zero value uses §4.D's stated defaults.
type Config struct {
	MaxTokens int
	Tokenizer Tokenizer
}

// Build assembles the system message plus the conversation (§4.D
// contract: `build(session_state, signal?) → [system_message, …conversation]`).
// blocks are every candidate block the caller has prepared (identity,
// tool contract, skill docs, memory, profile, ...); Build fits them into
// the computed system_budget per the tiered fitting algorithm, and
// returns both the assembled messages and the per-block usage breakdown.
func Build(state SessionState, blocks []Block, cfg Config) ([]models.Message, []BlockUsage) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	conversationTokens := 0
	for _, m := range state.Messages {
		conversationTokens += EstimateTokens(cfg.Tokenizer, m.Content) + 4
	}

	systemBudget := maxTokens - responseReserve - conversationTokens
	if systemBudget < minSystemBudget {
		systemBudget = minSystemBudget
	}

	grouped := map[Tier][]Block{}
	for _, b := range blocks {
		grouped[b.Tier] = append(grouped[b.Tier], b)
	}
	for tier := range grouped {
		sort.SliceStable(grouped[tier], func(i, j int) bool {
			return grouped[tier][i].Order < grouped[tier][j].Order
		})
	}

	var sb strings.Builder
	var usage []BlockUsage
	remaining := systemBudget

	// Tier 1: always included in full, cost subtracted before tier 2.
	for _, b := range grouped[Tier1] {
		tokens := EstimateTokens(cfg.Tokenizer, b.Text)
		sb.WriteString(b.Text)
		sb.WriteString("\n")
		remaining -= tokens
		usage = append(usage, BlockUsage{Name: b.Name, Tier: Tier1, Tokens: tokens, Included: true})
	}
	if remaining < 0 {
		remaining = 0
	}

	for _, tier := range []Tier{Tier2, Tier3, Tier4} {
		tierBudget := remaining
		if pct, capped := tierPercent[tier]; capped {
			tierBudget = int(pct * float64(systemBudget))
			if tierBudget > remaining {
				tierBudget = remaining
			}
		}
		spent := 0
		for _, b := range grouped[tier] {
			if spent >= tierBudget {
				usage = append(usage, BlockUsage{Name: b.Name, Tier: tier, Included: false})
				continue
			}
			tokens := EstimateTokens(cfg.Tokenizer, b.Text)
			budgetLeft := tierBudget - spent
			if tokens <= budgetLeft {
				sb.WriteString(b.Text)
				sb.WriteString("\n")
				spent += tokens
				usage = append(usage, BlockUsage{Name: b.Name, Tier: tier, Tokens: tokens, Included: true})
				continue
			}
			truncated := truncateToTokens(b.Text, budgetLeft, cfg.Tokenizer)
			if truncated == "" {
				usage = append(usage, BlockUsage{Name: b.Name, Tier: tier, Included: false})
				continue
			}
			sb.WriteString(truncated)
			sb.WriteString("\n")
			used := EstimateTokens(cfg.Tokenizer, truncated)
			spent += used
			usage = append(usage, BlockUsage{Name: b.Name, Tier: tier, Tokens: used, Included: true, Truncated: true})
		}
		remaining -= spent
		if remaining < 0 {
			remaining = 0
		}
	}

	out := make([]models.Message, 0, len(state.Messages)+1)
	out = append(out, models.Message{Role: models.RoleSystem, Content: sb.String()})
	out = append(out, state.Messages...)
	return out, usage
}

// truncateToTokens shrinks text to fit budget tokens, appending the
// explicit truncation marker, by halving until it fits (token estimation
// is not exact, so this converges rather than computing a precise cut).
func truncateToTokens(text string, budget int, tok Tokenizer) string {
	if budget <= 0 {
		return ""
	}
	runes := []rune(text)
	lo, hi := 0, len(runes)
	best := ""
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := string(runes[:mid]) + truncationMarker
		if EstimateTokens(tok, candidate) <= budget {
			best = candidate
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// FormatPressureSummary renders usage as a human-readable context_pressure
// payload body.
func FormatPressureSummary(usage []BlockUsage) string {
	var sb strings.Builder
	for _, u := range usage {
		status := "included"
		if !u.Included {
			status = "dropped"
		} else if u.Truncated {
			status = "truncated"
		}
		fmt.Fprintf(&sb, "%s (tier %d): %d tokens, %s\n", u.Name, u.Tier+1, u.Tokens, status)
	}
	return sb.String()
}
