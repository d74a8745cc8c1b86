// Package compaction implements the History Compactor (§4.E): a
// serialized actor that keeps a session's message history within its
// provider's context window via threshold-triggered summarization or
// emergency truncation.
package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/osa-run/osa/pkg/models"
)

const charsPerToken = 4

// EstimateTokens is a character-count heuristic: about 4 characters (bytes)
// per token, rounded up.
func EstimateTokens(content string) int {
	return (len(content) + charsPerToken - 1) / charsPerToken
}

func estimateMessages(msgs []models.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}

// Summarizer produces an LLM summary of messages under the given prompt
// instruction (e.g. "key facts, bullet points only").
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.Message, instruction string) (string, error)
}

// Stats are the compactor's running counters.
type Stats struct {
	CompactionCount int
	TokensSaved     int
	LastAt          time.Time
}

// Compactor is the serialized History Compactor actor (§4.E). Safe for
// concurrent use; MaybeCompact never returns an error — any internal
// failure yields the input unchanged (emergency tier aside, which is
// itself the designated fallback).
type Compactor struct {
	mu         sync.Mutex
	stats      Stats
	summarizer Summarizer
	logger     *slog.Logger
}

// New builds a Compactor. summarizer may be nil; in that case Tier 1/2
// immediately fall back to Tier 3 since no LLM is available to summarize.
func New(summarizer Summarizer, logger *slog.Logger) *Compactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{summarizer: summarizer, logger: logger.With("component", "compaction")}
}

// Stats returns a copy of the compactor's current counters.
func (c *Compactor) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// MaybeCompact applies §4.E's tier thresholds on tokens_before/maxTokens
// and returns the (possibly unchanged) message slice. It never panics or
// returns an error to the caller.
func (c *Compactor) MaybeCompact(ctx context.Context, messages []models.Message, maxTokens int) (result []models.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("compaction panicked, returning history unchanged", "recover", r)
			result = messages
		}
	}()
	if maxTokens <= 0 {
		return messages
	}

	before := estimateMessages(messages)
	ratio := float64(before) / float64(maxTokens)

	var (
		out  []models.Message
		tier string
	)

	switch {
	case ratio > 0.95:
		out, tier = c.emergencyTruncate(messages), "emergency"
	case ratio > 0.85:
		out, tier = c.summarizeFraction(ctx, messages, 0.50, "key facts, bullet points only"), "aggressive"
	case ratio > 0.80:
		out, tier = c.summarizeFraction(ctx, messages, 0.30, "preserve decisions and key facts"), "background"
	default:
		return messages
	}

	after := estimateMessages(out)
	c.mu.Lock()
	c.stats.CompactionCount++
	c.stats.TokensSaved += before - after
	c.stats.LastAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("compacted session history",
		"tier", tier, "tokens_before", before, "tokens_after", after, "tokens_saved", before-after)
	return out
}

// emergencyTruncate implements Tier 3 (§4.E): no LLM call, keep all
// system messages plus the last 10 non-system messages, and replace
// earlier non-system messages with one synthetic summary message.
func (c *Compactor) emergencyTruncate(messages []models.Message) []models.Message {
	var system []models.Message
	var rest []models.Message
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	keep := 10
	if len(rest) <= keep {
		return messages
	}

	dropped := rest[:len(rest)-keep]
	kept := rest[len(rest)-keep:]

	var parts []string
	for _, m := range dropped {
		if m.Role != models.RoleUser {
			continue
		}
		text := m.Content
		if len(text) > 100 {
			text = text[:100]
		}
		parts = append(parts, text)
	}
	summaryText := fmt.Sprintf("[Context truncated … Earlier conversation was about: %s]", strings.Join(parts, "; "))
	if len(summaryText) > 500 {
		summaryText = summaryText[:500]
	}

	out := make([]models.Message, 0, len(system)+1+len(kept))
	out = append(out, system...)
	out = append(out, models.Message{Role: models.RoleSystem, Content: summaryText})
	out = append(out, kept...)
	return out
}

// summarizeFraction implements Tiers 1/2 (§4.E): LLM-summarize the oldest
// fraction of non-system messages, falling back to emergencyTruncate if
// no summarizer is configured or the summarization call fails.
func (c *Compactor) summarizeFraction(ctx context.Context, messages []models.Message, fraction float64, instruction string) []models.Message {
	if c.summarizer == nil {
		return c.emergencyTruncate(messages)
	}

	var system []models.Message
	var rest []models.Message
	restIdx := make([]int, 0, len(messages))
	for i, m := range messages {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
			restIdx = append(restIdx, i)
		}
	}

	n := int(float64(len(rest)) * fraction)
	if n <= 0 {
		return messages
	}
	oldest := rest[:n]
	newest := rest[n:]

	summary, err := c.summarizer.Summarize(ctx, oldest, instruction)
	if err != nil {
		c.logger.Warn("summarization failed, falling back to emergency truncation", "error", err)
		return c.emergencyTruncate(messages)
	}

	out := make([]models.Message, 0, len(system)+1+len(newest))
	out = append(out, system...)
	out = append(out, models.Message{Role: models.RoleSystem, Content: "[Context Summary] " + summary})
	out = append(out, newest...)
	return out
}
