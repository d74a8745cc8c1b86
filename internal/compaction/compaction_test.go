package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/osa-run/osa/pkg/models"
	"github.com/stretchr/testify/require"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f fakeSummarizer) Summarize(ctx context.Context, messages []models.Message, instruction string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func manyMessages(n int, contentLen int) []models.Message {
	out := make([]models.Message, n)
	for i := range out {
		out[i] = models.Message{Role: models.RoleUser, Content: strings.Repeat("x", contentLen)}
	}
	return out
}

func TestMaybeCompactUnchangedBelowThreshold(t *testing.T) {
	c := New(nil, nil)
	msgs := manyMessages(5, 10)
	out := c.MaybeCompact(context.Background(), msgs, 100_000)
	require.Equal(t, msgs, out)
}

func TestMaybeCompactEmergencyTierAbove95Percent(t *testing.T) {
	c := New(nil, nil)
	msgs := manyMessages(50, 1000)
	out := c.MaybeCompact(context.Background(), msgs, 1000)
	require.Less(t, len(out), len(msgs))
	require.Contains(t, out[0].Content, "truncated")
}

func TestMaybeCompactAggressiveUsesSummarizer(t *testing.T) {
	c := New(fakeSummarizer{summary: "summary text"}, nil)
	msgs := manyMessages(50, 80)
	out := c.MaybeCompact(context.Background(), msgs, 1100)
	found := false
	for _, m := range out {
		if strings.Contains(m.Content, "[Context Summary]") {
			found = true
		}
	}
	require.True(t, found)
}

func TestMaybeCompactSummarizerFailureFallsBackToEmergency(t *testing.T) {
	c := New(fakeSummarizer{err: errors.New("boom")}, nil)
	// 50 messages of 80 chars = 1000 tokens; 1000/1100 ≈ 0.91 lands in the
	// aggressive (summarizing) tier, so the failing summarizer is exercised.
	msgs := manyMessages(50, 80)
	out := c.MaybeCompact(context.Background(), msgs, 1100)
	require.Contains(t, out[0].Content, "truncated")
}

func TestStatsAccumulate(t *testing.T) {
	c := New(nil, nil)
	msgs := manyMessages(50, 1000)
	c.MaybeCompact(context.Background(), msgs, 1000)
	require.Equal(t, 1, c.Stats().CompactionCount)
}
