package contextassembler

import (
	"strings"
	"testing"

	"github.com/osa-run/osa/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestBuildIncludesTier1InFull(t *testing.T) {
	blocks := []Block{
		{Name: "identity", Tier: Tier1, Text: "you are the assistant"},
	}
	msgs, usage := Build(SessionState{}, blocks, Config{MaxTokens: 10_000})
	require.Equal(t, models.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "you are the assistant")
	require.True(t, usage[0].Included)
}

func TestBuildTruncatesOversizedTier2Block(t *testing.T) {
	huge := strings.Repeat("x ", 100_000)
	blocks := []Block{
		{Name: "skills", Tier: Tier2, Text: huge},
	}
	_, usage := Build(SessionState{}, blocks, Config{MaxTokens: 5_000})
	require.True(t, usage[0].Truncated || !usage[0].Included)
}

func TestBuildAppendsConversationAfterSystemMessage(t *testing.T) {
	msgs := []models.Message{{Role: models.RoleUser, Content: "hello"}}
	out, _ := Build(SessionState{Messages: msgs}, nil, Config{})
	require.Len(t, out, 2)
	require.Equal(t, models.RoleUser, out[1].Role)
}

func TestBuildRespectsTierPercentageCaps(t *testing.T) {
	blocks := []Block{
		{Name: "a", Tier: Tier2, Text: strings.Repeat("word ", 2000)},
		{Name: "b", Tier: Tier3, Text: strings.Repeat("word ", 2000)},
	}
	_, usage := Build(SessionState{}, blocks, Config{MaxTokens: 10_000})
	require.Len(t, usage, 2)
	// system_budget = 10000 - 4096 = 5904; tier 2 cap int(0.40*5904) = 2361,
	// tier 3 cap int(0.30*5904) = 1771. Each block alone is 2500 tokens.
	require.LessOrEqual(t, usage[0].Tokens, 2361)
	require.LessOrEqual(t, usage[1].Tokens, 1771)
}
