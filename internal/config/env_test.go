package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuietHoursOvernight(t *testing.T) {
	ranges := ParseQuietHours("22:00-06:00,13:00-13:30")
	require.Len(t, ranges, 2)
	require.Equal(t, 22, ranges[0].StartHour)
	require.Equal(t, 6, ranges[0].EndHour)
	require.Equal(t, 13, ranges[1].StartHour)
	require.Equal(t, 30, ranges[1].EndMinute)
}

func TestParseQuietHoursEmpty(t *testing.T) {
	require.Nil(t, ParseQuietHours(""))
	require.Nil(t, ParseQuietHours("  "))
}

func TestLoadRuntimeDefaults(t *testing.T) {
	t.Setenv("OSA_DAILY_BUDGET_USD", "")
	rt := LoadRuntime()
	require.Equal(t, 20.0, rt.DailyBudgetUSD)
	require.Equal(t, "anthropic", rt.DefaultProvider)
}
