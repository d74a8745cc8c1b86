package classify

import (
	"testing"

	"github.com/osa-run/osa/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestFastTypicalBuildRequest(t *testing.T) {
	sig := Fast("can you build a function that parses CSV files and refactor the loader", "cli")
	require.Equal(t, models.ModeBuild, sig.Mode)
	require.Equal(t, "code", sig.Genre)
	require.Greater(t, sig.Weight, 0.5)
}

func TestFastExecuteModeWins(t *testing.T) {
	sig := Fast("please restart the server and run the deploy script", "cli")
	require.Equal(t, models.ModeExecute, sig.Mode)
}

func TestFilterGreetingIsNoise(t *testing.T) {
	v := Filter("thanks")
	require.True(t, v.Noise)
	require.Equal(t, ReasonPatternMatch, v.Reason)
	require.Equal(t, "Got it.", Acknowledgment(v.Reason))
}

func TestFilterEmptyIsNoise(t *testing.T) {
	v := Filter("   ")
	require.True(t, v.Noise)
	require.Equal(t, ReasonEmpty, v.Reason)
	require.Equal(t, "", Acknowledgment(v.Reason))
}

func TestFilterRealRequestIsSignal(t *testing.T) {
	v := Filter("build a dependency graph resolver and implement the wave scheduler for it")
	require.False(t, v.Noise)
	require.Equal(t, models.ModeBuild, v.Signal.Mode)
}
