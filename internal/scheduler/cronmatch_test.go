package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronEveryFiveMinutes(t *testing.T) {
	spec, err := ParseCronSpec("*/5 * * * *")
	require.NoError(t, err)
	assert.True(t, spec.Matches(time.Date(2026, 1, 1, 10, 25, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 1, 1, 10, 26, 0, 0, time.UTC)))
}

func TestCronWeekdaysAtNine(t *testing.T) {
	spec, err := ParseCronSpec("0 9 * * 1-5")
	require.NoError(t, err)
	// 2026-01-05 is a Monday.
	assert.True(t, spec.Matches(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)))
	// 2026-01-04 is a Sunday.
	assert.False(t, spec.Matches(time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)))
}

func TestCronOvernightWrapHourRange(t *testing.T) {
	spec, err := ParseCronSpec("* 22-5 * * *")
	require.NoError(t, err)
	assert.True(t, spec.Matches(time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, spec.Matches(time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, spec.Matches(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCronRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseCronSpec("* * * *")
	assert.Error(t, err)
}
