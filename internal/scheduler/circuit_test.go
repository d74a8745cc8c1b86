package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitOpensAfterThreeConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreaker(nil)
	assert.True(t, cb.Closed())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Closed())
	cb.RecordFailure()
	assert.False(t, cb.Closed())
}

func TestCircuitResetsOnSuccess(t *testing.T) {
	cb := newCircuitBreaker(nil)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Closed(), "two failures after a success reset should not yet open the circuit")
}
