package retrypolicy_test

import (
	"testing"

	"github.com/minoots/engine/internal/retrypolicy"
	"github.com/stretchr/testify/assert"
)

func TestNextDelayMs(t *testing.T) {
	fixed := retrypolicy.Policy{Strategy: retrypolicy.Fixed, BackoffMs: 1000}
	assert.Equal(t, int64(1000), retrypolicy.NextDelayMs(fixed, 1))
	assert.Equal(t, int64(1000), retrypolicy.NextDelayMs(fixed, 3))

	linear := retrypolicy.Policy{Strategy: retrypolicy.Linear, BackoffMs: 1000}
	assert.Equal(t, int64(2000), retrypolicy.NextDelayMs(linear, 2))
	assert.Equal(t, int64(3000), retrypolicy.NextDelayMs(linear, 3))

	exp := retrypolicy.Policy{Strategy: retrypolicy.Exponential, BackoffMs: 1000}
	assert.Equal(t, int64(1000), retrypolicy.NextDelayMs(exp, 1))
	assert.Equal(t, int64(2000), retrypolicy.NextDelayMs(exp, 2))
	assert.Equal(t, int64(4000), retrypolicy.NextDelayMs(exp, 3))
}

func TestNextDelayMs_DefaultBackoff(t *testing.T) {
	p := retrypolicy.Policy{Strategy: retrypolicy.Fixed}
	assert.Equal(t, retrypolicy.DefaultBackoffMs, retrypolicy.NextDelayMs(p, 1))
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, retrypolicy.ShouldRetry(retrypolicy.Policy{MaxAttempts: 0}, 1))
	assert.True(t, retrypolicy.ShouldRetry(retrypolicy.Policy{MaxAttempts: 3}, 1))
	assert.True(t, retrypolicy.ShouldRetry(retrypolicy.Policy{MaxAttempts: 3}, 2))
	assert.False(t, retrypolicy.ShouldRetry(retrypolicy.Policy{MaxAttempts: 3}, 3))
}
