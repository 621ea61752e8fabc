package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelayDoubling(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 10)

	assert.Equal(t, 500*time.Millisecond, p.Delay(0))
	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 16*time.Second, p.Delay(5))
}

func TestRetryPolicyCap(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 10)

	// 500ms * 2^8 = 128s, clamped to 30s.
	assert.Equal(t, 30*time.Second, p.CapDelay)
	assert.Equal(t, 30*time.Second, p.Delay(8))
	assert.Equal(t, 30*time.Second, p.Delay(100))
	assert.Equal(t, 30*time.Second, p.Delay(10000))
}

func TestRetryPolicySmallBaseCap(t *testing.T) {
	p := NewRetryPolicy(10*time.Millisecond, 5)

	// 10ms * 2^8 = 2.56s, under the 30s ceiling.
	assert.Equal(t, 2560*time.Millisecond, p.CapDelay)
	assert.Equal(t, 2560*time.Millisecond, p.Delay(20))
}

func TestRetryPolicyDelayNonDecreasing(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 10)

	prev := time.Duration(0)
	for attempt := 0; attempt <= 20; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestRetryPolicyJitterBounds(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 10)

	for attempt := 0; attempt <= 12; attempt++ {
		base := p.Delay(attempt)
		for i := 0; i < 50; i++ {
			j := p.Jittered(attempt)
			assert.GreaterOrEqual(t, j, base)
			assert.LessOrEqual(t, j, base+base/4)
		}
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 3)

	assert.False(t, p.Exhausted(0))
	assert.False(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
}

func TestRetryPolicyNegativeAttempt(t *testing.T) {
	p := NewRetryPolicy(500*time.Millisecond, 10)
	assert.Equal(t, p.Delay(0), p.Delay(-3))
}
