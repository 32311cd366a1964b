package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{
		MaxRetries:      3,
		InitialInterval: time.Minute,
		MaxInterval:     5 * time.Minute,
		Multiplier:      2,
	}

	assert.Equal(t, time.Minute, b.Delay(1))
	assert.Equal(t, 2*time.Minute, b.Delay(2))
	assert.Equal(t, 4*time.Minute, b.Delay(3))
	assert.Equal(t, 5*time.Minute, b.Delay(4), "capped at MaxInterval")
	assert.Equal(t, time.Minute, b.Delay(0))
}

func TestBackoffDelay_Jitter(t *testing.T) {
	b := Backoff{InitialInterval: time.Minute, MaxInterval: time.Hour, Multiplier: 2, JitterFactor: 0.1}

	for range 50 {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}
}

func TestBackoffExhausted(t *testing.T) {
	b := DefaultBackoff()

	assert.False(t, b.Exhausted(0))
	assert.False(t, b.Exhausted(2))
	assert.True(t, b.Exhausted(3))
}
