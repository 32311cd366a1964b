package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1], e.g. 0.1 means +/-10%
	JitterFactor float64
}

// DefaultBackoff retries three times starting at one minute.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries:      3,
		InitialInterval: time.Minute,
		MaxInterval:     time.Hour,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

func (b Backoff) normalized() Backoff {
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	if b.MaxInterval <= 0 {
		b.MaxInterval = 30 * b.InitialInterval
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	b.JitterFactor = math.Max(0, math.Min(1, b.JitterFactor))
	return b
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.normalized()
	if attempt < 1 {
		attempt = 1
	}

	interval := float64(b.InitialInterval) * math.Pow(b.Multiplier, float64(attempt-1))

	if b.JitterFactor > 0 {
		jitter := interval * b.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}

	if interval > float64(b.MaxInterval) {
		interval = float64(b.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(b.InitialInterval)
	}

	return time.Duration(interval)
}

// Exhausted reports whether a job that already ran attempt+1 times may not
// be retried again.
func (b Backoff) Exhausted(attempt int) bool {
	return attempt >= b.MaxRetries
}
