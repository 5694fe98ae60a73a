package retry

import (
	"math/rand"
	"time"
)

const (
	defaultInitialDelay = 25 * time.Millisecond
	defaultMultiplier   = 2.0
)

// Backoff computes exponential backoff delays for retry attempts
type Backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     bool
}

// NewBackoff creates a backoff calculator from a policy, substituting
// defaults for unset fields.
func NewBackoff(policy Policy) *Backoff {
	initial := policy.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	multiplier := policy.Multiplier
	if multiplier < 1 {
		multiplier = defaultMultiplier
	}
	return &Backoff{
		initial:    initial,
		max:        policy.MaxDelay,
		multiplier: multiplier,
		jitter:     policy.Jitter,
	}
}

// Calculate returns the delay before the given attempt. Attempts are
// numbered from 1.
func (b *Backoff) Calculate(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.initial)
	for i := 1; i < attempt; i++ {
		delay *= b.multiplier
		if b.max > 0 && delay >= float64(b.max) {
			break
		}
	}
	if b.max > 0 && delay > float64(b.max) {
		delay = float64(b.max)
	}

	if b.jitter {
		delay = delay/2 + rand.Float64()*delay/2
	}

	return time.Duration(delay)
}
