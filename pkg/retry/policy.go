// Package retry provides bounded, jittered retries for operations that
// can fail transiently, such as row lock acquisition under contention.
package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetriesExceeded marks an operation abandoned after exhausting
// its retry budget. The last underlying error is appended to the message.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy controls how often and how fast an operation is retried
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int
	// InitialDelay is the backoff before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff; zero means uncapped
	MaxDelay time.Duration
	// Multiplier scales the delay between consecutive retries
	Multiplier float64
	// Jitter randomizes each delay between 50% and 100% of its value
	// so competing retries spread out
	Jitter bool
	// RetryableFunc overrides the default error classification
	RetryableFunc func(error) bool
}

// Validate checks the policy for usable values
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial delay must not be negative, got %s", p.InitialDelay)
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max delay %s is below initial delay %s", p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// DefaultPolicy returns a conservative policy: two retries with
// jittered exponential backoff starting at 25ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: 25 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Multiplier:   2,
		Jitter:       true,
	}
}
