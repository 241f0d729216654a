package http

import (
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default poll policy: the classification service finishes within about a minute
const (
	DefaultMaxAttempts = 60
	DefaultInterval    = time.Second
)

// RetryPolicy bounds the polling of an in-progress classification
type RetryPolicy struct {
	// MaxAttempts counts every request, the first one included
	MaxAttempts int
	// Interval is the fixed wait between two requests
	Interval time.Duration
}

// DefaultRetryPolicy returns the 60 x 1s policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Interval: DefaultInterval}
}

// Validate validates the policy
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("poll max attempts must be > 0, got %d", p.MaxAttempts)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %s", p.Interval)
	}
	return nil
}

// schedule returns a fresh backoff yielding MaxAttempts-1 waits of Interval
func (p RetryPolicy) schedule() retry.Backoff {
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewConstant(p.Interval))
}
