package marketdata

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is the bounded retry applied to a single refresh.
// MaxRetries counts retries after the first attempt, so a refresh makes at most
// MaxRetries+1 requests.
type RetryPolicy struct {
	MaxRetries uint64
	Delay      time.Duration
}

// Attempts returns the maximum number of requests a refresh makes
func (p RetryPolicy) Attempts() uint64 {
	return p.MaxRetries + 1
}

// backoff builds the go-retry schedule for one refresh.
// go-retry backoffs are stateful, so every refresh needs its own.
func (p RetryPolicy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	return retry.WithMaxRetries(p.MaxRetries, retry.NewConstant(delay))
}
