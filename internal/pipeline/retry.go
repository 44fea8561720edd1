package pipeline

import (
	"time"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/oracle"
)

// Retry defaults: an empty response is retried up to MaxRetries times after
// the first attempt, with a fixed delay between attempts.
const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 3 * time.Second
)

// RetryPolicy bounds repeated oracle attempts for transient failures.
// Sleep is injectable so tests run against a fake clock.
type RetryPolicy struct {
	MaxRetries int                 // retries after the first attempt
	Delay      time.Duration       // fixed inter-attempt delay
	Retryable  func(error) bool    // which failures are worth retrying
	Sleep      func(time.Duration) // nil means time.Sleep
}

// DefaultRetryPolicy returns the production policy: 5 retries, 3s apart,
// empty-response failures only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
		Retryable:  oracle.IsRetryable,
	}
}

// Do runs fn until it succeeds, fails non-retryably, or exhausts the retry
// budget. The last error is returned as-is so callers can classify it.
func (p RetryPolicy) Do(fn func() (string, error)) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if p.Retryable == nil || !p.Retryable(err) || attempt >= p.MaxRetries {
			return "", lastErr
		}
		sleep(p.Delay)
	}
}
