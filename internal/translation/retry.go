package translation

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxDelay caps a single backoff wait.
	DefaultMaxDelay = 10 * time.Second
	// DefaultJitter is the +/- fraction applied to each backoff wait.
	DefaultJitter = 0.2
)

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait before the next one. It holds no per-call state.
type RetryPolicy struct {
	MaxDelay time.Duration
	Jitter   float64
	// Rand returns a value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxDelay: DefaultMaxDelay,
		Jitter:   DefaultJitter,
		Rand:     rand.Float64,
	}
}

// ShouldRetry reports whether attempt (1-based) may be followed by another
// attempt against the same backend. maxRetries is the backend's attempt budget.
func (p RetryPolicy) ShouldRetry(attempt int, kind AttemptKind, maxRetries int) bool {
	if !kind.Retryable() {
		return false
	}
	return attempt < max(1, maxRetries)
}

// Delay returns base * 2^(attempt-1) with jitter, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	ceiling := p.maxDelay()

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			delay = ceiling
			break
		}
	}

	if p.Jitter > 0 {
		r := 0.5
		if p.Rand != nil {
			r = p.Rand()
		}
		// Map [0,1) onto [-Jitter, +Jitter).
		factor := 1 + p.Jitter*(2*r-1)
		delay = time.Duration(float64(delay) * factor)
	}

	return min(max(delay, 0), ceiling)
}

// DelayFor combines the policy delay with a provider RetryAfter hint.
func (p RetryPolicy) DelayFor(attempt int, base time.Duration, res AttemptResult) time.Duration {
	delay := p.Delay(attempt, base)
	if res.Kind == AttemptRateLimited && res.RetryAfter > delay {
		delay = min(res.RetryAfter, p.maxDelay())
	}
	return delay
}

func (p RetryPolicy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return p.MaxDelay
}
