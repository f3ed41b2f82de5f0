package translation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher walks the enabled backends of a snapshot in priority order for
// one request, giving each its full retry budget before falling back.
type Dispatcher struct {
	policy RetryPolicy
	sleep  SleepFunc
	logger zerolog.Logger
}

func NewDispatcher(policy RetryPolicy, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		policy: policy,
		sleep:  sleepContext,
		logger: logger,
	}
}

// WithSleep replaces the wait used between retries.
func (d *Dispatcher) WithSleep(sleep SleepFunc) *Dispatcher {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

// Dispatch translates one request and always returns a complete Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, snapshot *Snapshot, req Request, override []string) Outcome {
	if req.IsBlank() {
		return skippedOutcome()
	}

	candidates := snapshot.Candidates(override)
	if len(candidates) == 0 {
		return failedOutcome(ReasonNoBackend, "", 0)
	}

	var (
		last     AttemptResult
		lastFrom string
		attempts int
	)
	for _, candidate := range candidates {
		res, used := d.tryBackend(ctx, candidate, req)
		attempts += used
		if res.Kind == AttemptSuccess {
			return translatedOutcome(res.Text, candidate.Config.ID, attempts)
		}
		last = res
		lastFrom = candidate.Config.ID

		d.logger.Debug().
			Str("backend", candidate.Config.ID).
			Int("attempts", used).
			Str("kind", res.Kind.String()).
			Msg("backend exhausted, falling back")
	}

	return failedOutcome(ReasonAllExhausted, fmt.Sprintf("%s: %s", lastFrom, last), attempts)
}

// tryBackend runs the attempt/retry loop against one backend and reports the
// final result plus the number of calls made.
func (d *Dispatcher) tryBackend(ctx context.Context, candidate Candidate, req Request) (AttemptResult, int) {
	cfg := candidate.Config
	budget := max(1, cfg.MaxRetries)

	var res AttemptResult
	for attempt := 1; attempt <= budget; attempt++ {
		if err := candidate.Wait(ctx); err != nil {
			return transient("rate limiter wait: %v", err), attempt - 1
		}

		res = d.attemptOnce(ctx, candidate, req)
		if res.Kind == AttemptSuccess {
			return res, attempt
		}
		if !d.policy.ShouldRetry(attempt, res.Kind, cfg.MaxRetries) {
			return res, attempt
		}

		delay := d.policy.DelayFor(attempt, cfg.BackoffBase, res)
		d.logger.Debug().
			Str("backend", cfg.ID).
			Int("attempt", attempt).
			Str("kind", res.Kind.String()).
			Str("message", res.Message).
			Dur("delay", delay).
			Msg("translation attempt failed, retrying")

		if err := d.sleep(ctx, delay); err != nil {
			return res, attempt
		}
	}
	return res, budget
}

func (d *Dispatcher) attemptOnce(ctx context.Context, candidate Candidate, req Request) AttemptResult {
	timeout := candidate.Config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := candidate.Backend.Attempt(attemptCtx, req)
	if res.Kind == AttemptSuccess && res.Text == "" {
		return transient("backend returned empty text")
	}
	// Some clients surface an expired deadline as a generic failure.
	if res.Kind == AttemptTransientError && attemptCtx.Err() == context.DeadlineExceeded {
		return timedOut(fmt.Sprintf("no response within %s", timeout))
	}
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
