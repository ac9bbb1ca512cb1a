package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy describes an exponential backoff schedule
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

// DefaultPolicy returns the schedule used for webhook deliveries
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       true,
	}
}

// Retry runs op until it succeeds or the schedule is exhausted
func (p Policy) Retry(ctx context.Context, op func() error) error {
	return p.RetryIf(ctx, op, func(error) bool { return true })
}

// RetryIf runs op until it succeeds, shouldRetry declines the error, or
// the schedule is exhausted. The last error is returned.
func (p Policy) RetryIf(ctx context.Context, op func() error, shouldRetry func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !shouldRetry(lastErr) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.nextDelay(delay)):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}

// nextDelay applies jitter of up to half the base delay
func (p Policy) nextDelay(base time.Duration) time.Duration {
	if !p.Jitter || base <= 0 {
		return base
	}
	return base/2 + time.Duration(rand.Int64N(int64(base/2)+1))
}
