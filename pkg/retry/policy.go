// Package retry holds the one retry policy shared by the embedding and generation clients.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times an operation is attempted and how long to wait in between.
// Multiplier 1 gives a fixed delay, anything above gives exponential backoff capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter is the randomization factor in [0,1); 0 keeps delays deterministic.
	Jitter float64
	// Retryable decides whether an error deserves another attempt. nil retries every error.
	Retryable func(error) bool
}

// Exponential doubles the delay after every failed attempt, never waiting longer than max.
func Exponential(attempts int, base, max time.Duration) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: base, MaxDelay: max, Multiplier: 2}
}

// Fixed waits the same delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: delay, MaxDelay: delay, Multiplier: 1}
}

func (p Policy) WithJitter(factor float64) Policy {
	p.Jitter = factor
	return p
}

func (p Policy) When(retryable func(error) bool) Policy {
	p.Retryable = retryable
	return p
}

func (p Policy) attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return uint(p.MaxAttempts)
}

func (p Policy) backOff() backoff.BackOff {
	if p.Multiplier <= 1 && p.Jitter == 0 {
		return backoff.NewConstantBackOff(p.BaseDelay)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Reset()
	return b
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt budget is spent.
// onRetry, when set, is called before every wait with the failed attempt number and its error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), onRetry func(attempt int, err error, wait time.Duration)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.attempts()),
	}
	if onRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			onRetry(attempt, err, wait)
		}))
	}
	return backoff.Retry(ctx, operation, opts...)
}
