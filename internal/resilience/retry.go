// Package resilience retries store writes that fail transiently.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds the retries of one store write. Delays double from Backoff
// while below MaxBackoff; each sleep is drawn from the upper half of its delay.
type Policy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration

	// OnRetry runs before each sleep with the failed attempt number.
	OnRetry func(attempt int, err error)
}

// StorePolicy is the policy ingest uses for evaluation saves.
func StorePolicy(attempts int) Policy {
	return Policy{
		Attempts:   attempts,
		Backoff:    100 * time.Millisecond,
		MaxBackoff: 2 * time.Second,
	}
}

// Retry calls save until it succeeds, fails permanently, the context ends
// or the policy runs out of attempts. The last error is returned.
func Retry[T any](ctx context.Context, p Policy, save func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(p.Attempts, 1)
	for attempt := 1; ; attempt++ {
		v, err := save(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= attempts || ctx.Err() != nil || !IsTransient(err) {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// delay is the sleep after the given failed attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(d-half+1)
}

// LogRetries returns an OnRetry callback that warns about each retry.
func LogRetries(operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			append([]zap.Field{
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			}, fields...)...,
		)
	}
}
