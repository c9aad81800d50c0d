// Package target adapts concrete backends into harness operations. Each
// adapter owns its client connection and exposes operations as plain
// callables, so the harness stays unaware of what it is measuring.
package target

import (
	"context"
	"math/rand"
	"time"

	"membench/internal/harness"
)

// Sleep returns an operation that succeeds after a fixed delay. It is the
// baseline target for calibrating the harness itself.
func Sleep(delay time.Duration) harness.Operation {
	return func(ctx context.Context) error {
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SleepJitter returns an operation that sleeps base plus a uniform random
// jitter. Useful for exercising percentile spread without a real backend.
func SleepJitter(base, jitter time.Duration) harness.Operation {
	return func(ctx context.Context) error {
		delay := base
		if jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(jitter)))
		}
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
