// Package retry wraps the scheduler's two I/O collaborators (calendar client,
// booking repository) with a bounded exponential backoff policy. Domain
// failures are never retried; only errors marked transient are.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTransient marks failures worth retrying (network errors, 5xx, rate limits).
var ErrTransient = errors.New("transient integration failure")

// Transient wraps err so the policy will retry it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err carries the transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Policy is an immutable retry configuration.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // initial backoff interval
	MaxDelay    time.Duration // backoff ceiling
}

// DefaultPolicy mirrors the integration defaults: 3 attempts, short backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Do runs op, retrying transient failures with exponential backoff until the
// attempt budget or the context is exhausted. Non-transient errors return
// immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Reset()

	wrapped := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
