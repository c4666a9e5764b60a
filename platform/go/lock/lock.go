// Package lock serializes booking commits per (inspector, date) with a
// short-lived Redis advisory lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSlotHeld is returned when another scheduling run holds the same slot lock.
var ErrSlotHeld = errors.New("slot lock held by another scheduling run")

// SlotLocker guards the commit window of a scheduling run.
type SlotLocker interface {
	// Acquire obtains the lock for key, returning a release function.
	// Returns ErrSlotHeld when the lock is already taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SlotKey builds the canonical lock key for an inspector's day.
func SlotKey(accountID int64, inspectorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("sched:%d:%s:%s", accountID, inspectorID, date.Format("2006-01-02"))
}

type redisLocker struct {
	locker *redislock.Client
}

// NewRedisLocker wraps a Redis client as a SlotLocker.
func NewRedisLocker(client redis.UniversalClient) SlotLocker {
	if client == nil {
		panic("redis client is required")
	}
	return &redisLocker{locker: redislock.New(client)}
}

func (r *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l, err := r.locker.Obtain(ctx, key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrSlotHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain slot lock %s: %w", key, err)
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx)
	}
	return release, nil
}

type noopLocker struct{}

// NewNoopLocker returns a locker that always grants the lock. Used when Redis
// is not configured; the scheduler still re-checks availability before commit.
func NewNoopLocker() SlotLocker {
	return noopLocker{}
}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
