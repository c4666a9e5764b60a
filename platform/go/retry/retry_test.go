package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("calendar 503"))
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsAtAttemptBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	boom := Transient(errors.New("still down"))
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	require.True(t, IsTransient(err))
	require.Equal(t, 3, calls)
}

func TestDoDoesNotRetryDomainErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	domain := errors.New("no qualified inspector")
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return domain
	})

	require.ErrorIs(t, err, domain)
	require.False(t, IsTransient(err))
	require.Equal(t, 1, calls)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastPolicy(3).Do(ctx, func() error {
		calls++
		return Transient(errors.New("transient"))
	})

	require.Error(t, err)
	require.Zero(t, calls)
}

func TestTransientNilPassthrough(t *testing.T) {
	t.Parallel()

	require.NoError(t, Transient(nil))
	require.False(t, IsTransient(nil))
}
