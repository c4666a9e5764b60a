package lock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSlotKeyIsStablePerInspectorDay(t *testing.T) {
	t.Parallel()

	inspector := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	date := time.Date(2025, time.December, 24, 15, 4, 5, 0, time.UTC)

	key := SlotKey(42, inspector, date)
	require.Equal(t, "sched:42:6ba7b810-9dad-11d1-80b4-00c04fd430c8:2025-12-24", key)

	// Time-of-day must not change the key.
	other := SlotKey(42, inspector, date.Add(3*time.Hour))
	require.Equal(t, key, other)
}

func TestNoopLockerAlwaysGrants(t *testing.T) {
	t.Parallel()

	locker := NewNoopLocker()
	release, err := locker.Acquire(context.Background(), "sched:1:x:2025-12-24", time.Second)
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
}
