package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
)

func perthLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Perth")
	require.NoError(t, err)
	return loc
}

func mustInterval(t *testing.T, start, end time.Time) interval.Interval {
	t.Helper()
	iv, err := interval.New(start, end)
	require.NoError(t, err)
	return iv
}

func TestFindSlotEarliestFree(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)

	slot, ok := findSlot(date, loc, 1.5, nil, false, DefaultConfig())
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, loc), slot.Start)
	require.Equal(t, time.Date(2026, 9, 7, 10, 30, 0, 0, loc), slot.End)
}

func TestFindSlotSkipsBusyIntervals(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	busy := []interval.Interval{
		mustInterval(t, time.Date(2026, 9, 7, 9, 0, 0, 0, loc), time.Date(2026, 9, 7, 11, 0, 0, 0, loc)),
	}

	slot, ok := findSlot(date, loc, 1, busy, false, DefaultConfig())
	require.True(t, ok)
	// Back-to-back with the busy block: closed-open semantics allow 11:00.
	require.Equal(t, time.Date(2026, 9, 7, 11, 0, 0, 0, loc), slot.Start)
}

func TestFindSlotPriorityWindowOnlyWhenUrgent(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	// Standard window fully blocked.
	busy := []interval.Interval{
		mustInterval(t, time.Date(2026, 9, 7, 9, 0, 0, 0, loc), time.Date(2026, 9, 7, 17, 0, 0, 0, loc)),
	}

	_, ok := findSlot(date, loc, 1, busy, false, DefaultConfig())
	require.False(t, ok)

	slot, ok := findSlot(date, loc, 1, busy, true, DefaultConfig())
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 9, 7, 8, 0, 0, 0, loc), slot.Start)
}

func TestFindSlotMustFitInsideWindow(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	// Free only from 16:00, but a 2h job cannot end past 17:00.
	busy := []interval.Interval{
		mustInterval(t, time.Date(2026, 9, 7, 9, 0, 0, 0, loc), time.Date(2026, 9, 7, 16, 0, 0, 0, loc)),
	}

	_, ok := findSlot(date, loc, 2, busy, false, DefaultConfig())
	require.False(t, ok)

	slot, ok := findSlot(date, loc, 1, busy, false, DefaultConfig())
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 9, 7, 16, 0, 0, 0, loc), slot.Start)
}

func TestFindSlotRejectsNonPositiveDuration(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)

	_, ok := findSlot(date, loc, 0, nil, false, DefaultConfig())
	require.False(t, ok)
}
