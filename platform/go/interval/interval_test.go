package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.December, 24, hour, min, 0, 0, time.UTC)
}

func TestNewRejectsEmptyInterval(t *testing.T) {
	t.Parallel()

	_, err := New(at(10, 0), at(10, 0))
	require.Error(t, err)

	_, err = New(at(10, 0), at(9, 0))
	require.Error(t, err)
}

func TestOverlapsClosedOpen(t *testing.T) {
	t.Parallel()

	morning := Interval{Start: at(9, 0), End: at(11, 0)}

	// Back-to-back bookings must not conflict.
	require.False(t, morning.Overlaps(Interval{Start: at(11, 0), End: at(13, 0)}))
	require.False(t, morning.Overlaps(Interval{Start: at(7, 0), End: at(9, 0)}))

	require.True(t, morning.Overlaps(Interval{Start: at(10, 30), End: at(12, 0)}))
	require.True(t, morning.Overlaps(Interval{Start: at(8, 0), End: at(9, 30)}))
	require.True(t, morning.Overlaps(Interval{Start: at(9, 30), End: at(10, 0)}))
}

func TestAnyOverlap(t *testing.T) {
	t.Parallel()

	busy := []Interval{
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(14, 0), End: at(16, 0)},
	}

	require.True(t, AnyOverlap(busy, Interval{Start: at(15, 0), End: at(17, 0)}))
	require.False(t, AnyOverlap(busy, Interval{Start: at(10, 0), End: at(14, 0)}))
	require.False(t, AnyOverlap(nil, Interval{Start: at(10, 0), End: at(14, 0)}))
}

func TestMergeCollapsesTouchingIntervals(t *testing.T) {
	t.Parallel()

	merged := Merge([]Interval{
		{Start: at(13, 0), End: at(14, 0)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(9, 30), End: at(10, 30)},
	})

	require.Len(t, merged, 2)
	require.Equal(t, at(9, 0), merged[0].Start)
	require.Equal(t, at(11, 0), merged[0].End)
	require.Equal(t, at(13, 0), merged[1].Start)
}
