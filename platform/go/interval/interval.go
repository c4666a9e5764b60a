package interval

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a closed-open time range [Start, End). Back-to-back bookings share
// a boundary instant without conflicting.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New validates and builds an interval. End must be strictly after Start.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("interval end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two closed-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies fully inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

// AnyOverlap reports whether candidate overlaps at least one busy interval.
func AnyOverlap(busy []Interval, candidate Interval) bool {
	for _, iv := range busy {
		if iv.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// Merge returns the union of the given intervals as a sorted, non-overlapping set.
// Touching intervals ([a,b) and [b,c)) collapse into one.
func Merge(intervals []Interval) []Interval {
	if len(intervals) <= 1 {
		return append([]Interval(nil), intervals...)
	}

	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
