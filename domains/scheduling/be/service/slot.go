package service

import (
	"time"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
)

// findSlot returns the earliest candidate interval on the date that fits the
// duration without overlapping any busy interval. Candidates are generated at
// the configured spacing inside the standard working window; the wider
// priority window is consulted only for urgent requests once the standard
// window yields nothing. Returns false when neither window fits.
func findSlot(date time.Time, loc *time.Location, durationHours float64, busy []interval.Interval, urgent bool, cfg Config) (interval.Interval, bool) {
	duration := time.Duration(durationHours * float64(time.Hour))
	if duration <= 0 {
		return interval.Interval{}, false
	}

	if slot, ok := scanWindow(date, loc, duration, busy, cfg.WorkDayStartHour, cfg.WorkDayEndHour, cfg.SlotIntervalMinutes); ok {
		return slot, true
	}
	if urgent {
		return scanWindow(date, loc, duration, busy, cfg.PriorityDayStartHour, cfg.PriorityDayEndHour, cfg.SlotIntervalMinutes)
	}
	return interval.Interval{}, false
}

func scanWindow(date time.Time, loc *time.Location, duration time.Duration, busy []interval.Interval, startHour, endHour, stepMinutes int) (interval.Interval, bool) {
	year, month, day := date.In(loc).Date()
	windowStart := time.Date(year, month, day, startHour, 0, 0, 0, loc)
	windowEnd := time.Date(year, month, day, endHour, 0, 0, 0, loc)
	step := time.Duration(stepMinutes) * time.Minute

	for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(step) {
		candidate, err := interval.New(start, start.Add(duration))
		if err != nil {
			return interval.Interval{}, false
		}
		if !interval.AnyOverlap(busy, candidate) {
			return candidate, true
		}
	}
	return interval.Interval{}, false
}
