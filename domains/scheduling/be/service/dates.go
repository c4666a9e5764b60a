package service

import "time"

// dateCursor lazily yields candidate business days for the forward slot
// search, starting at the requested date and bounded by the lookahead limit.
// It is restartable: Reset rewinds to the first candidate after a commit race.
type dateCursor struct {
	policy    *bookingPolicy
	start     time.Time
	remaining int
	budget    int
	current   time.Time
	started   bool
}

func newDateCursor(policy *bookingPolicy, start time.Time, lookaheadDays int) *dateCursor {
	return &dateCursor{
		policy:    policy,
		start:     start,
		remaining: lookaheadDays,
		budget:    lookaheadDays,
	}
}

// Next advances to the following candidate business day. Returns false once
// the lookahead budget is spent.
func (c *dateCursor) Next() (time.Time, bool) {
	for c.remaining > 0 {
		var candidate time.Time
		if !c.started {
			candidate = c.start
			c.started = true
		} else {
			candidate = c.current.AddDate(0, 0, 1)
		}
		c.current = candidate
		c.remaining--

		if c.policy.isBusinessDay(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// Reset rewinds the cursor to its initial state.
func (c *dateCursor) Reset() {
	c.remaining = c.budget
	c.started = false
	c.current = time.Time{}
}
