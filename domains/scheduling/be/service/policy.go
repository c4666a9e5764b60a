package service

import (
	"fmt"
	"time"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/holiday"
)

// bookingPolicy rejects weekends and public holidays for one tenant. It layers
// the tenant's own closure dates over the shared regional calendar, so one
// request's closures never leak into another tenant.
type bookingPolicy struct {
	calendar holiday.Calendar
	region   string
	closures map[string]string
}

func newBookingPolicy(calendar holiday.Calendar, region string, closures map[string]string) *bookingPolicy {
	return &bookingPolicy{calendar: calendar, region: region, closures: closures}
}

func (p *bookingPolicy) isBusinessDay(date time.Time) bool {
	if !p.calendar.IsBusinessDay(date, p.region) {
		return false
	}
	if _, closed := p.closures[date.Format("2006-01-02")]; closed {
		return false
	}
	return true
}

// nextBusinessDay walks forward from the day after date to the first business
// day. Bounded to a year so a degenerate closure set cannot loop forever.
func (p *bookingPolicy) nextBusinessDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for i := 0; i < 366; i++ {
		if p.isBusinessDay(next) {
			return next
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// validate returns a PolicyViolation carrying the next valid business day when
// the requested date falls on a weekend or holiday.
func (p *bookingPolicy) validate(date time.Time) *ScheduleError {
	if p.isBusinessDay(date) {
		return nil
	}
	suggestion := p.nextBusinessDay(date)
	err := newScheduleError(ReasonInvalidBusinessDay,
		fmt.Sprintf("%s is not a business day, next available is %s",
			date.Format("2006-01-02"), suggestion.Format("2006-01-02")))
	err.SuggestedDate = &suggestion
	return err
}
