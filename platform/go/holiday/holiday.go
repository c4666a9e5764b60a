// Package holiday provides a data-driven business-day calendar. Holiday dates
// are supplied per region at construction time; nothing here hard-codes a date
// into the lookup path.
package holiday

import (
	"time"
)

// Calendar answers business-day questions for a region.
type Calendar interface {
	IsBusinessDay(date time.Time, region string) bool
	NextBusinessDay(date time.Time, region string) time.Time
}

const dateKeyLayout = "2006-01-02"

// RegionCalendar is an in-memory Calendar keyed by region code (e.g. "AU-WA").
// Weekends are never business days regardless of holiday data.
type RegionCalendar struct {
	holidays map[string]map[string]struct{}
}

// NewRegionCalendar builds a calendar from region → holiday dates.
func NewRegionCalendar(dates map[string][]time.Time) *RegionCalendar {
	holidays := make(map[string]map[string]struct{}, len(dates))
	for region, days := range dates {
		set := make(map[string]struct{}, len(days))
		for _, d := range days {
			set[d.Format(dateKeyLayout)] = struct{}{}
		}
		holidays[region] = set
	}
	return &RegionCalendar{holidays: holidays}
}

// Add registers extra holiday dates for a region, e.g. tenant-specific closures
// loaded from the database.
func (c *RegionCalendar) Add(region string, dates ...time.Time) {
	set, ok := c.holidays[region]
	if !ok {
		set = make(map[string]struct{}, len(dates))
		c.holidays[region] = set
	}
	for _, d := range dates {
		set[d.Format(dateKeyLayout)] = struct{}{}
	}
}

func (c *RegionCalendar) IsBusinessDay(date time.Time, region string) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if set, ok := c.holidays[region]; ok {
		if _, holiday := set[date.Format(dateKeyLayout)]; holiday {
			return false
		}
	}
	return true
}

// NextBusinessDay returns the first business day strictly after date.
func (c *RegionCalendar) NextBusinessDay(date time.Time, region string) time.Time {
	next := date.AddDate(0, 0, 1)
	for !c.IsBusinessDay(next, region) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RegionWA is the region code for Western Australia.
const RegionWA = "AU-WA"

// WesternAustralia computes the WA public-holiday set for the given years.
// The result seeds a RegionCalendar; operators append one-off proclaimed dates
// on top via Add.
func WesternAustralia(years ...int) []time.Time {
	var dates []time.Time
	for _, year := range years {
		easter := easterSunday(year)
		christmas := observedOnMonday(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC))
		boxing := observedOnMonday(time.Date(year, time.December, 26, 0, 0, 0, 0, time.UTC))
		if boxing.Equal(christmas) {
			// Observed Christmas already claimed the Monday.
			boxing = boxing.AddDate(0, 0, 1)
		}
		dates = append(dates,
			observedOnMonday(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),  // New Year's Day
			observedOnMonday(time.Date(year, time.January, 26, 0, 0, 0, 0, time.UTC)), // Australia Day
			nthWeekday(year, time.March, time.Monday, 1),                              // Labour Day
			easter.AddDate(0, 0, -2),                                                  // Good Friday
			easter.AddDate(0, 0, 1),                                                   // Easter Monday
			observedOnMonday(time.Date(year, time.April, 25, 0, 0, 0, 0, time.UTC)),   // Anzac Day
			nthWeekday(year, time.June, time.Monday, 1),                               // Western Australia Day
			nthWeekday(year, time.September, time.Monday, -1),                         // King's Birthday (WA)
			christmas, // Christmas Day
			boxing,    // Boxing Day
		)
	}
	return dates
}

// observedOnMonday shifts a weekend holiday to the following Monday.
func observedOnMonday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth weekday of a month; n == -1 means the last one.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	if n == -1 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		offset := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -offset)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// easterSunday computes Gregorian Easter via the Meeus/Jones/Butcher algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
