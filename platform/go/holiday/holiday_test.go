package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsBusinessDayWeekends(t *testing.T) {
	t.Parallel()

	cal := NewRegionCalendar(nil)

	require.False(t, cal.IsBusinessDay(day(2025, time.December, 27), RegionWA)) // Saturday
	require.False(t, cal.IsBusinessDay(day(2025, time.December, 28), RegionWA)) // Sunday
	require.True(t, cal.IsBusinessDay(day(2025, time.December, 24), RegionWA))  // Wednesday
}

func TestIsBusinessDayHolidays(t *testing.T) {
	t.Parallel()

	cal := NewRegionCalendar(map[string][]time.Time{
		RegionWA: WesternAustralia(2025),
	})

	require.False(t, cal.IsBusinessDay(day(2025, time.December, 25), RegionWA))
	require.False(t, cal.IsBusinessDay(day(2025, time.December, 26), RegionWA))
	// Holidays are region scoped.
	require.True(t, cal.IsBusinessDay(day(2025, time.December, 25), "AU-NSW"))
	// Christmas Eve stays a business day.
	require.True(t, cal.IsBusinessDay(day(2025, time.December, 24), RegionWA))
}

func TestNextBusinessDaySkipsWeekendAndHolidays(t *testing.T) {
	t.Parallel()

	cal := NewRegionCalendar(map[string][]time.Time{
		RegionWA: WesternAustralia(2025),
	})

	// Christmas Eve (Wed) → Thu 25 and Fri 26 are holidays, 27/28 weekend.
	next := cal.NextBusinessDay(day(2025, time.December, 24), RegionWA)
	require.Equal(t, day(2025, time.December, 29), next)

	// Plain Friday → Monday.
	require.Equal(t, day(2025, time.December, 1), cal.NextBusinessDay(day(2025, time.November, 28), RegionWA))
}

func TestAddRegistersTenantClosure(t *testing.T) {
	t.Parallel()

	cal := NewRegionCalendar(nil)
	closure := day(2025, time.July, 14)
	require.True(t, cal.IsBusinessDay(closure, RegionWA))

	cal.Add(RegionWA, closure)
	require.False(t, cal.IsBusinessDay(closure, RegionWA))
}

func TestWesternAustraliaKnownDates(t *testing.T) {
	t.Parallel()

	set := map[string]bool{}
	for _, d := range WesternAustralia(2025) {
		set[d.Format("2006-01-02")] = true
	}

	for _, want := range []string{
		"2025-01-01", // New Year's Day
		"2025-01-27", // Australia Day observed (26th is a Sunday)
		"2025-03-03", // Labour Day
		"2025-04-18", // Good Friday
		"2025-04-21", // Easter Monday
		"2025-04-25", // Anzac Day
		"2025-06-02", // Western Australia Day
		"2025-09-29", // King's Birthday
		"2025-12-25",
		"2025-12-26",
	} {
		require.True(t, set[want], "expected holiday %s", want)
	}
}
