package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/retry"
)

func TestClassifyTransientVersusPermanent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 503}, true},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"forbidden", &googleapi.Error{Code: 403}, false},
		{"timeout", fmt.Errorf("do request: %w", context.DeadlineExceeded), true},
		{"network", errors.New("connection reset by peer"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := classify(tc.err)
			require.Equal(t, tc.transient, retry.IsTransient(got))
		})
	}
}

func TestClassifyKeepsCancellationPermanent(t *testing.T) {
	t.Parallel()

	err := classify(fmt.Errorf("do request: %w", context.Canceled))
	require.False(t, retry.IsTransient(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildEvent(t *testing.T) {
	t.Parallel()

	perth, err := time.LoadLocation("Australia/Perth")
	require.NoError(t, err)

	start := time.Date(2025, time.December, 24, 9, 0, 0, 0, perth)
	event := buildEvent(EventDetails{
		Summary:       "PCR Inspection - 12 Example St",
		Description:   "3 bed / 2 bath residential",
		Location:      "12 Example St, Subiaco WA 6008",
		Start:         start,
		End:           start.Add(2 * time.Hour),
		TimeZone:      "Australia/Perth",
		AttendeeEmail: "jess@example.com",
	})

	require.Equal(t, "PCR Inspection - 12 Example St", event.Summary)
	require.Equal(t, "Australia/Perth", event.Start.TimeZone)
	require.Equal(t, start.Format(time.RFC3339), event.Start.DateTime)
	require.Len(t, event.Attendees, 1)
	require.Equal(t, "jess@example.com", event.Attendees[0].Email)

	noAttendee := buildEvent(EventDetails{Start: start, End: start.Add(time.Hour)})
	require.Empty(t, noAttendee.Attendees)
}
