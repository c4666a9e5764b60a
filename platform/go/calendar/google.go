package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/retry"
)

// GoogleClient implements Client against the Google Calendar v3 API.
type GoogleClient struct {
	svc     *gcal.Service
	timeout time.Duration
}

// NewGoogleClient builds a Google Calendar backed client using ambient
// credentials (service account or workload identity).
func NewGoogleClient(ctx context.Context, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init google calendar service: %w", err)
	}
	return &GoogleClient{svc: svc, timeout: 5 * time.Second}, nil
}

func (g *GoogleClient) BusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Errorf("query free/busy for %s: %w", calendarID, err))
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("free/busy response missing calendar %s", calendarID)
	}

	busy := make([]interval.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("parse busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("parse busy end %q: %w", period.End, err)
		}
		busy = append(busy, interval.Interval{Start: start, End: end})
	}

	return interval.Merge(busy), nil
}

func (g *GoogleClient) CreateEvent(ctx context.Context, calendarID string, details EventDetails) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	created, err := g.svc.Events.Insert(calendarID, buildEvent(details)).Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("create event on %s: %w", calendarID, err))
	}
	return created.Id, nil
}

func (g *GoogleClient) UpdateEvent(ctx context.Context, calendarID, eventID string, details EventDetails) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.svc.Events.Patch(calendarID, eventID, buildEvent(details)).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("update event %s on %s: %w", eventID, calendarID, err))
	}
	return nil
}

func (g *GoogleClient) CancelEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("cancel event %s on %s: %w", eventID, calendarID, err))
	}
	return nil
}

func buildEvent(details EventDetails) *gcal.Event {
	event := &gcal.Event{
		Summary:     details.Summary,
		Description: details.Description,
		Location:    details.Location,
		Start: &gcal.EventDateTime{
			DateTime: details.Start.Format(time.RFC3339),
			TimeZone: details.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: details.End.Format(time.RFC3339),
			TimeZone: details.TimeZone,
		},
	}
	if details.AttendeeEmail != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: details.AttendeeEmail}}
	}
	return event
}

// classify marks retryable API failures as transient. 4xx responses other than
// 429 are permanent; everything else (network, 5xx, rate limit) is worth a retry.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return retry.Transient(err)
		case apiErr.Code >= 500:
			return retry.Transient(err)
		default:
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return retry.Transient(err)
	}
	// Transport-level failure with no HTTP status.
	return retry.Transient(err)
}
