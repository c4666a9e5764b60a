// Package calendar defines the external calendar collaborator used by the
// scheduler and its Google Calendar implementation.
package calendar

import (
	"context"
	"time"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
)

// EventDetails carries everything needed to create or update a calendar event.
type EventDetails struct {
	Summary       string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeEmail string
}

// Client is the narrow calendar interface the scheduler depends on. Transient
// failures (timeouts, 5xx, rate limits) are wrapped with retry.Transient so the
// orchestrator's policy can distinguish them from permanent ones.
type Client interface {
	BusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]interval.Interval, error)
	CreateEvent(ctx context.Context, calendarID string, details EventDetails) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, details EventDetails) error
	CancelEvent(ctx context.Context, calendarID, eventID string) error
}
