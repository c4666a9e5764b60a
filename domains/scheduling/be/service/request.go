package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	roster "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/geo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
)

// Mode selects which steps of the scheduling pipeline run.
type Mode string

const (
	ModeInitialAssignment     Mode = "initial_assignment"
	ModeEmergencyRescheduling Mode = "emergency_rescheduling"
	ModeUpdateDetails         Mode = "update_details"
)

// ParseMode validates a raw mode selector.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeInitialAssignment, "":
		return ModeInitialAssignment, nil
	case ModeEmergencyRescheduling:
		return ModeEmergencyRescheduling, nil
	case ModeUpdateDetails:
		return ModeUpdateDetails, nil
	default:
		return "", fmt.Errorf("unknown scheduling mode %q", raw)
	}
}

// InspectionRequest is the structured input produced by the ingestion pipeline.
// Immutable once created.
type InspectionRequest struct {
	RequestUID     string
	Location       string
	Postcode       string
	InspectionType roster.InspectionType
	PropertyType   roster.PropertyType
	RequestedDate  time.Time
	WindowStart    *time.Time
	WindowEnd      *time.Time
	DurationHours  float64
	Bedrooms       int
	Bathrooms      int
	ManagerKey     string
	Urgent         bool
	EmailThreadID  *string
	EmailMessageID *string
}

// EffectivePostcode returns the explicit postcode or extracts one from the
// location string.
func (r InspectionRequest) EffectivePostcode() string {
	if pc := strings.TrimSpace(r.Postcode); pc != "" {
		return pc
	}
	if pc, ok := geo.ExtractPostcode(r.Location); ok {
		return pc
	}
	return ""
}

// ScoreBreakdown captures the per-inspector sub-scores produced during one
// scheduling call. Persisted only as the audit snapshot.
type ScoreBreakdown struct {
	InspectorID   uuid.UUID `json:"inspectorId"`
	DistanceMiles float64   `json:"distanceMiles"`
	Geo           float64   `json:"geo"`
	Workload      float64   `json:"workload"`
	Locality      float64   `json:"locality"`
	PMBonus       float64   `json:"pmBonus"`
	Combined      float64   `json:"combined"`
}

// Booking is the successful result of a scheduling call.
type Booking struct {
	Event     persistence.InspectionEvent
	Inspector roster.Inspector
	Score     *ScoreBreakdown
	Slot      interval.Interval
	// Replayed is true when an idempotent retry returned the existing booking.
	Replayed bool
}
