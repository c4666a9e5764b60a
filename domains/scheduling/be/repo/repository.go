package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

// Repository defines the persistence operations required by the scheduling
// service. All methods operate within the tenant space carried on the context.
type Repository interface {
	FindByRequestUID(ctx context.Context, requestUID string) (persistence.InspectionEvent, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (persistence.InspectionEvent, error)
	Upsert(ctx context.Context, event persistence.InspectionEvent) (persistence.InspectionEvent, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status string) error
	AppendHistory(ctx context.Context, entry persistence.BookingHistoryEntry) error
	ListHistory(ctx context.Context, eventID uuid.UUID) ([]persistence.BookingHistoryEntry, error)
	CountBookedHours(ctx context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) (float64, error)
	CountSameDayLocality(ctx context.Context, inspectorID uuid.UUID, postcode string, date time.Time, exclude *uuid.UUID) (int, error)
	LocalBusyIntervals(ctx context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]interval.Interval, error)
	PreferredInspectorIDs(ctx context.Context, managerKey string) ([]uuid.UUID, error)
	HolidayDates(ctx context.Context) (map[string]string, error)
}

type postgresRepository struct {
	events   *persistence.EventStore
	roster   *persistence.RosterStore
	accounts *persistence.AccountStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(events *persistence.EventStore, roster *persistence.RosterStore, accounts *persistence.AccountStore) Repository {
	if events == nil || roster == nil || accounts == nil {
		panic("scheduling stores are required")
	}
	return &postgresRepository{events: events, roster: roster, accounts: accounts}
}

func (r *postgresRepository) FindByRequestUID(ctx context.Context, requestUID string) (persistence.InspectionEvent, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return persistence.InspectionEvent{}, err
	}
	return r.events.GetEventByRequestUID(ctx, space.AccountID, requestUID)
}

func (r *postgresRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (persistence.InspectionEvent, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return persistence.InspectionEvent{}, err
	}
	return r.events.GetEvent(ctx, space.AccountID, eventID)
}

func (r *postgresRepository) Upsert(ctx context.Context, event persistence.InspectionEvent) (persistence.InspectionEvent, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return persistence.InspectionEvent{}, err
	}
	event.AccountID = space.AccountID
	return r.events.UpsertEvent(ctx, event)
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status string) error {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return err
	}
	return r.events.UpdateEventStatus(ctx, space.AccountID, eventID, status)
}

func (r *postgresRepository) AppendHistory(ctx context.Context, entry persistence.BookingHistoryEntry) error {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return err
	}
	entry.AccountID = space.AccountID
	return r.events.AppendHistory(ctx, entry)
}

func (r *postgresRepository) ListHistory(ctx context.Context, eventID uuid.UUID) ([]persistence.BookingHistoryEntry, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return nil, err
	}
	return r.events.ListHistory(ctx, space.AccountID, eventID)
}

func (r *postgresRepository) CountBookedHours(ctx context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) (float64, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return 0, err
	}
	return r.events.CountBookedHours(ctx, space.AccountID, inspectorID, date, exclude)
}

func (r *postgresRepository) CountSameDayLocality(ctx context.Context, inspectorID uuid.UUID, postcode string, date time.Time, exclude *uuid.UUID) (int, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return 0, err
	}
	return r.events.CountSameDayLocality(ctx, space.AccountID, inspectorID, postcode, date, exclude)
}

func (r *postgresRepository) LocalBusyIntervals(ctx context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]interval.Interval, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return nil, err
	}
	return r.events.BusyIntervals(ctx, space.AccountID, inspectorID, date, exclude)
}

func (r *postgresRepository) PreferredInspectorIDs(ctx context.Context, managerKey string) ([]uuid.UUID, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return nil, err
	}
	return r.roster.PreferredInspectorIDs(ctx, space.AccountID, managerKey)
}

func (r *postgresRepository) HolidayDates(ctx context.Context) (map[string]string, error) {
	space, err := requireTenantSpace(ctx)
	if err != nil {
		return nil, err
	}
	return r.accounts.HolidayDates(ctx, space.AccountID)
}

func requireTenantSpace(ctx context.Context) (tenant.Space, error) {
	space, ok := tenant.FromContext(ctx)
	if !ok {
		return tenant.Space{}, errors.New("tenant space missing from context")
	}
	return space, nil
}
