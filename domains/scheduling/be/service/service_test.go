package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	roster "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/calendar"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/geo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/lock"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/retry"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

// memRepo is an in-memory Repository used by orchestrator tests.
type memRepo struct {
	mu          sync.Mutex
	events      map[uuid.UUID]persistence.InspectionEvent
	byUID       map[string]uuid.UUID
	history     []persistence.BookingHistoryEntry
	bookedHours map[string]float64
	locality    map[string]int
	preferred   map[string][]uuid.UUID
	holidays    map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		events:      make(map[uuid.UUID]persistence.InspectionEvent),
		byUID:       make(map[string]uuid.UUID),
		bookedHours: make(map[string]float64),
		locality:    make(map[string]int),
		preferred:   make(map[string][]uuid.UUID),
		holidays:    make(map[string]string),
	}
}

func dayKey(inspectorID uuid.UUID, date time.Time) string {
	return inspectorID.String() + "|" + date.Format("2006-01-02")
}

func (m *memRepo) FindByRequestUID(_ context.Context, requestUID string) (persistence.InspectionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUID[requestUID]
	if !ok {
		return persistence.InspectionEvent{}, persistence.ErrEventNotFound
	}
	return m.events[id], nil
}

func (m *memRepo) GetEvent(_ context.Context, eventID uuid.UUID) (persistence.InspectionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[eventID]
	if !ok {
		return persistence.InspectionEvent{}, persistence.ErrEventNotFound
	}
	return event, nil
}

func (m *memRepo) Upsert(_ context.Context, event persistence.InspectionEvent) (persistence.InspectionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byUID[event.RequestUID]; ok {
		event.EventID = existing
	} else if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	m.events[event.EventID] = event
	m.byUID[event.RequestUID] = event.EventID
	return event, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, eventID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[eventID]
	if !ok {
		return persistence.ErrEventNotFound
	}
	event.Status = status
	m.events[eventID] = event
	return nil
}

func (m *memRepo) AppendHistory(_ context.Context, entry persistence.BookingHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entry)
	return nil
}

func (m *memRepo) ListHistory(_ context.Context, eventID uuid.UUID) ([]persistence.BookingHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]persistence.BookingHistoryEntry, 0, len(m.history))
	for _, entry := range m.history {
		if entry.EventID == eventID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *memRepo) CountBookedHours(_ context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hours := m.bookedHours[dayKey(inspectorID, date)]
	for id, event := range m.events {
		if exclude != nil && id == *exclude {
			continue
		}
		if event.InspectorID != nil && *event.InspectorID == inspectorID &&
			event.Status == persistence.EventStatusScheduled &&
			event.ServiceDate.Format("2006-01-02") == date.Format("2006-01-02") {
			hours += event.DurationHours
		}
	}
	return hours, nil
}

func (m *memRepo) CountSameDayLocality(_ context.Context, inspectorID uuid.UUID, _ string, date time.Time, _ *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locality[dayKey(inspectorID, date)], nil
}

func (m *memRepo) LocalBusyIntervals(_ context.Context, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]interval.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	busy := make([]interval.Interval, 0)
	for id, event := range m.events {
		if exclude != nil && id == *exclude {
			continue
		}
		if event.InspectorID != nil && *event.InspectorID == inspectorID &&
			event.Status == persistence.EventStatusScheduled &&
			event.ServiceDate.Format("2006-01-02") == date.Format("2006-01-02") {
			if iv, err := interval.New(event.StartTime, event.EndTime); err == nil {
				busy = append(busy, iv)
			}
		}
	}
	return interval.Merge(busy), nil
}

func (m *memRepo) PreferredInspectorIDs(_ context.Context, managerKey string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preferred[managerKey], nil
}

func (m *memRepo) HolidayDates(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holidays, nil
}

func (m *memRepo) historyActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.history))
	for _, entry := range m.history {
		actions = append(actions, entry.Action)
	}
	return actions
}

// staticRoster satisfies RosterProvider with a fixed pool.
type staticRoster []roster.Inspector

func (s staticRoster) ListActive(context.Context) ([]roster.Inspector, error) {
	return s, nil
}

// scriptedLocker refuses a set number of acquisitions and can run a hook the
// first time a lock is granted, simulating a concurrent scheduling run winning
// the same slot.
type scriptedLocker struct {
	mu           sync.Mutex
	refusals     int
	onFirstGrant func()
	granted      int
}

func (l *scriptedLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refusals > 0 {
		l.refusals--
		return nil, lock.ErrSlotHeld
	}
	l.granted++
	if l.granted == 1 && l.onFirstGrant != nil {
		l.onFirstGrant()
	}
	return func() {}, nil
}

// fakeCalendar is an in-memory calendar.Client recording writes.
type fakeCalendar struct {
	mu        sync.Mutex
	busy      []interval.Interval
	created   map[string]calendar.EventDetails
	updated   map[string]calendar.EventDetails
	cancelled []string
	nextID    int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		created: make(map[string]calendar.EventDetails),
		updated: make(map[string]calendar.EventDetails),
	}
}

func (f *fakeCalendar) BusyIntervals(_ context.Context, _ string, _, _ time.Time) ([]interval.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interval.Interval(nil), f.busy...), nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, details calendar.EventDetails) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("gcal-%d", f.nextID)
	f.created[id] = details
	return id, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _ string, eventID string, details calendar.EventDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[eventID] = details
	return nil
}

func (f *fakeCalendar) CancelEvent(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, eventID)
	return nil
}

func testInspector(id string, home string, types []roster.InspectionType, props []roster.PropertyType) roster.Inspector {
	return roster.Inspector{
		ID:                 uuid.MustParse(id),
		Name:               "Inspector " + id[len(id)-1:],
		Email:              "inspector" + id[len(id)-1:] + "@example.com",
		CalendarID:         "cal-" + id[len(id)-1:],
		InspectionTypes:    types,
		PropertyTypes:      props,
		HomePostcode:       home,
		ServiceRadiusMiles: 25,
		DailyCapacityHours: 8,
		Active:             true,
	}
}

var (
	inspectorA = "11111111-1111-1111-1111-111111111111"
	inspectorB = "22222222-2222-2222-2222-222222222222"
	inspectorC = "33333333-3333-3333-3333-333333333333"
)

func newTestService(t *testing.T, repo *memRepo, pool staticRoster, cal calendar.Client, cfg Config) (Service, context.Context) {
	t.Helper()
	return newTestServiceWithLocker(t, repo, pool, cal, lock.NewNoopLocker(), cfg)
}

func newTestServiceWithLocker(t *testing.T, repo *memRepo, pool staticRoster, cal calendar.Client, locker lock.SlotLocker, cfg Config) (Service, context.Context) {
	t.Helper()

	geoIdx, err := geo.NewIndex()
	require.NoError(t, err)

	svc, err := New(Deps{
		Repo:     repo,
		Roster:   pool,
		Calendar: cal,
		Locker:   locker,
		Geo:      geoIdx,
		Holidays: waCalendar(),
		Retry:    retry.Policy{MaxAttempts: 1},
		Config:   cfg,
	})
	require.NoError(t, err)

	ctx := tenant.WithSpace(context.Background(), tenant.Space{
		AccountID: 1,
		Name:      "Acme Inspections",
		Region:    "AU-WA",
		Timezone:  "Australia/Perth",
	})
	return svc, ctx
}

func baseRequest(loc *time.Location) InspectionRequest {
	return InspectionRequest{
		RequestUID:     "msg-100",
		Location:       "12 Hay St, Perth WA 6000",
		InspectionType: roster.InspectionTypePCR,
		PropertyType:   roster.PropertyTypeResidential,
		RequestedDate:  time.Date(2025, 12, 24, 0, 0, 0, 0, loc),
		DurationHours:  1.5,
		Bedrooms:       3,
		Bathrooms:      2,
	}
}

func TestScheduleAssignsQualifiedNearbyInspector(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
		testInspector(inspectorB, "6110", []roster.InspectionType{roster.InspectionTypeRoutine}, []roster.PropertyType{roster.PropertyTypeResidential}),
		testInspector(inspectorC, "6163", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeCommercial}),
	}
	repo := newMemRepo()
	cal := newFakeCalendar()
	svc, ctx := newTestService(t, repo, pool, cal, DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	require.Equal(t, uuid.MustParse(inspectorA), booking.Inspector.ID)
	require.Equal(t, persistence.EventStatusScheduled, booking.Event.Status)
	require.Equal(t, "2025-12-24", booking.Event.ServiceDate.Format("2006-01-02"))
	require.False(t, booking.Slot.Start.Before(time.Date(2025, 12, 24, 9, 0, 0, 0, loc)))
	require.False(t, booking.Slot.End.After(time.Date(2025, 12, 24, 17, 0, 0, 0, loc)))
	require.NotNil(t, booking.Event.GoogleEventID)
	require.Len(t, cal.created, 1)
	require.Equal(t, []string{"scheduled"}, repo.historyActions())
	require.NotNil(t, booking.Score)
	require.Greater(t, booking.Score.Combined, 0.0)
}

func TestScheduleIdempotentReplay(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	svc, ctx := newTestService(t, repo, pool, newFakeCalendar(), DefaultConfig())

	first, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	second, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	require.Equal(t, first.Event.EventID, second.Event.EventID)
	require.True(t, second.Replayed)
	// No second "scheduled" audit entry.
	require.Equal(t, []string{"scheduled"}, repo.historyActions())
}

func TestScheduleRejectsWeekend(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	svc, ctx := newTestService(t, newMemRepo(), pool, newFakeCalendar(), DefaultConfig())

	req := baseRequest(loc)
	req.RequestedDate = time.Date(2026, 9, 5, 0, 0, 0, 0, loc) // Saturday

	_, err := svc.Schedule(ctx, req, ModeInitialAssignment)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonInvalidBusinessDay, scheduleErr.Code)
	require.NotNil(t, scheduleErr.SuggestedDate)
	require.Equal(t, "2026-09-07", scheduleErr.SuggestedDate.Format("2006-01-02"))
}

func TestScheduleNoQualifiedInspector(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypeRoutine}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	svc, ctx := newTestService(t, newMemRepo(), pool, newFakeCalendar(), DefaultConfig())

	_, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonNoQualifiedInspector, scheduleErr.Code)
}

func TestScheduleNoAvailableSlotAfterLookahead(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	cal := newFakeCalendar()
	// Calendar reports the inspector busy across the whole priority window
	// every day.
	cal.busy = []interval.Interval{
		mustInterval(t,
			time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
			time.Date(2027, 1, 1, 0, 0, 0, 0, loc)),
	}
	svc, ctx := newTestService(t, repo, pool, cal, DefaultConfig())

	_, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonNoAvailableSlot, scheduleErr.Code)
}

func TestScheduleFullyBookedInspectorFloorsWorkload(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	busyOne := testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	free := testInspector(inspectorB, "6110", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	free.ServiceRadiusMiles = 100

	repo := newMemRepo()
	date := time.Date(2025, 12, 24, 0, 0, 0, 0, loc)
	// inspectorA has 7 of 8 hours booked; the 1.5h request no longer fits the
	// capacity ceiling, so the distant-but-free inspector wins.
	repo.bookedHours[dayKey(busyOne.ID, date)] = 7

	svc, ctx := newTestService(t, repo, staticRoster{busyOne, free}, newFakeCalendar(), DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.Equal(t, free.ID, booking.Inspector.ID)
}

func TestSchedulePrefersLessLoadedInspector(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	loaded := testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	idle := testInspector(inspectorB, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})

	repo := newMemRepo()
	date := time.Date(2025, 12, 24, 0, 0, 0, 0, loc)
	repo.bookedHours[dayKey(loaded.ID, date)] = 5

	svc, ctx := newTestService(t, repo, staticRoster{loaded, idle}, newFakeCalendar(), DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.Equal(t, idle.ID, booking.Inspector.ID)
}

func TestSchedulePMPreferenceBonusWins(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	near := testInspector(inspectorA, "6000", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	preferred := testInspector(inspectorB, "6110", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	preferred.ServiceRadiusMiles = 100

	repo := newMemRepo()
	repo.preferred["agencyx.com.au"] = []uuid.UUID{preferred.ID}

	svc, ctx := newTestService(t, repo, staticRoster{near, preferred}, newFakeCalendar(), DefaultConfig())

	req := baseRequest(loc)
	req.ManagerKey = "agencyx.com.au"

	booking, err := svc.Schedule(ctx, req, ModeInitialAssignment)
	require.NoError(t, err)
	require.Equal(t, preferred.ID, booking.Inspector.ID)
	require.Equal(t, DefaultConfig().PMBonus, booking.Score.PMBonus)
}

func TestScheduleRadiusBoundaryInclusive(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	geoIdx, err := geo.NewIndex()
	require.NoError(t, err)
	distance, err := geoIdx.DistanceMiles("6107", "6000")
	require.NoError(t, err)

	atRadius := testInspector(inspectorA, "6107", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})
	atRadius.ServiceRadiusMiles = distance

	svc, ctx := newTestService(t, newMemRepo(), staticRoster{atRadius}, newFakeCalendar(), DefaultConfig())
	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.Equal(t, atRadius.ID, booking.Inspector.ID)

	// One hundredth of a mile beyond the radius excludes the inspector.
	beyond := atRadius
	beyond.ServiceRadiusMiles = distance - 0.01
	svc2, ctx2 := newTestService(t, newMemRepo(), staticRoster{beyond}, newFakeCalendar(), DefaultConfig())
	_, err = svc2.Schedule(ctx2, baseRequest(loc), ModeInitialAssignment)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonNoQualifiedInspector, scheduleErr.Code)
}

func TestScheduleWalksForwardWhenDayFull(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	only := testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential})

	repo := newMemRepo()
	date := time.Date(2025, 12, 24, 0, 0, 0, 0, loc)
	repo.bookedHours[dayKey(only.ID, date)] = 8 // capacity exhausted on the requested day

	svc, ctx := newTestService(t, repo, staticRoster{only}, newFakeCalendar(), DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	// 25th and 26th are public holidays, 27th/28th the weekend; the walk
	// lands on Monday the 29th.
	require.Equal(t, "2025-12-29", booking.Event.ServiceDate.Format("2006-01-02"))
}

func TestScheduleUpdateDetailsPreservesSlot(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	cal := newFakeCalendar()
	svc, ctx := newTestService(t, repo, pool, cal, DefaultConfig())

	original, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	update := baseRequest(loc)
	update.Bedrooms = 4
	update.Location = "12 Hay St (rear unit), Perth WA 6000"

	updated, err := svc.Schedule(ctx, update, ModeUpdateDetails)
	require.NoError(t, err)

	require.Equal(t, original.Event.EventID, updated.Event.EventID)
	require.Equal(t, original.Event.StartTime, updated.Event.StartTime)
	require.Equal(t, original.Event.EndTime, updated.Event.EndTime)
	require.Equal(t, original.Event.InspectorID, updated.Event.InspectorID)
	require.Equal(t, original.Event.ServiceDate, updated.Event.ServiceDate)
	require.Equal(t, 4, updated.Event.Bedrooms)
	require.Equal(t, "12 Hay St (rear unit), Perth WA 6000", updated.Event.Location)
	require.Contains(t, cal.updated, *original.Event.GoogleEventID)
	require.Equal(t, []string{"scheduled", "details_updated"}, repo.historyActions())
}

func TestScheduleEmergencyReschedulePreservesEventID(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	cal := newFakeCalendar()
	svc, ctx := newTestService(t, repo, pool, cal, DefaultConfig())

	original, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	reschedule := baseRequest(loc)
	reschedule.RequestedDate = time.Date(2025, 12, 30, 0, 0, 0, 0, loc)

	moved, err := svc.Schedule(ctx, reschedule, ModeEmergencyRescheduling)
	require.NoError(t, err)

	require.Equal(t, original.Event.EventID, moved.Event.EventID)
	require.Equal(t, "2025-12-30", moved.Event.ServiceDate.Format("2006-01-02"))
	// The existing calendar event is moved, not recreated.
	require.Contains(t, cal.updated, *original.Event.GoogleEventID)
	require.Len(t, cal.created, 1)
	require.Equal(t, []string{"scheduled", "rescheduled"}, repo.historyActions())
}

func TestScheduleRescheduleWithoutPriorBookingFails(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	svc, ctx := newTestService(t, newMemRepo(), pool, newFakeCalendar(), DefaultConfig())

	_, err := svc.Schedule(ctx, baseRequest(loc), ModeEmergencyRescheduling)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonInvariantViolation, scheduleErr.Code)
}

func TestScheduleAssignedSlotAvoidsBusyIntervals(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	cal := newFakeCalendar()
	cal.busy = []interval.Interval{
		mustInterval(t,
			time.Date(2025, 12, 24, 9, 0, 0, 0, loc),
			time.Date(2025, 12, 24, 12, 0, 0, 0, loc)),
	}
	svc, ctx := newTestService(t, newMemRepo(), pool, cal, DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.False(t, booking.Slot.Start.Before(time.Date(2025, 12, 24, 12, 0, 0, 0, loc)))
}

func TestScheduleHonorsRequestedWindow(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	svc, ctx := newTestService(t, newMemRepo(), pool, newFakeCalendar(), DefaultConfig())

	req := baseRequest(loc)
	windowStart := time.Date(2025, 12, 24, 13, 0, 0, 0, loc)
	windowEnd := time.Date(2025, 12, 24, 16, 0, 0, 0, loc)
	req.WindowStart = &windowStart
	req.WindowEnd = &windowEnd

	booking, err := svc.Schedule(ctx, req, ModeInitialAssignment)
	require.NoError(t, err)
	require.False(t, booking.Slot.Start.Before(windowStart))
	require.False(t, booking.Slot.End.After(windowEnd))
}

func TestCancelBooking(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	cal := newFakeCalendar()
	svc, ctx := newTestService(t, repo, pool, cal, DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, booking.Event.EventID, "tenant vacated"))

	event, err := repo.GetEvent(ctx, booking.Event.EventID)
	require.NoError(t, err)
	require.Equal(t, persistence.EventStatusCancelled, event.Status)
	require.Contains(t, cal.cancelled, *booking.Event.GoogleEventID)
	require.Equal(t, []string{"scheduled", "cancelled"}, repo.historyActions())

	// Cancelling twice is rejected.
	err = svc.Cancel(ctx, booking.Event.EventID, "again")
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonInvariantViolation, scheduleErr.Code)
}

func TestScheduleCompletedBookingIsTerminal(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	svc, ctx := newTestService(t, repo, pool, newFakeCalendar(), DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, booking.Event.EventID, persistence.EventStatusCompleted))

	reschedule := baseRequest(loc)
	reschedule.RequestedDate = time.Date(2025, 12, 30, 0, 0, 0, 0, loc)
	_, err = svc.Schedule(ctx, reschedule, ModeEmergencyRescheduling)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonInvariantViolation, scheduleErr.Code)

	_, err = svc.Schedule(ctx, baseRequest(loc), ModeUpdateDetails)
	scheduleErr, ok = AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonInvariantViolation, scheduleErr.Code)

	// The completed booking stays untouched and still replays idempotently.
	replayed, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)
	require.True(t, replayed.Replayed)
	require.Equal(t, persistence.EventStatusCompleted, replayed.Event.Status)
	require.Equal(t, []string{"scheduled"}, repo.historyActions())
}

func TestScheduleCommitRetriesAfterLockLoss(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	locker := &scriptedLocker{refusals: 1}
	svc, ctx := newTestServiceWithLocker(t, repo, pool, newFakeCalendar(), locker, DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	// The restart re-walks from the requested date, so the booking still lands
	// there once the lock is free.
	require.Equal(t, "2025-12-24", booking.Event.ServiceDate.Format("2006-01-02"))
	require.Equal(t, 1, locker.granted)
	require.Equal(t, []string{"scheduled"}, repo.historyActions())
}

func TestScheduleGivesUpAfterSecondLockLoss(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()
	locker := &scriptedLocker{refusals: 2}
	svc, ctx := newTestServiceWithLocker(t, repo, pool, newFakeCalendar(), locker, DefaultConfig())

	_, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	scheduleErr, ok := AsScheduleError(err)
	require.True(t, ok)
	require.Equal(t, ReasonSlotConflict, scheduleErr.Code)
	require.Zero(t, locker.granted)
	require.Empty(t, repo.historyActions())
}

func TestScheduleRecheckUnderLockAvoidsStolenSlot(t *testing.T) {
	t.Parallel()

	loc := perthLocation(t)
	pool := staticRoster{
		testInspector(inspectorA, "6005", []roster.InspectionType{roster.InspectionTypePCR}, []roster.PropertyType{roster.PropertyTypeResidential}),
	}
	repo := newMemRepo()

	// A rival booking takes the 09:00 slot between selection and commit; the
	// re-check under the lock must catch it and the restart must land on the
	// next free slot of the same day.
	rival := uuid.MustParse(inspectorA)
	locker := &scriptedLocker{}
	locker.onFirstGrant = func() {
		_, _ = repo.Upsert(context.Background(), persistence.InspectionEvent{
			InspectorID:   &rival,
			Status:        persistence.EventStatusScheduled,
			ServiceDate:   time.Date(2025, 12, 24, 0, 0, 0, 0, loc),
			StartTime:     time.Date(2025, 12, 24, 9, 0, 0, 0, loc),
			EndTime:       time.Date(2025, 12, 24, 10, 30, 0, 0, loc),
			DurationHours: 1.5,
			RequestUID:    "msg-rival",
		})
	}
	svc, ctx := newTestServiceWithLocker(t, repo, pool, newFakeCalendar(), locker, DefaultConfig())

	booking, err := svc.Schedule(ctx, baseRequest(loc), ModeInitialAssignment)
	require.NoError(t, err)

	require.Equal(t, "2025-12-24", booking.Event.ServiceDate.Format("2006-01-02"))
	require.False(t, booking.Slot.Start.Before(time.Date(2025, 12, 24, 10, 30, 0, 0, loc)))
	require.Equal(t, 2, locker.granted)
	require.Equal(t, []string{"scheduled"}, repo.historyActions())
}
