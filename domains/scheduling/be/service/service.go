package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	roster "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	"github.com/zenGate-Global/inspection-scheduler/domains/scheduling/be/repo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/calendar"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/geo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/holiday"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/lock"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/logging"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/requesttrace"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/retry"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

// RosterProvider supplies the tenant's active inspectors. Satisfied by the
// roster service.
type RosterProvider interface {
	ListActive(ctx context.Context) ([]roster.Inspector, error)
}

// Service defines the business operations for the scheduling domain.
type Service interface {
	Schedule(ctx context.Context, req InspectionRequest, mode Mode) (Booking, error)
	Cancel(ctx context.Context, eventID uuid.UUID, reason string) error
	History(ctx context.Context, eventID uuid.UUID) ([]persistence.BookingHistoryEntry, error)
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Repo     repo.Repository
	Roster   RosterProvider
	Calendar calendar.Client
	Locker   lock.SlotLocker
	Geo      *geo.Index
	Holidays holiday.Calendar
	Retry    retry.Policy
	Config   Config
}

type service struct {
	repo     repo.Repository
	roster   RosterProvider
	calendar calendar.Client
	locker   lock.SlotLocker
	geo      *geo.Index
	holidays holiday.Calendar
	retry    retry.Policy
	cfg      Config
	sem      chan struct{}
}

// New constructs the scheduling Service. The configuration is validated once
// here so a bad deployment fails at startup.
func New(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, errors.New("scheduling repository is required")
	}
	if deps.Roster == nil {
		return nil, errors.New("roster provider is required")
	}
	if deps.Calendar == nil {
		return nil, errors.New("calendar client is required")
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewNoopLocker()
	}
	if deps.Geo == nil {
		return nil, errors.New("geo index is required")
	}
	if deps.Holidays == nil {
		return nil, errors.New("holiday calendar is required")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}

	return &service{
		repo:     deps.Repo,
		roster:   deps.Roster,
		calendar: deps.Calendar,
		locker:   deps.Locker,
		geo:      deps.Geo,
		holidays: deps.Holidays,
		retry:    deps.Retry,
		cfg:      deps.Config,
		sem:      make(chan struct{}, deps.Config.MaxConcurrent),
	}, nil
}

// candidate is one qualified inspector surviving the availability filter on a
// specific date, together with everything needed to score and commit it.
type candidate struct {
	inspector roster.Inspector
	distance  float64
	booked    float64
	busy      []interval.Interval
	slot      interval.Interval
	breakdown ScoreBreakdown
}

func (s *service) Schedule(ctx context.Context, req InspectionRequest, mode Mode) (Booking, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return Booking{}, ctx.Err()
	}

	space, ok := tenant.FromContext(ctx)
	if !ok {
		return Booking{}, errors.New("tenant space missing from context")
	}
	logger, ok := logging.FromContext(ctx)
	if !ok {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("request_uid", req.RequestUID),
		zap.String("mode", string(mode)),
		zap.Int64("account_id", space.AccountID),
	)

	if strings.TrimSpace(req.RequestUID) == "" {
		return Booking{}, newScheduleError(ReasonInvariantViolation, "request_uid is required")
	}
	if req.DurationHours <= 0 {
		return Booking{}, newScheduleError(ReasonInvariantViolation, "duration must be positive")
	}

	// Step 1: idempotent replay detection.
	existing, err := s.repo.FindByRequestUID(ctx, req.RequestUID)
	switch {
	case err == nil:
		if existing.Status == persistence.EventStatusCancelled {
			if mode != ModeInitialAssignment {
				return Booking{}, newScheduleError(ReasonInvariantViolation,
					"booking for this request was cancelled")
			}
			// A cancelled booking does not block a fresh attempt.
		} else {
			if existing.Status == persistence.EventStatusCompleted && mode != ModeInitialAssignment {
				return Booking{}, newScheduleError(ReasonInvariantViolation,
					"booking for this request is already completed")
			}
			switch mode {
			case ModeInitialAssignment:
				logger.Info("idempotent replay, returning existing booking",
					zap.String("event_id", existing.EventID.String()))
				return s.replayBooking(ctx, existing)
			case ModeUpdateDetails:
				return s.updateDetails(ctx, existing, req, logger)
			case ModeEmergencyRescheduling:
				return s.assign(ctx, req, mode, &existing, space, logger)
			}
		}
	case errors.Is(err, persistence.ErrEventNotFound):
		if mode != ModeInitialAssignment {
			return Booking{}, newScheduleError(ReasonInvariantViolation,
				fmt.Sprintf("no existing booking for request %s", req.RequestUID))
		}
	default:
		return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "booking lookup failed", err)
	}

	return s.assign(ctx, req, mode, nil, space, logger)
}

// assign runs steps 2-11 for initial assignment and emergency rescheduling.
// prior is non-nil only when rescheduling, carrying the event to preserve.
func (s *service) assign(ctx context.Context, req InspectionRequest, mode Mode, prior *persistence.InspectionEvent, space tenant.Space, logger *zap.Logger) (Booking, error) {
	loc := space.Location()

	// Step 2: business-day policy.
	closures, err := s.repo.HolidayDates(ctx)
	if err != nil {
		return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "holiday lookup failed", err)
	}
	policy := newBookingPolicy(s.holidays, space.Region, closures)
	if policyErr := policy.validate(req.RequestedDate.In(loc)); policyErr != nil {
		return Booking{}, policyErr
	}

	// Step 3: property manager preference, may be empty.
	var preferred []uuid.UUID
	if req.ManagerKey != "" {
		preferred, err = s.repo.PreferredInspectorIDs(ctx, req.ManagerKey)
		if err != nil {
			return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "preference lookup failed", err)
		}
	}

	// Step 4: qualification filter plus service-radius exclusion.
	pool, err := s.roster.ListActive(ctx)
	if err != nil {
		return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "roster lookup failed", err)
	}
	qualified := qualifiedInspectors(pool, req)
	postcode := req.EffectivePostcode()
	inRange := s.filterByRadius(qualified, postcode)
	if len(inRange) == 0 {
		return Booking{}, newScheduleError(ReasonNoQualifiedInspector,
			fmt.Sprintf("no active inspector certified for %s/%s within range",
				req.InspectionType, req.PropertyType))
	}

	var exclude *uuid.UUID
	if prior != nil {
		exclude = &prior.EventID
	}

	// Steps 5-8 walk forward day-by-day inside the lookahead window. After a
	// lost commit race the whole walk restarts once from the first date.
	cursor := newDateCursor(policy, req.RequestedDate.In(loc), s.cfg.LookaheadDays)
	restarted := false
	for {
		date, more := cursor.Next()
		if !more {
			if restarted {
				return Booking{}, newScheduleError(ReasonSlotConflict,
					"slot was taken by a concurrent booking, no alternative found")
			}
			return Booking{}, newScheduleError(ReasonNoAvailableSlot,
				fmt.Sprintf("no free slot within %d days of %s, consider extending the search window",
					s.cfg.LookaheadDays, req.RequestedDate.Format("2006-01-02")))
		}
		if err := ctx.Err(); err != nil {
			return Booking{}, err
		}

		best, found, err := s.pickCandidate(ctx, inRange, req, date, loc, postcode, preferred, exclude)
		if err != nil {
			return Booking{}, err
		}
		if !found {
			continue
		}

		booking, conflict, err := s.commit(ctx, req, mode, prior, space, date, best, logger)
		if err != nil {
			return Booking{}, err
		}
		if conflict {
			if restarted {
				return Booking{}, newScheduleError(ReasonSlotConflict,
					"slot was taken by a concurrent booking twice, giving up")
			}
			restarted = true
			cursor.Reset()
			continue
		}
		return booking, nil
	}
}

// filterByRadius drops inspectors whose home postcode is farther from the
// request than their service radius. Exactly at the radius is included. When
// either postcode cannot be resolved the inspector is kept and scores the geo
// floor instead, since a data gap should not silently shrink the roster.
func (s *service) filterByRadius(pool []roster.Inspector, postcode string) []candidate {
	kept := make([]candidate, 0, len(pool))
	for _, inspector := range pool {
		distance, err := s.geo.DistanceMiles(inspector.HomePostcode, postcode)
		if err != nil {
			kept = append(kept, candidate{inspector: inspector, distance: -1})
			continue
		}
		radius := inspector.ServiceRadiusMiles
		if radius <= 0 {
			radius = s.cfg.MaxRadiusMiles
		}
		if distance > radius {
			continue
		}
		kept = append(kept, candidate{inspector: inspector, distance: distance})
	}
	return kept
}

// pickCandidate runs steps 5-8 for one date: availability filter, scoring,
// ranking and slot selection. Returns found=false when no candidate fits the
// date, which sends the walk to the next day.
func (s *service) pickCandidate(ctx context.Context, pool []candidate, req InspectionRequest, date time.Time, loc *time.Location, postcode string, preferred []uuid.UUID, exclude *uuid.UUID) (candidate, bool, error) {
	viable := make([]candidate, 0, len(pool))

	for _, cand := range pool {
		if err := ctx.Err(); err != nil {
			return candidate{}, false, err
		}

		// Step 5a: daily capacity ceiling.
		booked, err := s.repo.CountBookedHours(ctx, cand.inspector.ID, date, exclude)
		if err != nil {
			return candidate{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "workload lookup failed", err)
		}
		if cand.inspector.DailyCapacityHours > 0 && booked+req.DurationHours > cand.inspector.DailyCapacityHours {
			continue
		}

		// Step 5b: local and external busy intervals. A calendar failure is
		// availability-unknown and aborts the request, never "available".
		busy, err := s.busyIntervals(ctx, cand.inspector, date, loc, exclude)
		if err != nil {
			return candidate{}, false, err
		}
		busy = s.maskRequestedWindow(busy, req, date, loc)

		slot, ok := findSlot(date, loc, req.DurationHours, busy, req.Urgent, s.cfg)
		if !ok {
			continue
		}

		cand.booked = booked
		cand.busy = busy
		cand.slot = slot
		viable = append(viable, cand)
	}

	if len(viable) == 0 {
		return candidate{}, false, nil
	}

	// Step 6: score every remaining candidate.
	breakdowns := make([]ScoreBreakdown, 0, len(viable))
	byID := make(map[uuid.UUID]candidate, len(viable))
	for _, cand := range viable {
		locality, err := s.repo.CountSameDayLocality(ctx, cand.inspector.ID, postcode, date, exclude)
		if err != nil {
			return candidate{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "locality lookup failed", err)
		}

		breakdown := ScoreBreakdown{
			InspectorID:   cand.inspector.ID,
			DistanceMiles: cand.distance,
			Workload:      workloadScore(cand.booked, cand.inspector.DailyCapacityHours),
			Locality:      localityScore(locality, s.cfg.LocalityTarget),
		}
		if cand.distance < 0 {
			breakdown.Geo = s.cfg.GeoFloor
		} else {
			breakdown.Geo = geoScore(cand.distance, s.cfg.MaxRadiusMiles, s.cfg.GeoFloor)
		}
		if containsID(preferred, cand.inspector.ID) {
			breakdown.PMBonus = s.cfg.PMBonus
		}
		breakdown.Combined = combineScore(breakdown, s.cfg)

		breakdowns = append(breakdowns, breakdown)
		byID[cand.inspector.ID] = cand
	}

	// Step 7: rank and select the top candidate.
	rankBreakdowns(breakdowns)
	top := byID[breakdowns[0].InspectorID]
	top.breakdown = breakdowns[0]
	return top, true, nil
}

// commit serializes steps 9-11 per (inspector, date): lock, re-check, write
// calendar then database, append history. conflict=true signals a lost race
// that the caller may retry once.
func (s *service) commit(ctx context.Context, req InspectionRequest, mode Mode, prior *persistence.InspectionEvent, space tenant.Space, date time.Time, best candidate, logger *zap.Logger) (Booking, bool, error) {
	loc := space.Location()
	key := lock.SlotKey(space.AccountID, best.inspector.ID, date)
	release, err := s.locker.Acquire(ctx, key, s.cfg.CommitLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrSlotHeld) {
			logger.Info("commit lock held, retrying", zap.String("lock_key", key))
			return Booking{}, true, nil
		}
		return Booking{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "commit lock failed", err)
	}
	defer release()

	var exclude *uuid.UUID
	if prior != nil {
		exclude = &prior.EventID
	}

	// Re-check availability under the lock; the slot may have been taken
	// between selection and commit.
	busy, err := s.busyIntervals(ctx, best.inspector, date, loc, exclude)
	if err != nil {
		return Booking{}, false, err
	}
	if interval.AnyOverlap(busy, best.slot) {
		logger.Info("slot taken before commit, retrying",
			zap.String("inspector_id", best.inspector.ID.String()),
			zap.String("slot", best.slot.String()))
		return Booking{}, true, nil
	}

	details := calendar.EventDetails{
		Summary:       eventSummary(req),
		Description:   eventDescription(req, best.inspector),
		Location:      req.Location,
		Start:         best.slot.Start,
		End:           best.slot.End,
		TimeZone:      space.Timezone,
		AttendeeEmail: best.inspector.Email,
	}

	// Step 9: calendar write, retried on transient failures only.
	var googleEventID *string
	if best.inspector.CalendarID != "" {
		if prior != nil && prior.GoogleEventID != nil {
			err = s.retry.Do(ctx, func() error {
				callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
				defer cancel()
				return s.calendar.UpdateEvent(callCtx, best.inspector.CalendarID, *prior.GoogleEventID, details)
			})
			googleEventID = prior.GoogleEventID
		} else {
			err = s.retry.Do(ctx, func() error {
				callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
				defer cancel()
				id, createErr := s.calendar.CreateEvent(callCtx, best.inspector.CalendarID, details)
				if createErr != nil {
					return createErr
				}
				googleEventID = &id
				return nil
			})
		}
		if err != nil {
			return Booking{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "calendar write failed", err)
		}
	}

	// Step 10: database upsert. The calendar event id is the reconciliation
	// key: after a calendar success the row write is retried rather than
	// leaving an orphaned calendar event.
	event := persistence.InspectionEvent{
		InspectorID:    &best.inspector.ID,
		InspectionType: string(req.InspectionType),
		PropertyType:   string(req.PropertyType),
		Location:       req.Location,
		Postcode:       req.EffectivePostcode(),
		ServiceDate:    date,
		StartTime:      best.slot.Start,
		EndTime:        best.slot.End,
		DurationHours:  req.DurationHours,
		Bedrooms:       req.Bedrooms,
		Bathrooms:      req.Bathrooms,
		Status:         persistence.EventStatusScheduled,
		GoogleEventID:  googleEventID,
		EmailThreadID:  req.EmailThreadID,
		EmailMessageID: req.EmailMessageID,
		RequestUID:     req.RequestUID,
	}
	if prior != nil {
		event.EventID = prior.EventID
	}

	var saved persistence.InspectionEvent
	err = s.retry.Do(ctx, func() error {
		var upsertErr error
		saved, upsertErr = s.repo.Upsert(ctx, event)
		if upsertErr != nil {
			return retry.Transient(upsertErr)
		}
		return nil
	})
	if err != nil {
		if googleEventID != nil {
			logger.Error("booking row write failed after calendar commit, manual reconciliation required",
				zap.String("google_event_id", *googleEventID),
				zap.Error(err))
		}
		return Booking{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "booking write failed", err)
	}

	// Step 11: audit entry with the final score snapshot.
	action := "scheduled"
	if mode == ModeEmergencyRescheduling {
		action = "rescheduled"
	}
	detail, _ := json.Marshal(best.breakdown)
	audit := requesttrace.FromContextOrSystem(ctx)
	if err := s.repo.AppendHistory(ctx, persistence.BookingHistoryEntry{
		EventID:     saved.EventID,
		Action:      action,
		Actor:       audit.Actor(),
		InspectorID: &best.inspector.ID,
		Detail:      detail,
	}); err != nil {
		return Booking{}, false, wrapScheduleError(ReasonIntegrationUnavailable, "history write failed", err)
	}

	logger.Info("booking committed",
		zap.String("event_id", saved.EventID.String()),
		zap.String("inspector_id", best.inspector.ID.String()),
		zap.String("slot", best.slot.String()),
		zap.Float64("score", best.breakdown.Combined))

	breakdown := best.breakdown
	return Booking{
		Event:     saved,
		Inspector: best.inspector,
		Score:     &breakdown,
		Slot:      best.slot,
	}, false, nil
}

// replayBooking returns the existing event for an idempotent retry without
// re-booking or appending history.
func (s *service) replayBooking(ctx context.Context, existing persistence.InspectionEvent) (Booking, error) {
	booking := Booking{Event: existing, Replayed: true}
	if slot, err := interval.New(existing.StartTime, existing.EndTime); err == nil {
		booking.Slot = slot
	}
	if existing.InspectorID != nil {
		pool, err := s.roster.ListActive(ctx)
		if err == nil {
			for _, inspector := range pool {
				if inspector.ID == *existing.InspectorID {
					booking.Inspector = inspector
					break
				}
			}
		}
	}
	return booking, nil
}

// updateDetails changes only non-temporal fields and the calendar description.
// Date, time and inspector are preserved untouched.
func (s *service) updateDetails(ctx context.Context, existing persistence.InspectionEvent, req InspectionRequest, logger *zap.Logger) (Booking, error) {
	space, _ := tenant.FromContext(ctx)

	existing.Location = req.Location
	if pc := req.EffectivePostcode(); pc != "" {
		existing.Postcode = pc
	}
	existing.Bedrooms = req.Bedrooms
	existing.Bathrooms = req.Bathrooms

	if existing.GoogleEventID != nil && existing.InspectorID != nil {
		inspector, err := s.inspectorByID(ctx, *existing.InspectorID)
		if err == nil && inspector.CalendarID != "" {
			details := calendar.EventDetails{
				Summary:       eventSummary(req),
				Description:   eventDescription(req, inspector),
				Location:      req.Location,
				Start:         existing.StartTime,
				End:           existing.EndTime,
				TimeZone:      space.Timezone,
				AttendeeEmail: inspector.Email,
			}
			err = s.retry.Do(ctx, func() error {
				callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
				defer cancel()
				return s.calendar.UpdateEvent(callCtx, inspector.CalendarID, *existing.GoogleEventID, details)
			})
			if err != nil {
				return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "calendar update failed", err)
			}
		}
	}

	saved, err := s.repo.Upsert(ctx, existing)
	if err != nil {
		return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "booking update failed", err)
	}

	audit := requesttrace.FromContextOrSystem(ctx)
	if err := s.repo.AppendHistory(ctx, persistence.BookingHistoryEntry{
		EventID:     saved.EventID,
		Action:      "details_updated",
		Actor:       audit.Actor(),
		InspectorID: saved.InspectorID,
	}); err != nil {
		return Booking{}, wrapScheduleError(ReasonIntegrationUnavailable, "history write failed", err)
	}

	logger.Info("booking details updated", zap.String("event_id", saved.EventID.String()))

	booking := Booking{Event: saved}
	if slot, slotErr := interval.New(saved.StartTime, saved.EndTime); slotErr == nil {
		booking.Slot = slot
	}
	return booking, nil
}

// Cancel transitions the event to cancelled, removes the calendar event and
// appends the audit entry. Already-terminal events are rejected.
func (s *service) Cancel(ctx context.Context, eventID uuid.UUID, reason string) error {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, persistence.ErrEventNotFound) {
			return err
		}
		return wrapScheduleError(ReasonIntegrationUnavailable, "booking lookup failed", err)
	}
	if event.Status == persistence.EventStatusCancelled || event.Status == persistence.EventStatusCompleted {
		return newScheduleError(ReasonInvariantViolation,
			fmt.Sprintf("booking is already %s", event.Status))
	}

	if event.GoogleEventID != nil && event.InspectorID != nil {
		inspector, inspErr := s.inspectorByID(ctx, *event.InspectorID)
		if inspErr == nil && inspector.CalendarID != "" {
			err = s.retry.Do(ctx, func() error {
				callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
				defer cancel()
				return s.calendar.CancelEvent(callCtx, inspector.CalendarID, *event.GoogleEventID)
			})
			if err != nil {
				return wrapScheduleError(ReasonIntegrationUnavailable, "calendar cancel failed", err)
			}
		}
	}

	if err := s.repo.UpdateStatus(ctx, eventID, persistence.EventStatusCancelled); err != nil {
		return wrapScheduleError(ReasonIntegrationUnavailable, "status update failed", err)
	}

	audit := requesttrace.FromContextOrSystem(ctx)
	detail, _ := json.Marshal(map[string]string{"reason": reason})
	return s.repo.AppendHistory(ctx, persistence.BookingHistoryEntry{
		EventID:     eventID,
		Action:      "cancelled",
		Actor:       audit.Actor(),
		InspectorID: event.InspectorID,
		Detail:      detail,
	})
}

// History returns the audit trail for a booking, oldest first.
func (s *service) History(ctx context.Context, eventID uuid.UUID) ([]persistence.BookingHistoryEntry, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, eventID)
}

// busyIntervals merges committed local bookings, buffer blocks and external
// calendar busy periods for one inspector day.
func (s *service) busyIntervals(ctx context.Context, inspector roster.Inspector, date time.Time, loc *time.Location, exclude *uuid.UUID) ([]interval.Interval, error) {
	busy, err := s.repo.LocalBusyIntervals(ctx, inspector.ID, date, exclude)
	if err != nil {
		return nil, wrapScheduleError(ReasonIntegrationUnavailable, "availability lookup failed", err)
	}

	if inspector.CalendarID != "" {
		year, month, day := date.In(loc).Date()
		from := time.Date(year, month, day, 0, 0, 0, 0, loc)
		to := from.AddDate(0, 0, 1)

		var external []interval.Interval
		err = s.retry.Do(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()
			var busyErr error
			external, busyErr = s.calendar.BusyIntervals(callCtx, inspector.CalendarID, from, to)
			return busyErr
		})
		if err != nil {
			return nil, wrapScheduleError(ReasonIntegrationUnavailable, "calendar availability failed", err)
		}
		busy = append(busy, external...)
	}

	return interval.Merge(busy), nil
}

// maskRequestedWindow constrains the slot search to the caller's requested
// time window by marking everything outside it as busy.
func (s *service) maskRequestedWindow(busy []interval.Interval, req InspectionRequest, date time.Time, loc *time.Location) []interval.Interval {
	if req.WindowStart == nil || req.WindowEnd == nil {
		return busy
	}

	year, month, day := date.In(loc).Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	windowStart := req.WindowStart.In(loc)
	windowEnd := req.WindowEnd.In(loc)
	if !windowEnd.After(windowStart) {
		return busy
	}

	if before, err := interval.New(dayStart, windowStart); err == nil {
		busy = append(busy, before)
	}
	if after, err := interval.New(windowEnd, dayEnd); err == nil {
		busy = append(busy, after)
	}
	return interval.Merge(busy)
}

func (s *service) inspectorByID(ctx context.Context, id uuid.UUID) (roster.Inspector, error) {
	pool, err := s.roster.ListActive(ctx)
	if err != nil {
		return roster.Inspector{}, err
	}
	for _, inspector := range pool {
		if inspector.ID == id {
			return inspector, nil
		}
	}
	return roster.Inspector{}, fmt.Errorf("inspector %s not on active roster", id)
}

func eventSummary(req InspectionRequest) string {
	return fmt.Sprintf("%s inspection - %s", strings.ToUpper(string(req.InspectionType)), req.Location)
}

// eventDescription builds the structured calendar description that downstream
// tooling parses.
func eventDescription(req InspectionRequest, inspector roster.Inspector) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inspection Type: %s\n", req.InspectionType)
	fmt.Fprintf(&b, "Property Type: %s\n", req.PropertyType)
	fmt.Fprintf(&b, "Address: %s\n", req.Location)
	fmt.Fprintf(&b, "Bedrooms: %d\n", req.Bedrooms)
	fmt.Fprintf(&b, "Bathrooms: %d\n", req.Bathrooms)
	fmt.Fprintf(&b, "Duration: %.1f hours\n", req.DurationHours)
	fmt.Fprintf(&b, "Inspector: %s\n", inspector.Name)
	fmt.Fprintf(&b, "Request: %s\n", req.RequestUID)
	return b.String()
}
