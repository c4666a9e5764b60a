package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/inspection-scheduler/platform/go/interval"
)

const (
	InspectionEventsTable = "inspection_events"
	BookingHistoryTable   = "booking_history"
)

// Event lifecycle statuses. Transitions are enforced by the scheduling service,
// the store only records them.
const (
	EventStatusScheduled   = "scheduled"
	EventStatusConfirmed   = "confirmed"
	EventStatusCompleted   = "completed"
	EventStatusCancelled   = "cancelled"
	EventStatusRescheduled = "rescheduled"
)

// activeStatuses are the statuses that occupy an inspector's time.
var activeStatuses = []string{EventStatusScheduled, EventStatusConfirmed}

// InspectionEvent represents a row in the inspection_events table.
type InspectionEvent struct {
	EventID        uuid.UUID  `db:"event_id" json:"eventId"`
	AccountID      int64      `db:"account_id" json:"accountId"`
	InspectorID    *uuid.UUID `db:"inspector_id" json:"inspectorId,omitempty"`
	InspectionType string     `db:"inspection_type" json:"inspectionType"`
	PropertyType   string     `db:"property_type" json:"propertyType"`
	Location       string     `db:"location" json:"location"`
	Postcode       string     `db:"postcode" json:"postcode"`
	ServiceDate    time.Time  `db:"service_date" json:"serviceDate"`
	StartTime      time.Time  `db:"start_time" json:"startTime"`
	EndTime        time.Time  `db:"end_time" json:"endTime"`
	DurationHours  float64    `db:"duration_hours" json:"durationHours"`
	Bedrooms       int        `db:"bedrooms" json:"bedrooms"`
	Bathrooms      int        `db:"bathrooms" json:"bathrooms"`
	Status         string     `db:"status" json:"status"`
	GoogleEventID  *string    `db:"google_event_id" json:"googleEventId,omitempty"`
	EmailThreadID  *string    `db:"email_thread_id" json:"emailThreadId,omitempty"`
	EmailMessageID *string    `db:"email_message_id" json:"emailMessageId,omitempty"`
	RequestUID     string     `db:"request_uid" json:"requestUid"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// BookingHistoryEntry represents a row in the booking_history audit table.
type BookingHistoryEntry struct {
	HistoryID   int64      `db:"history_id" json:"historyId"`
	AccountID   int64      `db:"account_id" json:"accountId"`
	EventID     uuid.UUID  `db:"event_id" json:"eventId"`
	Action      string     `db:"action" json:"action"`
	Actor       string     `db:"actor" json:"actor"`
	InspectorID *uuid.UUID `db:"inspector_id" json:"inspectorId,omitempty"`
	Detail      []byte     `db:"detail" json:"detail"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

var (
	// ErrEventNotFound indicates a missing inspection event.
	ErrEventNotFound = errors.New("inspection event not found")
	// ErrEventConflict indicates a request_uid uniqueness violation.
	ErrEventConflict = errors.New("inspection event conflict")
)

// EventStore exposes persistence helpers for inspection events and booking history.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore returns a store instance bound to the shared pool.
func NewEventStore(pool *pgxpool.Pool) (*EventStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}

	return &EventStore{pool: pool}, nil
}

const eventColumns = `event_id, account_id, inspector_id, inspection_type, property_type, location, postcode,
        service_date, start_time, end_time, duration_hours, bedrooms, bathrooms, status,
        google_event_id, email_thread_id, email_message_id, request_uid, created_at, updated_at`

// UpsertEvent inserts an inspection event keyed by (account_id, request_uid).
// Replaying the same request updates the assignment fields in place so retried
// bookings converge on a single row.
func (s *EventStore) UpsertEvent(ctx context.Context, event InspectionEvent) (InspectionEvent, error) {
	if event.AccountID == 0 {
		return InspectionEvent{}, errors.New("account id is required")
	}
	if strings.TrimSpace(event.RequestUID) == "" {
		return InspectionEvent{}, errors.New("request uid is required")
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (event_id, account_id, inspector_id, inspection_type, property_type, location, postcode,
                        service_date, start_time, end_time, duration_hours, bedrooms, bathrooms, status,
                        google_event_id, email_thread_id, email_message_id, request_uid)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        ON CONFLICT (account_id, request_uid) DO UPDATE SET
            inspector_id = EXCLUDED.inspector_id,
            service_date = EXCLUDED.service_date,
            start_time = EXCLUDED.start_time,
            end_time = EXCLUDED.end_time,
            duration_hours = EXCLUDED.duration_hours,
            location = EXCLUDED.location,
            postcode = EXCLUDED.postcode,
            bedrooms = EXCLUDED.bedrooms,
            bathrooms = EXCLUDED.bathrooms,
            status = EXCLUDED.status,
            google_event_id = EXCLUDED.google_event_id,
            updated_at = NOW()
        RETURNING %s
    `, InspectionEventsTable, eventColumns),
		event.EventID,
		event.AccountID,
		event.InspectorID,
		event.InspectionType,
		event.PropertyType,
		strings.TrimSpace(event.Location),
		strings.TrimSpace(event.Postcode),
		event.ServiceDate.Format("2006-01-02"),
		event.StartTime,
		event.EndTime,
		event.DurationHours,
		event.Bedrooms,
		event.Bathrooms,
		event.Status,
		event.GoogleEventID,
		event.EmailThreadID,
		event.EmailMessageID,
		strings.TrimSpace(event.RequestUID),
	)

	saved, err := scanEvent(row)
	if err != nil {
		if isUniqueViolation(err) {
			return InspectionEvent{}, ErrEventConflict
		}
		return InspectionEvent{}, err
	}

	return saved, nil
}

// GetEvent returns a single event by identifier within the account.
func (s *EventStore) GetEvent(ctx context.Context, accountID int64, eventID uuid.UUID) (InspectionEvent, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE account_id = $1 AND event_id = $2
    `, eventColumns, InspectionEventsTable), accountID, eventID)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InspectionEvent{}, ErrEventNotFound
		}
		return InspectionEvent{}, err
	}

	return event, nil
}

// GetEventByRequestUID returns the event previously booked for a request, used
// for idempotent replay detection.
func (s *EventStore) GetEventByRequestUID(ctx context.Context, accountID int64, requestUID string) (InspectionEvent, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE account_id = $1 AND request_uid = $2
    `, eventColumns, InspectionEventsTable), accountID, strings.TrimSpace(requestUID))

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InspectionEvent{}, ErrEventNotFound
		}
		return InspectionEvent{}, err
	}

	return event, nil
}

// UpdateEventStatus transitions the event's status.
func (s *EventStore) UpdateEventStatus(ctx context.Context, accountID int64, eventID uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $3, updated_at = NOW()
        WHERE account_id = $1 AND event_id = $2
    `, InspectionEventsTable), accountID, eventID, status)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CountBookedHours sums duration_hours over the inspector's active events on a
// date. The optional exclude id keeps the event being rescheduled out of its
// own workload.
func (s *EventStore) CountBookedHours(ctx context.Context, accountID int64, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) (float64, error) {
	var hours float64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT COALESCE(SUM(duration_hours), 0) FROM %s
        WHERE account_id = $1 AND inspector_id = $2 AND service_date = $3::date
          AND status = ANY($4)
          AND ($5::uuid IS NULL OR event_id <> $5)
    `, InspectionEventsTable), accountID, inspectorID, date.Format("2006-01-02"), activeStatuses, exclude).Scan(&hours)
	if err != nil {
		return 0, fmt.Errorf("count booked hours: %w", err)
	}
	return hours, nil
}

// CountSameDayLocality counts the inspector's active events on the date that
// share the candidate postcode, feeding the locality clustering score.
func (s *EventStore) CountSameDayLocality(ctx context.Context, accountID int64, inspectorID uuid.UUID, postcode string, date time.Time, exclude *uuid.UUID) (int, error) {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return 0, nil
	}

	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT COUNT(*) FROM %s
        WHERE account_id = $1 AND inspector_id = $2 AND service_date = $3::date
          AND postcode = $4 AND status = ANY($5)
          AND ($6::uuid IS NULL OR event_id <> $6)
    `, InspectionEventsTable), accountID, inspectorID, date.Format("2006-01-02"), postcode, activeStatuses, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count same-day locality: %w", err)
	}
	return count, nil
}

// BusyIntervals returns the merged busy windows for an inspector on a date,
// combining active inspection events with manual buffer blocks. This is the
// local complement to the calendar free/busy lookup.
func (s *EventStore) BusyIntervals(ctx context.Context, accountID int64, inspectorID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]interval.Interval, error) {
	day := date.Format("2006-01-02")

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT start_time, end_time FROM %s
        WHERE account_id = $1 AND inspector_id = $2 AND service_date = $3::date
          AND status = ANY($4)
          AND ($5::uuid IS NULL OR event_id <> $5)
        UNION ALL
        SELECT start_time, end_time FROM %s
        WHERE account_id = $1 AND inspector_id = $2 AND block_date = $3::date
    `, InspectionEventsTable, BufferBlocksTable), accountID, inspectorID, day, activeStatuses, exclude)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}
	defer rows.Close()

	busy := make([]interval.Interval, 0)
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("scan busy interval: %w", err)
		}
		iv, err := interval.New(start, end)
		if err != nil {
			return nil, fmt.Errorf("busy interval: %w", err)
		}
		busy = append(busy, iv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate busy intervals: %w", err)
	}

	return interval.Merge(busy), nil
}

// AppendHistory records an audit entry for a booking mutation.
func (s *EventStore) AppendHistory(ctx context.Context, entry BookingHistoryEntry) error {
	if entry.EventID == uuid.Nil {
		return errors.New("event id is required")
	}
	if entry.Action == "" {
		return errors.New("action is required")
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}

	detail := entry.Detail
	if len(detail) == 0 {
		detail = []byte("{}")
	}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, event_id, action, actor, inspector_id, detail)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, BookingHistoryTable), entry.AccountID, entry.EventID, entry.Action, entry.Actor, entry.InspectorID, detail); err != nil {
		return fmt.Errorf("append booking history: %w", err)
	}

	return nil
}

// ListHistory returns the audit trail for an event, oldest first.
func (s *EventStore) ListHistory(ctx context.Context, accountID int64, eventID uuid.UUID) ([]BookingHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT history_id, account_id, event_id, action, actor, inspector_id, detail, created_at
        FROM %s
        WHERE account_id = $1 AND event_id = $2
        ORDER BY history_id ASC
    `, BookingHistoryTable), accountID, eventID)
	if err != nil {
		return nil, fmt.Errorf("list booking history: %w", err)
	}
	defer rows.Close()

	entries := make([]BookingHistoryEntry, 0)
	for rows.Next() {
		var entry BookingHistoryEntry
		if err := rows.Scan(&entry.HistoryID, &entry.AccountID, &entry.EventID, &entry.Action, &entry.Actor, &entry.InspectorID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking history: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking history: %w", err)
	}

	return entries, nil
}

func scanEvent(row pgx.Row) (InspectionEvent, error) {
	var event InspectionEvent

	if err := row.Scan(
		&event.EventID,
		&event.AccountID,
		&event.InspectorID,
		&event.InspectionType,
		&event.PropertyType,
		&event.Location,
		&event.Postcode,
		&event.ServiceDate,
		&event.StartTime,
		&event.EndTime,
		&event.DurationHours,
		&event.Bedrooms,
		&event.Bathrooms,
		&event.Status,
		&event.GoogleEventID,
		&event.EmailThreadID,
		&event.EmailMessageID,
		&event.RequestUID,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return InspectionEvent{}, err
	}

	return event, nil
}
