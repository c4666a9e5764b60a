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
)

const (
	InspectorsTable       = "inspectors"
	BufferBlocksTable     = "inspector_buffer_blocks"
	PropertyManagersTable = "property_managers"
)

// Inspector represents a row in the inspectors table.
type Inspector struct {
	InspectorID        uuid.UUID `db:"inspector_id" json:"inspectorId"`
	AccountID          int64     `db:"account_id" json:"accountId"`
	FullName           string    `db:"full_name" json:"fullName"`
	Email              string    `db:"email" json:"email"`
	CalendarID         string    `db:"calendar_id" json:"calendarId"`
	InspectionTypes    []string  `db:"inspection_types" json:"inspectionTypes"`
	PropertyTypes      []string  `db:"property_types" json:"propertyTypes"`
	HomePostcode       string    `db:"home_postcode" json:"homePostcode"`
	ServiceRadiusMiles float64   `db:"service_radius_miles" json:"serviceRadiusMiles"`
	DailyCapacityHours float64   `db:"daily_capacity_hours" json:"dailyCapacityHours"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// BufferBlock is a manual hold on an inspector's day, e.g. travel time or a
// lunch break, that candidate slots must not overlap.
type BufferBlock struct {
	BufferID    int64     `db:"buffer_id" json:"bufferId"`
	AccountID   int64     `db:"account_id" json:"accountId"`
	InspectorID uuid.UUID `db:"inspector_id" json:"inspectorId"`
	BlockDate   time.Time `db:"block_date" json:"blockDate"`
	StartTime   time.Time `db:"start_time" json:"startTime"`
	EndTime     time.Time `db:"end_time" json:"endTime"`
	Reason      string    `db:"reason" json:"reason"`
}

// PropertyManager represents a row in the property_managers table. ManagerKey
// is the normalized lookup key (agency name or email domain) that incoming
// requests carry.
type PropertyManager struct {
	ManagerID             uuid.UUID   `db:"manager_id" json:"managerId"`
	AccountID             int64       `db:"account_id" json:"accountId"`
	ManagerKey            string      `db:"manager_key" json:"managerKey"`
	FullName              string      `db:"full_name" json:"fullName"`
	Email                 string      `db:"email" json:"email"`
	PreferredInspectorIDs []uuid.UUID `db:"preferred_inspector_ids" json:"preferredInspectorIds"`
	CreatedAt             time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time   `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrInspectorNotFound indicates a missing inspector record.
	ErrInspectorNotFound = errors.New("inspector not found")
	// ErrInspectorConflict indicates a uniqueness violation (duplicated email).
	ErrInspectorConflict = errors.New("inspector conflict")
)

// RosterStore exposes persistence helpers for inspectors, buffer blocks and
// property managers.
type RosterStore struct {
	pool *pgxpool.Pool
}

// NewRosterStore returns a store instance bound to the shared pool.
func NewRosterStore(pool *pgxpool.Pool) (*RosterStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}

	return &RosterStore{pool: pool}, nil
}

// CreateInspectorParams captures the fields required to insert a new inspector.
type CreateInspectorParams struct {
	AccountID          int64
	FullName           string
	Email              string
	CalendarID         string
	InspectionTypes    []string
	PropertyTypes      []string
	HomePostcode       string
	ServiceRadiusMiles float64
	DailyCapacityHours float64
}

// CreateInspector inserts a new inspector and returns the persisted record.
func (s *RosterStore) CreateInspector(ctx context.Context, params CreateInspectorParams) (Inspector, error) {
	if params.AccountID == 0 {
		return Inspector{}, errors.New("account id is required")
	}
	if strings.TrimSpace(params.FullName) == "" {
		return Inspector{}, errors.New("full name is required")
	}
	if strings.TrimSpace(params.HomePostcode) == "" {
		return Inspector{}, errors.New("home postcode is required")
	}
	if params.ServiceRadiusMiles <= 0 {
		params.ServiceRadiusMiles = 25
	}
	if params.DailyCapacityHours <= 0 {
		params.DailyCapacityHours = 8
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, full_name, email, calendar_id, inspection_types, property_types,
                        home_postcode, service_radius_miles, daily_capacity_hours)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING inspector_id, account_id, full_name, email, calendar_id, inspection_types, property_types,
                  home_postcode, service_radius_miles, daily_capacity_hours, active, created_at, updated_at
    `, InspectorsTable),
		params.AccountID,
		strings.TrimSpace(params.FullName),
		strings.TrimSpace(params.Email),
		strings.TrimSpace(params.CalendarID),
		params.InspectionTypes,
		params.PropertyTypes,
		strings.TrimSpace(params.HomePostcode),
		params.ServiceRadiusMiles,
		params.DailyCapacityHours,
	)

	inspector, err := scanInspector(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Inspector{}, ErrInspectorConflict
		}
		return Inspector{}, err
	}

	return inspector, nil
}

// GetInspector returns a single inspector by identifier within the account.
func (s *RosterStore) GetInspector(ctx context.Context, accountID int64, inspectorID uuid.UUID) (Inspector, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT inspector_id, account_id, full_name, email, calendar_id, inspection_types, property_types,
               home_postcode, service_radius_miles, daily_capacity_hours, active, created_at, updated_at
        FROM %s WHERE account_id = $1 AND inspector_id = $2
    `, InspectorsTable), accountID, inspectorID)

	inspector, err := scanInspector(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Inspector{}, ErrInspectorNotFound
		}
		return Inspector{}, err
	}

	return inspector, nil
}

// ListActiveInspectors returns the account's active inspectors ordered by name.
func (s *RosterStore) ListActiveInspectors(ctx context.Context, accountID int64) ([]Inspector, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT inspector_id, account_id, full_name, email, calendar_id, inspection_types, property_types,
               home_postcode, service_radius_miles, daily_capacity_hours, active, created_at, updated_at
        FROM %s
        WHERE account_id = $1 AND active
        ORDER BY full_name ASC
    `, InspectorsTable), accountID)
	if err != nil {
		return nil, fmt.Errorf("list inspectors: %w", err)
	}
	defer rows.Close()

	inspectors := make([]Inspector, 0)
	for rows.Next() {
		inspector, scanErr := scanInspector(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan inspector: %w", scanErr)
		}
		inspectors = append(inspectors, inspector)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inspectors: %w", err)
	}

	return inspectors, nil
}

// SetInspectorActive toggles the active flag for an inspector.
func (s *RosterStore) SetInspectorActive(ctx context.Context, accountID int64, inspectorID uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET active = $3, updated_at = NOW()
        WHERE account_id = $1 AND inspector_id = $2
    `, InspectorsTable), accountID, inspectorID, active)
	if err != nil {
		return fmt.Errorf("set inspector active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInspectorNotFound
	}
	return nil
}

// AddBufferBlock inserts a manual hold on an inspector's day.
func (s *RosterStore) AddBufferBlock(ctx context.Context, block BufferBlock) (BufferBlock, error) {
	if block.InspectorID == uuid.Nil {
		return BufferBlock{}, errors.New("inspector id is required")
	}
	if !block.EndTime.After(block.StartTime) {
		return BufferBlock{}, errors.New("block end must be after start")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, inspector_id, block_date, start_time, end_time, reason)
        VALUES ($1, $2, $3::date, $4, $5, $6)
        RETURNING buffer_id, account_id, inspector_id, block_date, start_time, end_time, reason
    `, BufferBlocksTable),
		block.AccountID,
		block.InspectorID,
		block.BlockDate.Format("2006-01-02"),
		block.StartTime,
		block.EndTime,
		block.Reason,
	)

	var saved BufferBlock
	if err := row.Scan(&saved.BufferID, &saved.AccountID, &saved.InspectorID, &saved.BlockDate, &saved.StartTime, &saved.EndTime, &saved.Reason); err != nil {
		return BufferBlock{}, fmt.Errorf("insert buffer block: %w", err)
	}

	return saved, nil
}

// UpsertPropertyManager inserts or updates a property manager keyed by its
// normalized manager key (agency name or email domain).
func (s *RosterStore) UpsertPropertyManager(ctx context.Context, manager PropertyManager) (PropertyManager, error) {
	key := NormalizeManagerKey(manager.ManagerKey)
	if key == "" {
		return PropertyManager{}, errors.New("manager key is required")
	}

	ids := manager.PreferredInspectorIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, manager_key, full_name, email, preferred_inspector_ids)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (account_id, manager_key) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            email = EXCLUDED.email,
            preferred_inspector_ids = EXCLUDED.preferred_inspector_ids,
            updated_at = NOW()
        RETURNING manager_id, account_id, manager_key, full_name, email, preferred_inspector_ids, created_at, updated_at
    `, PropertyManagersTable),
		manager.AccountID,
		key,
		strings.TrimSpace(manager.FullName),
		strings.ToLower(strings.TrimSpace(manager.Email)),
		ids,
	)

	var saved PropertyManager
	if err := row.Scan(&saved.ManagerID, &saved.AccountID, &saved.ManagerKey, &saved.FullName, &saved.Email, &saved.PreferredInspectorIDs, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
		return PropertyManager{}, fmt.Errorf("upsert property manager: %w", err)
	}

	return saved, nil
}

// PreferredInspectorIDs looks up the preferred inspector list for a property
// manager key. Returns an empty slice without error when the manager is
// unknown or has no stated preference.
func (s *RosterStore) PreferredInspectorIDs(ctx context.Context, accountID int64, managerKey string) ([]uuid.UUID, error) {
	key := NormalizeManagerKey(managerKey)
	if key == "" {
		return nil, nil
	}

	var preferred []uuid.UUID
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT preferred_inspector_ids FROM %s
        WHERE account_id = $1 AND manager_key = $2
    `, PropertyManagersTable), accountID, key).Scan(&preferred)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup preferred inspectors: %w", err)
	}

	return preferred, nil
}

// NormalizeManagerKey lowercases and trims a property-manager lookup key. When
// the key looks like an email address only the domain part is kept, so both
// "Jane@AgencyX.com.au" and "agencyx.com.au" resolve to the same record.
func NormalizeManagerKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if at := strings.LastIndex(key, "@"); at >= 0 {
		key = key[at+1:]
	}
	return key
}

func scanInspector(row pgx.Row) (Inspector, error) {
	var inspector Inspector

	if err := row.Scan(
		&inspector.InspectorID,
		&inspector.AccountID,
		&inspector.FullName,
		&inspector.Email,
		&inspector.CalendarID,
		&inspector.InspectionTypes,
		&inspector.PropertyTypes,
		&inspector.HomePostcode,
		&inspector.ServiceRadiusMiles,
		&inspector.DailyCapacityHours,
		&inspector.Active,
		&inspector.CreatedAt,
		&inspector.UpdatedAt,
	); err != nil {
		return Inspector{}, err
	}

	return inspector, nil
}
