package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/inspection-scheduler/domains/roster/be/repo"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("inspector not found")
	ErrConflict = errors.New("inspector conflict")
)

// InspectionType enumerates the certification categories an inspector can hold.
type InspectionType string

const (
	InspectionTypePCR      InspectionType = "pcr"
	InspectionTypeFinal    InspectionType = "final"
	InspectionTypeRoutine  InspectionType = "routine"
	InspectionTypeExternal InspectionType = "external"
)

// PropertyType enumerates the property categories an inspector can be certified for.
type PropertyType string

const (
	PropertyTypeResidential PropertyType = "residential"
	PropertyTypeCommercial  PropertyType = "commercial"
	PropertyTypeIndustrial  PropertyType = "industrial"
)

// ParseInspectionType validates a raw certification value.
func ParseInspectionType(raw string) (InspectionType, error) {
	switch InspectionType(strings.ToLower(strings.TrimSpace(raw))) {
	case InspectionTypePCR:
		return InspectionTypePCR, nil
	case InspectionTypeFinal:
		return InspectionTypeFinal, nil
	case InspectionTypeRoutine:
		return InspectionTypeRoutine, nil
	case InspectionTypeExternal:
		return InspectionTypeExternal, nil
	default:
		return "", fmt.Errorf("unknown inspection type %q", raw)
	}
}

// ParsePropertyType validates a raw property category value.
func ParsePropertyType(raw string) (PropertyType, error) {
	switch PropertyType(strings.ToLower(strings.TrimSpace(raw))) {
	case PropertyTypeResidential:
		return PropertyTypeResidential, nil
	case PropertyTypeCommercial:
		return PropertyTypeCommercial, nil
	case PropertyTypeIndustrial:
		return PropertyTypeIndustrial, nil
	default:
		return "", fmt.Errorf("unknown property type %q", raw)
	}
}

// Inspector represents the domain view of a roster member.
type Inspector struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	CalendarID         string
	InspectionTypes    []InspectionType
	PropertyTypes      []PropertyType
	HomePostcode       string
	ServiceRadiusMiles float64
	DailyCapacityHours float64
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Certified reports whether the inspector holds both certifications.
func (i Inspector) Certified(inspection InspectionType, property PropertyType) bool {
	return containsType(i.InspectionTypes, inspection) && containsType(i.PropertyTypes, property)
}

func containsType[T comparable](set []T, want T) bool {
	for _, v := range set {
		if v == want {
			return true
		}
	}
	return false
}

// CreateInput represents the payload required to register a new inspector.
type CreateInput struct {
	Name               string
	Email              string
	CalendarID         string
	InspectionTypes    []string
	PropertyTypes      []string
	HomePostcode       string
	ServiceRadiusMiles float64
	DailyCapacityHours float64
}

// BufferBlockInput registers a manual hold on an inspector's day.
type BufferBlockInput struct {
	InspectorID uuid.UUID
	Date        time.Time
	Start       time.Time
	End         time.Time
	Reason      string
}

// PreferenceInput records a property manager's preferred inspectors.
type PreferenceInput struct {
	ManagerKey   string
	ManagerName  string
	ManagerEmail string
	InspectorIDs []uuid.UUID
}

// Service defines the business operations for the roster domain.
type Service interface {
	ListActive(ctx context.Context) ([]Inspector, error)
	Get(ctx context.Context, id uuid.UUID) (Inspector, error)
	Create(ctx context.Context, input CreateInput) (Inspector, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	AddBufferBlock(ctx context.Context, input BufferBlockInput) error
	SetManagerPreference(ctx context.Context, input PreferenceInput) error
}

type service struct {
	repo repo.Repository
}

// New constructs a roster Service instance backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("roster repository is required")
	}
	return &service{repo: r}
}

func (s *service) ListActive(ctx context.Context) ([]Inspector, error) {
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	inspectors := make([]Inspector, 0, len(records))
	for _, record := range records {
		inspector, err := MapInspector(record)
		if err != nil {
			return nil, err
		}
		inspectors = append(inspectors, inspector)
	}

	return inspectors, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Inspector, error) {
	if id == uuid.Nil {
		return Inspector{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Inspector{}, mapPersistenceError(err)
	}

	return MapInspector(record)
}

func (s *service) Create(ctx context.Context, input CreateInput) (Inspector, error) {
	fieldErrors := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors.add("name", "name is required")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	postcode := strings.TrimSpace(input.HomePostcode)
	if postcode == "" {
		fieldErrors.add("homePostcode", "homePostcode is required")
	}

	inspectionTypes := make([]string, 0, len(input.InspectionTypes))
	for _, raw := range input.InspectionTypes {
		parsed, err := ParseInspectionType(raw)
		if err != nil {
			fieldErrors.add("inspectionTypes", err.Error())
			continue
		}
		inspectionTypes = append(inspectionTypes, string(parsed))
	}
	if len(input.InspectionTypes) == 0 {
		fieldErrors.add("inspectionTypes", "at least one inspection type is required")
	}

	propertyTypes := make([]string, 0, len(input.PropertyTypes))
	for _, raw := range input.PropertyTypes {
		parsed, err := ParsePropertyType(raw)
		if err != nil {
			fieldErrors.add("propertyTypes", err.Error())
			continue
		}
		propertyTypes = append(propertyTypes, string(parsed))
	}
	if len(input.PropertyTypes) == 0 {
		fieldErrors.add("propertyTypes", "at least one property type is required")
	}

	if input.ServiceRadiusMiles < 0 {
		fieldErrors.add("serviceRadiusMiles", "serviceRadiusMiles cannot be negative")
	}
	if input.DailyCapacityHours < 0 {
		fieldErrors.add("dailyCapacityHours", "dailyCapacityHours cannot be negative")
	}

	if len(fieldErrors) > 0 {
		return Inspector{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.Create(ctx, persistence.CreateInspectorParams{
		FullName:           name,
		Email:              strings.ToLower(email),
		CalendarID:         strings.TrimSpace(input.CalendarID),
		InspectionTypes:    inspectionTypes,
		PropertyTypes:      propertyTypes,
		HomePostcode:       postcode,
		ServiceRadiusMiles: input.ServiceRadiusMiles,
		DailyCapacityHours: input.DailyCapacityHours,
	})
	if err != nil {
		return Inspector{}, mapPersistenceError(err)
	}

	return MapInspector(record)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) AddBufferBlock(ctx context.Context, input BufferBlockInput) error {
	if input.InspectorID == uuid.Nil {
		return newValidationError(map[string]string{"inspectorId": "inspectorId is required"})
	}
	if !input.End.After(input.Start) {
		return newValidationError(map[string]string{"end": "end must be after start"})
	}

	if err := s.repo.AddBufferBlock(ctx, persistence.BufferBlock{
		InspectorID: input.InspectorID,
		BlockDate:   input.Date,
		StartTime:   input.Start,
		EndTime:     input.End,
		Reason:      strings.TrimSpace(input.Reason),
	}); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) SetManagerPreference(ctx context.Context, input PreferenceInput) error {
	if strings.TrimSpace(input.ManagerKey) == "" {
		return newValidationError(map[string]string{"managerKey": "managerKey is required"})
	}

	if err := s.repo.UpsertManagerPreference(ctx, persistence.PropertyManager{
		ManagerKey:            input.ManagerKey,
		FullName:              strings.TrimSpace(input.ManagerName),
		Email:                 strings.TrimSpace(input.ManagerEmail),
		PreferredInspectorIDs: input.InspectorIDs,
	}); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

// MapInspector converts a persistence record into the domain view, validating
// the certification enums stored as raw text.
func MapInspector(record persistence.Inspector) (Inspector, error) {
	inspectionTypes := make([]InspectionType, 0, len(record.InspectionTypes))
	for _, raw := range record.InspectionTypes {
		parsed, err := ParseInspectionType(raw)
		if err != nil {
			return Inspector{}, fmt.Errorf("inspector %s: %w", record.InspectorID, err)
		}
		inspectionTypes = append(inspectionTypes, parsed)
	}

	propertyTypes := make([]PropertyType, 0, len(record.PropertyTypes))
	for _, raw := range record.PropertyTypes {
		parsed, err := ParsePropertyType(raw)
		if err != nil {
			return Inspector{}, fmt.Errorf("inspector %s: %w", record.InspectorID, err)
		}
		propertyTypes = append(propertyTypes, parsed)
	}

	return Inspector{
		ID:                 record.InspectorID,
		Name:               record.FullName,
		Email:              record.Email,
		CalendarID:         record.CalendarID,
		InspectionTypes:    inspectionTypes,
		PropertyTypes:      propertyTypes,
		HomePostcode:       record.HomePostcode,
		ServiceRadiusMiles: record.ServiceRadiusMiles,
		DailyCapacityHours: record.DailyCapacityHours,
		Active:             record.Active,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}, nil
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrInspectorNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrInspectorConflict):
		return ErrConflict
	default:
		return err
	}
}

func newValidationError(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.add(key, message)
	}
	return &ValidationError{Fields: fe}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
