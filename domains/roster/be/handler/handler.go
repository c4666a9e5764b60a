package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	platformlogging "github.com/zenGate-Global/inspection-scheduler/platform/go/logging"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/problemdetails"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

const (
	problemTypeValidation = "https://tcg.land/problems/validation-error"
	problemTypeNotFound   = "https://tcg.land/problems/not-found"
	problemTypeConflict   = "https://tcg.land/problems/conflict"
	problemTypeInternal   = "https://tcg.land/problems/internal-error"
)

type operation string

const (
	createOperation     operation = "inspectorsCreate"
	listOperation       operation = "inspectorsList"
	getOperation        operation = "inspectorsGet"
	deactivateOperation operation = "inspectorsDeactivate"
	bufferOperation     operation = "inspectorsAddBufferBlock"
	preferenceOperation operation = "managersSetPreference"
)

const maxBodyBytes = 64 * 1024

// Handler exposes the roster admin surface over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("roster service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Register mounts the roster routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/inspectors", h.CreateInspector)
	r.Get("/inspectors", h.ListInspectors)
	r.Get("/inspectors/{inspectorID}", h.GetInspector)
	r.Delete("/inspectors/{inspectorID}", h.DeactivateInspector)
	r.Post("/inspectors/{inspectorID}/buffer-blocks", h.AddBufferBlock)
	r.Put("/property-managers/{managerKey}", h.SetManagerPreference)
}

type createInspectorBody struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	CalendarID         string   `json:"calendarId"`
	InspectionTypes    []string `json:"inspectionTypes"`
	PropertyTypes      []string `json:"propertyTypes"`
	HomePostcode       string   `json:"homePostcode"`
	ServiceRadiusMiles float64  `json:"serviceRadiusMiles"`
	DailyCapacityHours float64  `json:"dailyCapacityHours"`
}

type bufferBlockBody struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type preferenceBody struct {
	ManagerName  string   `json:"managerName"`
	ManagerEmail string   `json:"managerEmail"`
	InspectorIDs []string `json:"inspectorIds"`
}

type inspectorView struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	CalendarID         string    `json:"calendarId,omitempty"`
	InspectionTypes    []string  `json:"inspectionTypes"`
	PropertyTypes      []string  `json:"propertyTypes"`
	HomePostcode       string    `json:"homePostcode"`
	ServiceRadiusMiles float64   `json:"serviceRadiusMiles"`
	DailyCapacityHours float64   `json:"dailyCapacityHours"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (h *Handler) CreateInspector(w http.ResponseWriter, r *http.Request) {
	var body createInspectorBody
	if err := decodeBody(r, &body); err != nil {
		problemdetails.Write(w, h.buildProblem("Invalid request body", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Name:               body.Name,
		Email:              body.Email,
		CalendarID:         body.CalendarID,
		InspectionTypes:    body.InspectionTypes,
		PropertyTypes:      body.PropertyTypes,
		HomePostcode:       body.HomePostcode,
		ServiceRadiusMiles: body.ServiceRadiusMiles,
		DailyCapacityHours: body.DailyCapacityHours,
	})
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, createOperation))
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/inspectors/%s", created.ID))
	h.writeJSON(w, http.StatusCreated, toInspectorView(created))
}

func (h *Handler) ListInspectors(w http.ResponseWriter, r *http.Request) {
	inspectors, err := h.svc.ListActive(r.Context())
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, listOperation))
		return
	}

	items := make([]inspectorView, 0, len(inspectors))
	for _, inspector := range inspectors {
		items = append(items, toInspectorView(inspector))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetInspector(w http.ResponseWriter, r *http.Request) {
	inspectorID, ok := h.parseInspectorID(w, r)
	if !ok {
		return
	}

	inspector, err := h.svc.Get(r.Context(), inspectorID)
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, getOperation))
		return
	}

	h.writeJSON(w, http.StatusOK, toInspectorView(inspector))
}

func (h *Handler) DeactivateInspector(w http.ResponseWriter, r *http.Request) {
	inspectorID, ok := h.parseInspectorID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), inspectorID); err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, deactivateOperation))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddBufferBlock(w http.ResponseWriter, r *http.Request) {
	inspectorID, ok := h.parseInspectorID(w, r)
	if !ok {
		return
	}

	var body bufferBlockBody
	if err := decodeBody(r, &body); err != nil {
		problemdetails.Write(w, h.buildProblem("Invalid request body", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	input, err := h.toBufferBlockInput(r.Context(), inspectorID, body)
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	if err := h.svc.AddBufferBlock(r.Context(), input); err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, bufferOperation))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetManagerPreference(w http.ResponseWriter, r *http.Request) {
	managerKey := strings.TrimSpace(chi.URLParam(r, "managerKey"))
	if managerKey == "" {
		problemdetails.Write(w, h.buildProblem("Validation failed", "managerKey is required", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	var body preferenceBody
	if err := decodeBody(r, &body); err != nil {
		problemdetails.Write(w, h.buildProblem("Invalid request body", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	inspectorIDs := make([]uuid.UUID, 0, len(body.InspectorIDs))
	for _, raw := range body.InspectorIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			problemdetails.Write(w, h.buildProblem("Validation failed", fmt.Sprintf("inspectorIds: %q is not a UUID", raw), problemTypeValidation, http.StatusBadRequest, nil))
			return
		}
		inspectorIDs = append(inspectorIDs, id)
	}

	err := h.svc.SetManagerPreference(r.Context(), service.PreferenceInput{
		ManagerKey:   managerKey,
		ManagerName:  body.ManagerName,
		ManagerEmail: body.ManagerEmail,
		InspectorIDs: inspectorIDs,
	})
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, preferenceOperation))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseInspectorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	inspectorID, err := uuid.Parse(chi.URLParam(r, "inspectorID"))
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", "inspectorID must be a UUID", problemTypeValidation, http.StatusBadRequest, nil))
		return uuid.Nil, false
	}
	return inspectorID, true
}

// toBufferBlockInput resolves the date and clock strings in the tenant's
// timezone.
func (h *Handler) toBufferBlockInput(ctx context.Context, inspectorID uuid.UUID, body bufferBlockBody) (service.BufferBlockInput, error) {
	space, ok := tenant.FromContext(ctx)
	if !ok {
		return service.BufferBlockInput{}, errors.New("tenant space missing from context")
	}
	loc := space.Location()

	date, err := time.ParseInLocation("2006-01-02", body.Date, loc)
	if err != nil {
		return service.BufferBlockInput{}, errors.New("date must be formatted as YYYY-MM-DD")
	}

	start, err := clockOnDate(date, body.Start, loc)
	if err != nil {
		return service.BufferBlockInput{}, fmt.Errorf("start: %w", err)
	}
	end, err := clockOnDate(date, body.End, loc)
	if err != nil {
		return service.BufferBlockInput{}, fmt.Errorf("end: %w", err)
	}

	return service.BufferBlockInput{
		InspectorID: inspectorID,
		Date:        date,
		Start:       start,
		End:         end,
		Reason:      body.Reason,
	}, nil
}

func clockOnDate(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, errors.New("must be formatted as HH:MM")
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

func toInspectorView(inspector service.Inspector) inspectorView {
	inspectionTypes := make([]string, 0, len(inspector.InspectionTypes))
	for _, t := range inspector.InspectionTypes {
		inspectionTypes = append(inspectionTypes, string(t))
	}
	propertyTypes := make([]string, 0, len(inspector.PropertyTypes))
	for _, t := range inspector.PropertyTypes {
		propertyTypes = append(propertyTypes, string(t))
	}

	return inspectorView{
		ID:                 inspector.ID,
		Name:               inspector.Name,
		Email:              inspector.Email,
		CalendarID:         inspector.CalendarID,
		InspectionTypes:    inspectionTypes,
		PropertyTypes:      propertyTypes,
		HomePostcode:       inspector.HomePostcode,
		ServiceRadiusMiles: inspector.ServiceRadiusMiles,
		DailyCapacityHours: inspector.DailyCapacityHours,
		Active:             inspector.Active,
		CreatedAt:          inspector.CreatedAt,
		UpdatedAt:          inspector.UpdatedAt,
	}
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.New("request body must be a JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problemdetails.ProblemDetails {
	status, title, detail, problemType, fields := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("roster operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("roster resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("roster request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return h.buildProblem(title, detail, problemType, status, fields)
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problemTypeValidation,
			validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"inspector not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"inspector conflict",
			problemTypeConflict,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problemTypeInternal,
			nil
	}
}

func (h *Handler) buildProblem(title, detail, problemType string, status int, fieldErrors service.FieldErrors) problemdetails.ProblemDetails {
	problem := problemdetails.ProblemDetails{
		Title:  title,
		Status: status,
	}

	if detail != "" {
		problem.Detail = &detail
	}
	if problemType != "" {
		problem.Type = &problemType
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = copied
	}

	return problem
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
