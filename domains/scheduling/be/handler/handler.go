package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	rosterservice "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
	"github.com/zenGate-Global/inspection-scheduler/domains/scheduling/be/service"
	platformlogging "github.com/zenGate-Global/inspection-scheduler/platform/go/logging"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/problemdetails"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

const (
	problemTypeValidation  = "https://tcg.land/problems/validation-error"
	problemTypeNotFound    = "https://tcg.land/problems/not-found"
	problemTypeConflict    = "https://tcg.land/problems/conflict"
	problemTypeInternal    = "https://tcg.land/problems/internal-error"
	problemTypeBusinessDay = "https://tcg.land/problems/invalid-business-day"
	problemTypeNoCapacity  = "https://tcg.land/problems/no-capacity"
	problemTypeIntegration = "https://tcg.land/problems/integration-unavailable"
)

type operation string

const (
	scheduleOperation operation = "inspectionsSchedule"
	cancelOperation   operation = "inspectionsCancel"
	historyOperation  operation = "inspectionsHistory"
)

// maxBodyBytes bounds the accepted request payload.
const maxBodyBytes = 64 * 1024

//go:embed schedule_request.schema.json
var scheduleRequestSchemaJSON string

var scheduleRequestSchema = jsonschema.MustCompileString("schedule_request.schema.json", scheduleRequestSchemaJSON)

// Handler exposes the scheduling service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("scheduling service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Register mounts the scheduling routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/inspections", h.ScheduleInspection)
	r.Post("/inspections/{eventID}/cancel", h.CancelInspection)
	r.Get("/inspections/{eventID}/history", h.InspectionHistory)
}

type scheduleRequestBody struct {
	RequestUID     string  `json:"requestUid"`
	Mode           string  `json:"mode"`
	Location       string  `json:"location"`
	Postcode       string  `json:"postcode"`
	InspectionType string  `json:"inspectionType"`
	PropertyType   string  `json:"propertyType"`
	RequestedDate  string  `json:"requestedDate"`
	WindowStart    string  `json:"windowStart"`
	WindowEnd      string  `json:"windowEnd"`
	DurationHours  float64 `json:"durationHours"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      int     `json:"bathrooms"`
	ManagerKey     string  `json:"managerKey"`
	Urgent         bool    `json:"urgent"`
	EmailThreadID  string  `json:"emailThreadId"`
	EmailMessageID string  `json:"emailMessageId"`
}

type inspectorSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type scheduleResponse struct {
	Event     persistence.InspectionEvent `json:"event"`
	Inspector *inspectorSummary           `json:"inspector,omitempty"`
	Score     *service.ScoreBreakdown     `json:"score,omitempty"`
	Replayed  bool                        `json:"replayed"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type historyItem struct {
	HistoryID   int64           `json:"historyId"`
	Action      string          `json:"action"`
	Actor       string          `json:"actor"`
	InspectorID *uuid.UUID      `json:"inspectorId,omitempty"`
	Detail      json.RawMessage `json:"detail"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ScheduleInspection handles POST /inspections. The mode selector in the body
// chooses between a fresh assignment, an emergency reschedule, and a detail
// update of an existing booking.
func (h *Handler) ScheduleInspection(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Invalid request body", "request body could not be read", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	if fields, ok := validateScheduleBody(raw); !ok {
		problemdetails.Write(w, h.buildProblem("Validation failed", "one or more fields are invalid", problemTypeValidation, http.StatusBadRequest, fields))
		return
	}

	var body scheduleRequestBody
	if err := json.Unmarshal(raw, &body); err != nil {
		problemdetails.Write(w, h.buildProblem("Invalid request body", "request body must be a JSON object", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	mode, err := service.ParseMode(body.Mode)
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	req, err := h.toInspectionRequest(r.Context(), body)
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", err.Error(), problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	booking, err := h.svc.Schedule(r.Context(), req, mode)
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, scheduleOperation))
		return
	}

	status := http.StatusCreated
	if booking.Replayed {
		status = http.StatusOK
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/inspections/%s", booking.Event.EventID))
	h.writeJSON(w, status, toScheduleResponse(booking))
}

// CancelInspection handles POST /inspections/{eventID}/cancel.
func (h *Handler) CancelInspection(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", "eventID must be a UUID", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// Reason is optional, a missing or empty body is fine.
		_ = json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body)
	}

	if err := h.svc.Cancel(r.Context(), eventID, strings.TrimSpace(body.Reason)); err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, cancelOperation))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// InspectionHistory handles GET /inspections/{eventID}/history.
func (h *Handler) InspectionHistory(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		problemdetails.Write(w, h.buildProblem("Validation failed", "eventID must be a UUID", problemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	entries, err := h.svc.History(r.Context(), eventID)
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, historyOperation))
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Detail
		if len(detail) == 0 {
			detail = []byte("{}")
		}
		items = append(items, historyItem{
			HistoryID:   entry.HistoryID,
			Action:      entry.Action,
			Actor:       entry.Actor,
			InspectorID: entry.InspectorID,
			Detail:      json.RawMessage(detail),
			CreatedAt:   entry.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

// validateScheduleBody runs the JSON Schema over the raw payload and flattens
// the leaf causes into per-field messages.
func validateScheduleBody(raw []byte) (map[string][]string, bool) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return map[string][]string{"body": {"request body must be valid JSON"}}, false
	}

	err := scheduleRequestSchema.Validate(value)
	if err == nil {
		return nil, true
	}

	fields := map[string][]string{}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		collectSchemaCauses(validationErr, fields)
	}
	if len(fields) == 0 {
		fields["body"] = []string{err.Error()}
	}
	return fields, false
}

func collectSchemaCauses(err *jsonschema.ValidationError, fields map[string][]string) {
	if len(err.Causes) == 0 {
		field := strings.TrimPrefix(err.InstanceLocation, "/")
		if field == "" {
			field = "body"
		}
		fields[field] = append(fields[field], err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaCauses(cause, fields)
	}
}

// toInspectionRequest converts the wire payload into the service input,
// resolving dates and time windows in the tenant's timezone.
func (h *Handler) toInspectionRequest(ctx context.Context, body scheduleRequestBody) (service.InspectionRequest, error) {
	space, ok := tenant.FromContext(ctx)
	if !ok {
		return service.InspectionRequest{}, errors.New("tenant space missing from context")
	}
	loc := space.Location()

	requestedDate, err := time.ParseInLocation("2006-01-02", body.RequestedDate, loc)
	if err != nil {
		return service.InspectionRequest{}, fmt.Errorf("requestedDate must be formatted as YYYY-MM-DD")
	}

	inspectionType, err := rosterservice.ParseInspectionType(body.InspectionType)
	if err != nil {
		return service.InspectionRequest{}, err
	}
	propertyType, err := rosterservice.ParsePropertyType(body.PropertyType)
	if err != nil {
		return service.InspectionRequest{}, err
	}

	req := service.InspectionRequest{
		RequestUID:     strings.TrimSpace(body.RequestUID),
		Location:       strings.TrimSpace(body.Location),
		Postcode:       strings.TrimSpace(body.Postcode),
		InspectionType: inspectionType,
		PropertyType:   propertyType,
		RequestedDate:  requestedDate,
		DurationHours:  body.DurationHours,
		Bedrooms:       body.Bedrooms,
		Bathrooms:      body.Bathrooms,
		ManagerKey:     strings.TrimSpace(body.ManagerKey),
		Urgent:         body.Urgent,
	}

	if body.EmailThreadID != "" {
		threadID := body.EmailThreadID
		req.EmailThreadID = &threadID
	}
	if body.EmailMessageID != "" {
		messageID := body.EmailMessageID
		req.EmailMessageID = &messageID
	}

	if (body.WindowStart == "") != (body.WindowEnd == "") {
		return service.InspectionRequest{}, errors.New("windowStart and windowEnd must be provided together")
	}
	if body.WindowStart != "" {
		start, err := timeOnDate(requestedDate, body.WindowStart, loc)
		if err != nil {
			return service.InspectionRequest{}, fmt.Errorf("windowStart: %w", err)
		}
		end, err := timeOnDate(requestedDate, body.WindowEnd, loc)
		if err != nil {
			return service.InspectionRequest{}, fmt.Errorf("windowEnd: %w", err)
		}
		if !end.After(start) {
			return service.InspectionRequest{}, errors.New("windowEnd must be after windowStart")
		}
		req.WindowStart = &start
		req.WindowEnd = &end
	}

	return req, nil
}

func timeOnDate(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, errors.New("must be formatted as HH:MM")
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

func toScheduleResponse(booking service.Booking) scheduleResponse {
	resp := scheduleResponse{
		Event:    booking.Event,
		Score:    booking.Score,
		Replayed: booking.Replayed,
	}
	if booking.Inspector.ID != uuid.Nil {
		resp.Inspector = &inspectorSummary{
			ID:    booking.Inspector.ID,
			Name:  booking.Inspector.Name,
			Email: booking.Inspector.Email,
		}
	}
	return resp
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problemdetails.ProblemDetails {
	problem := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", problem.Status),
	}

	switch {
	case problem.Status >= http.StatusInternalServerError:
		logger.Error("scheduling operation failed", append(fieldsForLog, zap.Error(err))...)
	case problem.Status == http.StatusNotFound:
		logger.Info("scheduling resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("scheduling request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problem
}

func (h *Handler) classifyError(err error) problemdetails.ProblemDetails {
	if scheduleErr, ok := service.AsScheduleError(err); ok {
		problem := h.scheduleProblem(scheduleErr)
		problem.Reason = string(scheduleErr.Code)
		if scheduleErr.SuggestedDate != nil {
			suggested := scheduleErr.SuggestedDate.Format("2006-01-02")
			problem.SuggestedDate = &suggested
		}
		return problem
	}

	switch {
	case errors.Is(err, persistence.ErrEventNotFound):
		return h.buildProblem("Resource not found", "inspection event not found", problemTypeNotFound, http.StatusNotFound, nil)
	case errors.Is(err, persistence.ErrEventConflict):
		return h.buildProblem("Conflict", "inspection event conflict", problemTypeConflict, http.StatusConflict, nil)
	default:
		return h.buildProblem("Internal server error", "an unexpected error occurred", problemTypeInternal, http.StatusInternalServerError, nil)
	}
}

func (h *Handler) scheduleProblem(scheduleErr *service.ScheduleError) problemdetails.ProblemDetails {
	switch scheduleErr.Code {
	case service.ReasonInvalidBusinessDay:
		return h.buildProblem("Requested date is not a business day", scheduleErr.Message, problemTypeBusinessDay, http.StatusBadRequest, nil)
	case service.ReasonNoQualifiedInspector:
		return h.buildProblem("No qualified inspector", scheduleErr.Message, problemTypeNoCapacity, http.StatusUnprocessableEntity, nil)
	case service.ReasonNoAvailableSlot:
		return h.buildProblem("No available slot", scheduleErr.Message, problemTypeNoCapacity, http.StatusUnprocessableEntity, nil)
	case service.ReasonSlotConflict:
		return h.buildProblem("Slot conflict", scheduleErr.Message, problemTypeConflict, http.StatusConflict, nil)
	case service.ReasonIntegrationUnavailable:
		return h.buildProblem("Calendar integration unavailable", scheduleErr.Message, problemTypeIntegration, http.StatusServiceUnavailable, nil)
	case service.ReasonInvariantViolation:
		return h.buildProblem("Conflict", scheduleErr.Message, problemTypeConflict, http.StatusConflict, nil)
	default:
		return h.buildProblem("Internal server error", scheduleErr.Message, problemTypeInternal, http.StatusInternalServerError, nil)
	}
}

func (h *Handler) buildProblem(title, detail, problemType string, status int, fieldErrors map[string][]string) problemdetails.ProblemDetails {
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
