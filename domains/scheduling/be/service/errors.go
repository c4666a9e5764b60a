package service

import (
	"errors"
	"fmt"
	"time"
)

// ReasonCode is the machine-readable failure classification carried by every
// terminal scheduling error.
type ReasonCode string

const (
	ReasonInvalidBusinessDay     ReasonCode = "invalid_business_day"
	ReasonNoQualifiedInspector   ReasonCode = "no_qualified_inspector"
	ReasonNoAvailableSlot        ReasonCode = "no_available_slot"
	ReasonSlotConflict           ReasonCode = "slot_conflict"
	ReasonIntegrationUnavailable ReasonCode = "integration_unavailable"
	ReasonInvariantViolation     ReasonCode = "invariant_violation"
)

// ScheduleError is the typed failure returned by the orchestrator. It pairs
// the reason code with a human explanation and, where applicable, a suggested
// remediation date.
type ScheduleError struct {
	Code          ReasonCode
	Message       string
	SuggestedDate *time.Time
	cause         error
}

func (e *ScheduleError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScheduleError) Unwrap() error {
	return e.cause
}

func newScheduleError(code ReasonCode, message string) *ScheduleError {
	return &ScheduleError{Code: code, Message: message}
}

func wrapScheduleError(code ReasonCode, message string, cause error) *ScheduleError {
	return &ScheduleError{Code: code, Message: message, cause: cause}
}

// AsScheduleError extracts a *ScheduleError from an error chain.
func AsScheduleError(err error) (*ScheduleError, bool) {
	var scheduleErr *ScheduleError
	if errors.As(err, &scheduleErr) {
		return scheduleErr, true
	}
	return nil, false
}
