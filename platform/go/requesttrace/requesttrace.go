// Package requesttrace carries request-scoped actor metadata so every booking
// mutation can be attributed in the audit trail.
package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/zenGate-Global/inspection-scheduler/platform/go/auth"
)

type contextKey string

const ctxAuditInfo contextKey = "SCHEDULER_REQUEST_TRACE"

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	// ActorKindSystem marks automated callers, e.g. the email ingestion pipeline.
	ActorKindSystem ActorKind = "system"
)

// AuditInfo captures request-scoped metadata recorded alongside booking history.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrSystem returns the AuditInfo stored on the context, or a system
// record when absent (background reconciliation, ingestion callbacks).
func FromContextOrSystem(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return System("")
}

// FromCredentials builds an AuditInfo from authenticated user credentials.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.Id == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &creds.Id,
		RequestID: requestID,
	}, nil
}

// Actor returns the string recorded in booking history for this audit record.
func (a AuditInfo) Actor() string {
	if a.ActorKind == ActorKindUser && a.UserID != nil {
		return *a.UserID
	}
	return string(a.ActorKind)
}

// System builds an AuditInfo for background/system operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}

// Anonymous builds an AuditInfo for unauthenticated requests.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}
