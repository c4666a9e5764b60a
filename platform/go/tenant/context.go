package tenant

import (
	"context"
	"time"
)

// Space captures the resolved tenant account metadata for a request. It is
// attached to the context by middleware once the account has been resolved
// from credentials/claims.
type Space struct {
	AccountID int64
	Name      string
	// Region is the holiday-calendar region code, e.g. "AU-WA".
	Region string
	// Timezone is the IANA zone bookings are scheduled in, e.g. "Australia/Perth".
	Timezone string
}

// Location resolves the tenant timezone, falling back to UTC when unset or invalid.
func (s Space) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ctxKey string

const spaceKey ctxKey = "SCHEDULER_TENANT_SPACE"

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}
