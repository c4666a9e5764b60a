package service

import (
	"fmt"
	"math"
	"time"
)

// Config carries every tunable the scheduler honors. It is passed immutable
// into New and never read from ambient state, so tests can vary it freely.
type Config struct {
	// Scoring weights, must sum to 100.
	GeoWeight      float64
	WorkloadWeight float64
	LocalityWeight float64

	// PMBonus is added to the combined score when the inspector appears in the
	// property manager's preference list.
	PMBonus float64

	// GeoFloor is the minimum geographic score at or beyond MaxRadiusMiles.
	GeoFloor float64
	// MaxRadiusMiles scales the linear decay of the geographic score and acts
	// as the fallback exclusion radius for inspectors without their own.
	MaxRadiusMiles float64

	// Standard working window, hours in the tenant's timezone.
	WorkDayStartHour int
	WorkDayEndHour   int

	// Wider window used only for urgent requests when the standard window has
	// no fit.
	PriorityDayStartHour int
	PriorityDayEndHour   int

	// SlotIntervalMinutes spaces candidate start times.
	SlotIntervalMinutes int

	// LookaheadDays bounds the forward day-by-day slot search.
	LookaheadDays int

	// LocalityTarget is the same-day booking count that maps to a full
	// locality score.
	LocalityTarget int

	// MaxConcurrent bounds the number of scheduling runs in flight.
	MaxConcurrent int

	// CommitLockTTL is how long the per (inspector, date) commit lock is held.
	CommitLockTTL time.Duration

	// CallTimeout caps each external calendar or database call.
	CallTimeout time.Duration
}

// DefaultConfig returns the documented production defaults.
func DefaultConfig() Config {
	return Config{
		GeoWeight:            40,
		WorkloadWeight:       35,
		LocalityWeight:       25,
		PMBonus:              20,
		GeoFloor:             5,
		MaxRadiusMiles:       25,
		WorkDayStartHour:     9,
		WorkDayEndHour:       17,
		PriorityDayStartHour: 8,
		PriorityDayEndHour:   18,
		SlotIntervalMinutes:  30,
		LookaheadDays:        7,
		LocalityTarget:       3,
		MaxConcurrent:        16,
		CommitLockTTL:        15 * time.Second,
		CallTimeout:          5 * time.Second,
	}
}

// Validate rejects configurations the scheduler cannot honor. Called once at
// construction so a bad deployment fails at startup, not mid-booking.
func (c Config) Validate() error {
	if sum := c.GeoWeight + c.WorkloadWeight + c.LocalityWeight; math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 100, got %.4f", sum)
	}
	if c.GeoWeight < 0 || c.WorkloadWeight < 0 || c.LocalityWeight < 0 {
		return fmt.Errorf("scoring weights cannot be negative")
	}
	if c.GeoFloor < 0 || c.GeoFloor > 100 {
		return fmt.Errorf("geo floor must be within [0, 100], got %.2f", c.GeoFloor)
	}
	if c.MaxRadiusMiles <= 0 {
		return fmt.Errorf("max radius must be positive, got %.2f", c.MaxRadiusMiles)
	}
	if c.WorkDayStartHour < 0 || c.WorkDayEndHour > 24 || c.WorkDayStartHour >= c.WorkDayEndHour {
		return fmt.Errorf("invalid work window %d-%d", c.WorkDayStartHour, c.WorkDayEndHour)
	}
	if c.PriorityDayStartHour < 0 || c.PriorityDayEndHour > 24 || c.PriorityDayStartHour >= c.PriorityDayEndHour {
		return fmt.Errorf("invalid priority window %d-%d", c.PriorityDayStartHour, c.PriorityDayEndHour)
	}
	if c.PriorityDayStartHour > c.WorkDayStartHour || c.PriorityDayEndHour < c.WorkDayEndHour {
		return fmt.Errorf("priority window must contain the work window")
	}
	if c.SlotIntervalMinutes <= 0 {
		return fmt.Errorf("slot interval must be positive, got %d", c.SlotIntervalMinutes)
	}
	if c.LookaheadDays < 1 {
		return fmt.Errorf("lookahead days must be at least 1, got %d", c.LookaheadDays)
	}
	if c.LocalityTarget < 1 {
		return fmt.Errorf("locality target must be at least 1, got %d", c.LocalityTarget)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	return nil
}
