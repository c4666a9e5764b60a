package service

import (
	"sort"

	"github.com/google/uuid"
)

// geoScore maps distance to points with linear decay: 0 miles scores 100,
// anything at or beyond maxRadius scores the floor.
func geoScore(distanceMiles, maxRadius, floor float64) float64 {
	if distanceMiles <= 0 {
		return 100
	}
	if maxRadius <= 0 || distanceMiles >= maxRadius {
		return floor
	}
	score := 100 - (100-floor)*(distanceMiles/maxRadius)
	return clamp(score, floor, 100)
}

// workloadScore rewards lighter days: 100 - 75 * utilization, clamped to
// [25, 100] so a fully booked inspector still compares meaningfully on
// overflow days.
func workloadScore(bookedHours, capacityHours float64) float64 {
	if capacityHours <= 0 {
		return 25
	}
	score := 100 - 75*(bookedHours/capacityHours)
	return clamp(score, 25, 100)
}

// localityScore rewards clustering: 0 same-postcode bookings scores 0, target
// or more scores 100, linear in between.
func localityScore(count, target int) float64 {
	if count <= 0 {
		return 0
	}
	if target < 1 {
		target = 1
	}
	if count >= target {
		return 100
	}
	return float64(count) / float64(target) * 100
}

// combineScore folds the weighted sub-scores and the PM bonus into the final
// priority score. Weights sum to 100, validated at startup.
func combineScore(breakdown ScoreBreakdown, cfg Config) float64 {
	weighted := (breakdown.Geo*cfg.GeoWeight + breakdown.Workload*cfg.WorkloadWeight + breakdown.Locality*cfg.LocalityWeight) / 100
	return weighted + breakdown.PMBonus
}

// rankBreakdowns sorts candidates best-first: combined score descending, then
// workload score descending (prefer the less loaded inspector), then inspector
// id ascending for a stable, testable order.
func rankBreakdowns(breakdowns []ScoreBreakdown) {
	sort.SliceStable(breakdowns, func(i, j int) bool {
		if breakdowns[i].Combined != breakdowns[j].Combined {
			return breakdowns[i].Combined > breakdowns[j].Combined
		}
		if breakdowns[i].Workload != breakdowns[j].Workload {
			return breakdowns[i].Workload > breakdowns[j].Workload
		}
		return breakdowns[i].InspectorID.String() < breakdowns[j].InspectorID.String()
	})
}

func containsID(ids []uuid.UUID, want uuid.UUID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
