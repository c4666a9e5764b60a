package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGeoScoreLinearDecay(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 100, geoScore(0, 25, 5), 1e-9)
	require.InDelta(t, 52.5, geoScore(12.5, 25, 5), 1e-9)
	require.InDelta(t, 5, geoScore(25, 25, 5), 1e-9)
	require.InDelta(t, 5, geoScore(40, 25, 5), 1e-9)
}

func TestGeoScoreMonotonicity(t *testing.T) {
	t.Parallel()

	prev := 101.0
	for d := 0.0; d <= 30; d += 0.5 {
		score := geoScore(d, 25, 5)
		require.LessOrEqual(t, score, prev, "distance %.1f", d)
		require.GreaterOrEqual(t, score, 5.0)
		require.LessOrEqual(t, score, 100.0)
		prev = score
	}
}

func TestWorkloadScoreClamps(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 100, workloadScore(0, 8), 1e-9)
	require.InDelta(t, 62.5, workloadScore(4, 8), 1e-9)
	require.InDelta(t, 25, workloadScore(8, 8), 1e-9)
	// Overbooked days still floor at 25, never 0.
	require.InDelta(t, 25, workloadScore(12, 8), 1e-9)
	// Zero capacity cannot divide; treat as fully booked.
	require.InDelta(t, 25, workloadScore(3, 0), 1e-9)
}

func TestWorkloadScoreMonotonicity(t *testing.T) {
	t.Parallel()

	prev := 101.0
	for booked := 0.0; booked <= 10; booked += 0.5 {
		score := workloadScore(booked, 8)
		require.LessOrEqual(t, score, prev, "booked %.1f", booked)
		prev = score
	}
}

func TestLocalityScoreAnchors(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 0, localityScore(0, 3), 1e-9)
	require.InDelta(t, 100.0/3, localityScore(1, 3), 1e-9)
	require.InDelta(t, 200.0/3, localityScore(2, 3), 1e-9)
	require.InDelta(t, 100, localityScore(3, 3), 1e-9)
	require.InDelta(t, 100, localityScore(7, 3), 1e-9)
}

func TestCombineScoreWeightedSum(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	breakdown := ScoreBreakdown{Geo: 80, Workload: 60, Locality: 40, PMBonus: 20}

	want := (80*cfg.GeoWeight+60*cfg.WorkloadWeight+40*cfg.LocalityWeight)/100 + 20
	require.InDelta(t, want, combineScore(breakdown, cfg), 1e-9)
}

func TestRankTieBreakDeterminism(t *testing.T) {
	t.Parallel()

	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	idC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	for i := 0; i < 10; i++ {
		breakdowns := []ScoreBreakdown{
			{InspectorID: idC, Combined: 70, Workload: 50},
			{InspectorID: idB, Combined: 70, Workload: 80},
			{InspectorID: idA, Combined: 70, Workload: 50},
		}
		rankBreakdowns(breakdowns)

		// Higher workload wins the tie, then id ascending.
		require.Equal(t, idB, breakdowns[0].InspectorID)
		require.Equal(t, idA, breakdowns[1].InspectorID)
		require.Equal(t, idC, breakdowns[2].InspectorID)
	}
}
