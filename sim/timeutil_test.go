package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarliest_PicksMinimumOfSubset(t *testing.T) {
	// GIVEN saved times where the smallest is outside the subset
	times := []float64{9.0, 3.5, 1.0, 7.25, 0.1}

	// WHEN the earliest of slots {0, 1, 3} is requested
	got := Earliest(times, []int{0, 1, 3, -1})

	// THEN slot 1 wins; the smaller times at 2 and 4 are not candidates
	assert.Equal(t, 1, got)
}

func TestEarliest_SingleCandidate(t *testing.T) {
	times := []float64{4.0, 2.0}
	assert.Equal(t, 0, Earliest(times, []int{0, -1}))
}

func TestEarliest_TieGoesToFirstListed(t *testing.T) {
	// GIVEN two slots holding the same time
	times := []float64{5.0, 5.0, 6.0}

	// THEN the slot listed first in the subset wins
	assert.Equal(t, 1, Earliest(times, []int{1, 0, 2, -1}))
}

func TestStepStats_AccumulatesKnownSteps(t *testing.T) {
	// GIVEN steps of sizes 1, 3, and 2
	s := NewStepStats()
	s.Record(0, 1)
	s.Record(1, 4)
	s.Record(4, 6)

	// THEN the summary statistics match hand computation
	assert.Equal(t, 3.0, s.Count())
	assert.Equal(t, 1.0, s.Min())
	assert.Equal(t, 3.0, s.Max())
	assert.InDelta(t, 2.0, s.Mean(), 1e-12)
	// variance = mean of squares minus square of mean = 14/3 - 4
	assert.InDelta(t, math.Sqrt(14.0/3.0-4.0), s.RootVariance(), 1e-12)
}

func TestStepStats_EmptyIsSafe(t *testing.T) {
	s := NewStepStats()
	assert.Equal(t, 0.0, s.Count())
	assert.Equal(t, 0.0, s.Mean())
	assert.Equal(t, 0.0, s.RootVariance())
}

func TestFormatDuration_PicksCoarsestUnit(t *testing.T) {
	cases := []struct {
		years float64
		want  string
	}{
		{0, "0 seconds"},
		{1, "1 year"},
		{3, "3 years"},
		{2.5 / 365.25, "2.5 days"},
		{3.0 / (365.25 * 24), "3 hours"},
		{12.0 / (365.25 * 24 * 60), "12 minutes"},
		{2.0 / (365.25 * 24 * 60 * 60), "2 seconds"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.years), "years=%g", c.years)
	}
}
