// sim/timeutil.go
//
// Small time helpers used throughout the dispatch loop and its handlers:
// earliest-of-N selection over an individual's saved event times, running
// statistics on dispatch step sizes, and human-readable durations for the
// final report.

package sim

import (
	"fmt"
	"math"
)

// Earliest returns the entry of subset whose time is smallest. Subset holds
// indices into times and ends with a negative sentinel; it is small (at most
// seven candidates, one per pending-event kind), so a linear scan wins.
func Earliest(times []float64, subset []int) int {
	best := math.Inf(1)
	m := 0
	for i := 0; subset[i] >= 0; i++ {
		if w := times[subset[i]]; w < best {
			best = w
			m = i
		}
	}
	return subset[m]
}

// StepStats accumulates the sizes of successive dispatch steps. The system
// can take very small steps or very large ones depending on event density;
// the run summary reports their mean, spread, and extremes. Observational
// only; never feeds back into scheduling.
type StepStats struct {
	n     float64
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// NewStepStats returns an accumulator ready for the first step.
func NewStepStats() *StepStats {
	return &StepStats{min: math.Inf(1), max: math.Inf(-1)}
}

// Record accumulates one step from time t to the next event time tn.
func (s *StepStats) Record(t, tn float64) {
	dt := tn - t
	s.sum += dt
	s.sumSq += dt * dt
	if dt < s.min {
		s.min = dt
	}
	if dt > s.max {
		s.max = dt
	}
	s.n++
}

// Count returns the number of steps recorded.
func (s *StepStats) Count() float64 { return s.n }

// Min returns the smallest step recorded.
func (s *StepStats) Min() float64 { return s.min }

// Max returns the largest step recorded.
func (s *StepStats) Max() float64 { return s.max }

// Mean returns the average step size, or zero before any step.
func (s *StepStats) Mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / s.n
}

// RootVariance returns the root-mean-square deviation of the step sizes.
// The division is by n rather than n-1, hence not called standard deviation.
func (s *StepStats) RootVariance() float64 {
	if s.n == 0 {
		return 0
	}
	mean := s.sum / s.n
	v := s.sumSq/s.n - mean*mean
	if v < 0 { // rounding can push a zero variance slightly negative
		return 0
	}
	return math.Sqrt(v)
}

// Successive scale factors from each duration unit to the next smaller one,
// starting at years. The chain follows the original reporting convention,
// jumping from nanoseconds straight to femtoseconds.
var (
	durationScale = []float64{365.25, 24, 60, 60, 1000, 1000, 1000, 1000}
	durationName  = []string{"year", "day", "hour", "minute", "second",
		"millisecond", "microsecond", "nanosecond", "femtosecond"}
)

// FormatDuration renders a duration given in fractional years using the
// coarsest unit in which the value is at least one, e.g. "2.5 days" or
// "12 minutes". Zero formats as "0 seconds".
func FormatDuration(years float64) string {
	v := years
	i := 0
	if v == 0 {
		i = 4 // seconds
	} else {
		for v < 1 && i < len(durationScale) {
			v *= durationScale[i]
			i++
		}
	}
	plural := "s"
	if v == 1 {
		plural = ""
	}
	return fmt.Sprintf("%.2g %s%s", v, durationName[i], plural)
}
