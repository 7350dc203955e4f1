// sim/metrics.go
//
// Run counters. Everything here is observational: handlers bump counters
// but nothing reads them back into the dynamics.

package sim

// Age class boundaries for notification tallies, upper bounds in years.
// The last class is open-ended.
var ageClassBound = []float64{15, 45, 65}

const numAgeClasses = 4

func ageClass(age float64) int {
	for i, b := range ageClassBound {
		if age < b {
			return i
		}
	}
	return numAgeClasses - 1
}

// Metrics accumulates the counts a run reports.
type Metrics struct {
	Births       int
	Immigrations int
	Deaths       int
	Emigrations  int
	Vaccinations int

	Infections    int
	Cases         int
	Notifications int
	Mutations     int

	// Notification tallies by age class, sex, and region of birth, and per
	// calendar year across all strata.
	NotesByClass [numAgeClasses][2][2]int
	NotesByYear  map[int]int

	deathAgeSum float64

	dispatched [PendingReport + 1]uint64
}

// NewMetrics returns a zeroed accumulator.
func NewMetrics() *Metrics {
	return &Metrics{NotesByYear: make(map[int]int)}
}

// Dispatched counts one handled event of the given kind.
func (m *Metrics) Dispatched(kind PendingEvent) {
	if int(kind) < len(m.dispatched) {
		m.dispatched[kind]++
	}
}

// DispatchCount returns how many events of one kind have been handled.
func (m *Metrics) DispatchCount(kind PendingEvent) uint64 {
	if int(kind) < len(m.dispatched) {
		return m.dispatched[kind]
	}
	return 0
}

// RecordDeath counts one death at the given age.
func (m *Metrics) RecordDeath(age float64) {
	m.Deaths++
	m.deathAgeSum += age
}

// MeanAgeAtDeath returns the average age at death, or zero before any.
func (m *Metrics) MeanAgeAtDeath() float64 {
	if m.Deaths == 0 {
		return 0
	}
	return m.deathAgeSum / float64(m.Deaths)
}

// RecordNotification tallies one reported case.
func (m *Metrics) RecordNotification(age float64, sex Sex, region Region, year int) {
	m.Notifications++
	m.NotesByClass[ageClass(age)][sex][region]++
	m.NotesByYear[year]++
}
