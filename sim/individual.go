// sim/individual.go
//
// Individual records and the population arena. Each individual is a slot in
// one linear array; the slot index doubles as the individual's event ID in
// the scheduler. Non-UK-born individuals grow upward from 1, UK-born from
// maxImmigrants+1, and two reserved pseudo-IDs above the population drive
// the birth and immigration pulse generators. When an individual leaves the
// population, the highest-numbered individual of the same region takes over
// the freed slot so the ID space stays gap-free.

package sim

import (
	"errors"
	"fmt"
)

// Sex of an individual. The male fraction of newborns is a model parameter.
type Sex uint8

const (
	Male Sex = iota
	Female
)

// Region of birth.
type Region uint8

const (
	RegionNonUK Region = iota
	RegionUK
)

// SSA/HIV classification for non-UK-born individuals, used by the
// Sub-Saharan-Africa variant of the model.
type SSAStatus uint8

const (
	SSANone   SSAStatus = iota // UK-born or other non-UK born
	SSAHIVNeg                  // SSA-born, HIV negative
	SSAHIVPos                  // SSA-born, HIV positive
)

// State is an individual's disease compartment.
type State uint8

const (
	StateUnused State = iota // record not in use (never counted)
	StateUninfected
	StateVaccinated
	StateRecentInfection
	StateRemoteInfection
	StateReinfection
	StateDiseasePrimary // pulmonary disease states
	StateDiseaseReactivation
	StateDiseaseReinfection
	StateDiseasePrimaryNP // non-pulmonary counterparts
	StateDiseaseReactivationNP
	StateDiseaseReinfectionNP
	numStates
)

var stateNames = [numStates]string{
	StateUnused:                "unused",
	StateUninfected:            "uninfected",
	StateVaccinated:            "vaccinated",
	StateRecentInfection:       "recent-infection",
	StateRemoteInfection:       "remote-infection",
	StateReinfection:           "reinfection",
	StateDiseasePrimary:        "primary-disease",
	StateDiseaseReactivation:   "reactivation-disease",
	StateDiseaseReinfection:    "reinfection-disease",
	StateDiseasePrimaryNP:      "primary-disease-np",
	StateDiseaseReactivationNP: "reactivation-disease-np",
	StateDiseaseReinfectionNP:  "reinfection-disease-np",
}

func (q State) String() string {
	if q < numStates {
		return stateNames[q]
	}
	return "invalid"
}

// Infected reports whether the state carries an infection (latent or active).
func (q State) Infected() bool {
	return q >= StateRecentInfection && q <= StateDiseaseReinfectionNP
}

// Diseased reports whether the state is active disease.
func (q State) Diseased() bool { return q >= StateDiseasePrimary }

// Pulmonary reports whether the state is pulmonary active disease.
func (q State) Pulmonary() bool {
	return q >= StateDiseasePrimary && q <= StateDiseaseReinfection
}

// Individual is the complete state of one person. Saved times hold every
// candidate future event; only the earliest is ever in the scheduler, and
// Pending says which one.
type Individual struct {
	T       [numTimes]float64
	Pending PendingEvent
	State   State
	Sex     Sex
	Region  Region
	SSA     SSAStatus
}

var errPopulationFull = errors.New("population arena full")

// Population owns the arena of individual records and the per-state
// counters. Counters are maintained on every transition so compartment
// sizes never require scanning the arena.
type Population struct {
	A []Individual // indexed by individual ID; slot 0 reserved

	maxIndiv int // highest real individual ID
	maxImm   int // highest ID reserved for non-UK-born individuals

	nextImm int // next free non-UK-born ID
	nextUKB int // next free UK-born ID

	counts [numStates]int
}

// NewPopulation allocates an arena for maxIndiv individuals of which the
// first maxImm slots belong to non-UK-born individuals. Two pseudo-IDs
// beyond maxIndiv are reserved for the pulse generators.
func NewPopulation(maxIndiv, maxImm int) *Population {
	if maxImm >= maxIndiv {
		panic(fmt.Sprintf("sim: immigrant arena %d must be smaller than population %d",
			maxImm, maxIndiv))
	}
	return &Population{
		A:        make([]Individual, maxIndiv+3),
		maxIndiv: maxIndiv,
		maxImm:   maxImm,
		nextImm:  1,
		nextUKB:  maxImm + 1,
	}
}

// BirthID returns the pseudo-ID that schedules the birth generator.
func (p *Population) BirthID() int { return p.maxIndiv + 1 }

// ImmigrationID returns the pseudo-ID that schedules the immigration
// generator.
func (p *Population) ImmigrationID() int { return p.maxIndiv + 2 }

// MaxID returns the highest event ID the scheduler must accommodate.
func (p *Population) MaxID() int { return p.maxIndiv + 2 }

// Size returns the number of live individuals.
func (p *Population) Size() int {
	return (p.nextImm - 1) + (p.nextUKB - p.maxImm - 1)
}

// Count returns the number of individuals in one state.
func (p *Population) Count(q State) int { return p.counts[q] }

// Infected returns the number of individuals carrying infection.
func (p *Population) Infected() int {
	n := 0
	for q := StateRecentInfection; q < numStates; q++ {
		n += p.counts[q]
	}
	return n
}

// AllocUK claims the next UK-born slot.
func (p *Population) AllocUK() (int, error) {
	if p.nextUKB > p.maxIndiv {
		return 0, fmt.Errorf("alloc UK-born id %d: %w", p.nextUKB, errPopulationFull)
	}
	n := p.nextUKB
	p.nextUKB++
	return n, nil
}

// AllocImm claims the next non-UK-born slot.
func (p *Population) AllocImm() (int, error) {
	if p.nextImm > p.maxImm {
		return 0, fmt.Errorf("alloc non-UK-born id %d: %w", p.nextImm, errPopulationFull)
	}
	n := p.nextImm
	p.nextImm++
	return n, nil
}

// SetState moves an individual between compartments, maintaining counters.
// Entering Uninfected does not decrement the previous state: that only
// happens at birth or immigration, when the record was unused.
func (p *Population) SetState(n int, q State) error {
	old := p.A[n].State
	if q > StateUninfected {
		p.counts[old]--
		if p.counts[old] < 0 {
			return fmt.Errorf("state count for %v below zero (id %d entering %v)", old, n, q)
		}
	}
	p.A[n].State = q
	p.counts[q]++
	return nil
}

// Remove frees an individual's slot after death or emigration, keeping the
// arena compact: the highest-numbered individual of the same region is
// copied into the freed slot and its pending event renumbered to follow.
func (p *Population) Remove(n int, sched *EventScheduler) error {
	q := p.A[n].State
	p.counts[q]--
	if p.counts[q] < 0 {
		return fmt.Errorf("state count for %v below zero removing id %d", q, n)
	}

	var last int
	if p.A[n].Region == RegionUK {
		p.nextUKB--
		last = p.nextUKB
	} else {
		p.nextImm--
		last = p.nextImm
	}

	if last != n {
		p.A[n] = p.A[last]
		if err := sched.Renumber(n, last); err != nil {
			return err
		}
	}
	p.A[last] = Individual{}
	return nil
}
