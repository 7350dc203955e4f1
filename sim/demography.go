// sim/demography.go
//
// Demographic event handlers: the birth and immigration pulse generators,
// entry of new individuals into the population, routine vaccination, and
// removal on death or emigration. Removal compacts the arena, so the
// individual behind an ID can change between events.

package sim

import "fmt"

// Saved-time subsets handlers pass to Earliest, terminated by -1.
// Which subset applies depends on the compartment the individual is in.
var (
	demographySlots = []int{timeDeath, timeEmigrate, -1}
	latentSlots     = []int{timeExit, timeDeath, timeDisease, timeMutate, timeEmigrate, -1}
	remoteSlots     = []int{timeDeath, timeDisease, timeMutate, timeEmigrate, -1}
	diseaseSlots    = []int{timeExit, timeDeath, timeTransmit, timeMutate, timeEmigrate, timeReport, -1}
)

// slotsFor returns the saved-time subset the individual's compartment uses.
func slotsFor(q State) []int {
	switch {
	case q.Diseased():
		return diseaseSlots
	case q == StateRecentInfection || q == StateReinfection:
		return latentSlots
	case q == StateRemoteInfection:
		return remoteSlots
	}
	return demographySlots
}

// birthPulse adds one newborn and reschedules the generator one exponential
// inter-birth interval ahead.
func (s *Simulator) birthPulse() error {
	n, err := s.pop.AllocUK()
	if err != nil {
		return err
	}
	if err := s.newborn(n, s.clock); err != nil {
		return err
	}
	s.met.Births++
	return s.sched.Schedule(s.pop.BirthID(),
		s.clock+s.rng.Expon(s.p.Demography.BirthsPerYear))
}

// immigrationPulse adds one immigrant and reschedules the generator.
func (s *Simulator) immigrationPulse() error {
	d := &s.p.Demography
	var (
		n      int
		err    error
		region Region
	)
	// A share of arrivals are returning UK-born individuals.
	if s.rng.Float64() < d.ImmNonUKFraction {
		n, err = s.pop.AllocImm()
		region = RegionNonUK
	} else {
		n, err = s.pop.AllocUK()
		region = RegionUK
	}
	if err != nil {
		return err
	}
	if err := s.admit(n, region, s.clock); err != nil {
		return err
	}
	s.met.Immigrations++
	return s.sched.Schedule(s.pop.ImmigrationID(),
		s.clock+s.rng.Expon(d.ImmigrantsPerYear))
}

// newborn fills slot n with a child born at time b and schedules its first
// event. When the birth falls inside the routine vaccination programme and
// the coverage draw succeeds, the vaccination visit is queued directly if it
// precedes death and emigration.
func (s *Simulator) newborn(n int, b float64) error {
	d := &s.p.Demography
	v := &s.p.Vaccination

	a := &s.pop.A[n]
	*a = Individual{Region: RegionUK}
	if s.rng.Float64() >= d.MaleBirthFraction {
		a.Sex = Female
	}
	for i := range a.T {
		a.T[i] = s.neverTime()
	}
	a.T[timeBirth] = b

	life, err := s.rng.SampleFrom(d.LifeAges, d.LifeProbs, 0)
	if err != nil {
		return fmt.Errorf("lifespan draw for id %d: %w", n, err)
	}
	a.T[timeDeath] = b + life
	a.T[timeEmigrate] = b + s.rng.Expon(d.EmigrationRateUK)

	if err := s.pop.SetState(n, StateUninfected); err != nil {
		return err
	}

	if b+v.Age < v.EndYear && s.rng.Float64() < v.Coverage {
		wv := b + v.Age + s.rng.Float64()
		if wv < a.T[timeDeath] && wv < a.T[timeEmigrate] {
			a.Pending = PendingVaccination
			return s.sched.Schedule(n, wv)
		}
	}
	return s.scheduleNext(n, demographySlots)
}

// admit fills slot n with an individual entering the population at time t,
// either at setup or through immigration. Age, lifespan conditional on that
// age, and initial infection status are all drawn here.
func (s *Simulator) admit(n int, region Region, t float64) error {
	d := &s.p.Demography
	dis := &s.p.Disease

	a := &s.pop.A[n]
	*a = Individual{Region: region}
	if s.rng.Float64() >= d.MaleBirthFraction {
		a.Sex = Female
	}

	var age, emigRate, prevalence float64
	if region == RegionUK {
		age = s.rng.Uniform(0, 80)
		emigRate = d.EmigrationRateUK
		prevalence = dis.InitInfectedUK
	} else {
		age = s.rng.Normal(d.ImmAgeMean, d.ImmAgeDev)
		if age < 0 {
			age = 0
		} else if age > 80 {
			age = 80
		}
		emigRate = d.EmigrationRateImm
		prevalence = dis.InitInfectedImm
		if s.rng.Float64() < d.ImmSSAFraction {
			a.SSA = SSAHIVNeg
			if s.rng.Float64() < d.SSAHIVPrevalence {
				a.SSA = SSAHIVPos
			}
		}
	}

	for i := range a.T {
		a.T[i] = s.neverTime()
	}
	a.T[timeBirth] = t - age

	life, err := s.rng.SampleFrom(d.LifeAges, d.LifeProbs, age)
	if err != nil {
		return fmt.Errorf("lifespan draw for id %d at age %.1f: %w", n, age, err)
	}
	a.T[timeDeath] = t + life
	a.T[timeEmigrate] = t + s.rng.Expon(emigRate)

	if err := s.pop.SetState(n, StateUninfected); err != nil {
		return err
	}

	if s.rng.Float64() < prevalence {
		// Most prevalent infection is old. A small share arrives recently
		// infected or with active disease.
		switch r := s.rng.Float64(); {
		case r < 0.10:
			return s.infect(n, s.rng.Float64()*dis.LatentYears)
		case r < 0.95:
			return s.seedRemote(n)
		default:
			if err := s.pop.SetState(n, StateRecentInfection); err != nil {
				return err
			}
			return s.progress(n)
		}
	}

	// Children entering below the programme age are still due their visit.
	v := &s.p.Vaccination
	if age < v.Age && a.T[timeBirth]+v.Age < v.EndYear && s.rng.Float64() < v.Coverage {
		wv := a.T[timeBirth] + v.Age + s.rng.Float64()
		if wv < a.T[timeDeath] && wv < a.T[timeEmigrate] {
			a.Pending = PendingVaccination
			return s.sched.Schedule(n, wv)
		}
	}
	return s.scheduleNext(n, demographySlots)
}

// vaccinate applies the scheduled vaccination visit. Protection is all or
// nothing: with probability equal to the efficacy the individual becomes
// immune, otherwise the visit leaves no trace.
func (s *Simulator) vaccinate(n int) error {
	if s.pop.A[n].State == StateUninfected && s.rng.Float64() < s.p.Vaccination.Efficacy {
		if err := s.pop.SetState(n, StateVaccinated); err != nil {
			return err
		}
		s.met.Vaccinations++
	}
	return s.scheduleNext(n, demographySlots)
}

// death closes the record and compacts the arena.
func (s *Simulator) death(n int) error {
	s.met.RecordDeath(s.clock - s.pop.A[n].T[timeBirth])
	return s.pop.Remove(n, s.sched)
}

// emigrate removes the individual from the study population.
func (s *Simulator) emigrate(n int) error {
	s.met.Emigrations++
	return s.pop.Remove(n, s.sched)
}
