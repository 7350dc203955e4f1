// sim/disease.go
//
// Infection and disease event handlers. An individual carries at most one
// queued event, so every handler here ends by saving the times of all
// candidate follow-on events and scheduling the earliest.

package sim

import "fmt"

// riskFactor scales a progression risk or rate for region of birth and HIV
// status.
func (s *Simulator) riskFactor(a *Individual) float64 {
	f := 1.0
	if a.Region == RegionNonUK {
		f *= s.p.Disease.NonUKRiskFactor
	}
	if a.SSA == SSAHIVPos {
		f *= s.p.Disease.HIVRiskFactor
	}
	return f
}

// infect exposes individual n to infection that occurred tinf years ago
// (zero for a fresh transmission; setup backdates it). Vaccinated and
// already recently infected or diseased individuals are unaffected. Remote
// infection restarts the clock as reinfection.
func (s *Simulator) infect(n int, tinf float64) error {
	a := &s.pop.A[n]
	dis := &s.p.Disease

	var q State
	var risk float64
	switch a.State {
	case StateUninfected:
		q, risk = StateRecentInfection, dis.PrimaryRisk
	case StateRemoteInfection:
		q, risk = StateReinfection, dis.ReinfectionRisk
	default:
		return nil
	}

	// The individual is live, so an event is queued for it unless this call
	// came from its own handler with the queue slot already vacated.
	if a.Pending != PendingNone {
		if err := s.sched.Cancel(n); err != nil {
			return fmt.Errorf("cancel pending %s for id %d: %w", a.Pending, n, err)
		}
		a.Pending = PendingNone
	}

	t := s.clock
	window := dis.LatentYears - tinf
	a.T[timeExit] = t + window
	if s.rng.Float64() < risk*s.riskFactor(a) {
		a.T[timeDisease] = t + s.rng.Float64()*window
	} else {
		a.T[timeDisease] = s.neverTime()
	}
	a.T[timeMutate] = t + s.rng.Expon(dis.MutationRateInfected)

	if err := s.pop.SetState(n, q); err != nil {
		return err
	}
	s.met.Infections++
	return s.scheduleNext(n, latentSlots)
}

// seedRemote places an individual directly in the remote compartment,
// bypassing the recency window. Used for prevalent infection at entry.
func (s *Simulator) seedRemote(n int) error {
	a := &s.pop.A[n]
	if err := s.pop.SetState(n, StateRemoteInfection); err != nil {
		return err
	}
	a.T[timeDisease] = s.clock + s.rng.Expon(s.p.Disease.ReactivationRate*s.riskFactor(a))
	a.T[timeMutate] = s.clock + s.rng.Expon(s.p.Disease.MutationRateInfected)
	return s.scheduleNext(n, remoteSlots)
}

// becomeRemote ends the recency window or active disease: the individual
// settles into remote infection with a reactivation time drawn at the
// per-year rate.
func (s *Simulator) becomeRemote(n int) error {
	a := &s.pop.A[n]
	if err := s.pop.SetState(n, StateRemoteInfection); err != nil {
		return err
	}
	t := s.clock
	a.T[timeExit] = s.neverTime()
	a.T[timeDisease] = t + s.rng.Expon(s.p.Disease.ReactivationRate*s.riskFactor(a))
	a.T[timeTransmit] = s.neverTime()
	a.T[timeMutate] = t + s.rng.Expon(s.p.Disease.MutationRateInfected)
	a.T[timeReport] = s.neverTime()
	return s.scheduleNext(n, remoteSlots)
}

// progress moves a latently infected individual to active disease. The
// disease state records how it arose and whether it is pulmonary. Exit is
// by recovery to remote infection or, on the case-fatality draw, by death
// shortly before the recovery that will not happen.
func (s *Simulator) progress(n int) error {
	a := &s.pop.A[n]
	dis := &s.p.Disease
	t := s.clock

	var q State
	switch a.State {
	case StateRecentInfection:
		q = StateDiseasePrimary
	case StateRemoteInfection:
		q = StateDiseaseReactivation
	case StateReinfection:
		q = StateDiseaseReinfection
	default:
		return fmt.Errorf("id %d progressed to disease from %v", n, a.State)
	}
	pulmonary := s.rng.Float64() < dis.PulmonaryFraction
	if !pulmonary {
		q += StateDiseasePrimaryNP - StateDiseasePrimary
	}

	a.T[timeExit] = t + s.rng.Expon(dis.RecoveryRate)
	if s.rng.Float64() < dis.CaseFatality {
		// The fatal outcome preempts whichever exit was coming first, so it
		// can never land after a natural death or emigration on record.
		e := a.T[timeExit]
		if a.T[timeDeath] < e {
			e = a.T[timeDeath]
		}
		if a.T[timeEmigrate] < e {
			e = a.T[timeEmigrate]
		}
		a.T[timeDeath] = t + 0.99*(e-t)
	}

	if s.rng.Float64() < dis.ReportedFraction {
		e := a.T[timeExit]
		if a.T[timeDeath] < e {
			e = a.T[timeDeath]
		}
		if a.T[timeEmigrate] < e {
			e = a.T[timeEmigrate]
		}
		a.T[timeReport] = t + s.rng.Float64()*(e-t)
	} else {
		a.T[timeReport] = s.neverTime()
	}

	if pulmonary && s.rng.Float64() < dis.SmearPosFraction {
		a.T[timeTransmit] = t + s.rng.Expon(dis.ContactsPerYear)
	} else {
		a.T[timeTransmit] = s.neverTime()
	}
	a.T[timeMutate] = t + s.rng.Expon(dis.MutationRateDiseased)

	if err := s.pop.SetState(n, q); err != nil {
		return err
	}
	s.met.Cases++
	return s.scheduleNext(n, diseaseSlots)
}

// transmit exposes one contact of an infectious case and draws the time of
// the next contact. Close contacts come from the case's own region of
// birth; the rest from the whole population.
func (s *Simulator) transmit(n int) error {
	a := &s.pop.A[n]

	var target int
	if s.rng.Float64() < s.p.Disease.CloseContactFraction {
		target = s.randomLiveID(a.Region)
	} else {
		// Casual contact anywhere in the population, weighted by region size.
		r := s.rng.IntN(s.pop.Size())
		if imm := s.pop.nextImm - 1; r < imm {
			target = r + 1
		} else {
			target = s.pop.maxImm + 1 + (r - imm)
		}
	}
	if target > 0 && target != n {
		if err := s.infect(target, 0); err != nil {
			return err
		}
	}

	a.T[timeTransmit] = s.clock + s.rng.Expon(s.p.Disease.ContactsPerYear)
	return s.scheduleNext(n, diseaseSlots)
}

// randomLiveID picks a uniformly random live individual from one region, or
// zero when the region is empty.
func (s *Simulator) randomLiveID(region Region) int {
	if region == RegionNonUK {
		live := s.pop.nextImm - 1
		if live == 0 {
			return 0
		}
		return 1 + s.rng.IntN(live)
	}
	live := s.pop.nextUKB - s.pop.maxImm - 1
	if live == 0 {
		return 0
	}
	return s.pop.maxImm + 1 + s.rng.IntN(live)
}

// mutate advances the strain type counter and draws the next mutation,
// at the latent or active rate as the compartment demands.
func (s *Simulator) mutate(n int) error {
	a := &s.pop.A[n]
	s.met.Mutations++

	rate := s.p.Disease.MutationRateInfected
	if a.State.Diseased() {
		rate = s.p.Disease.MutationRateDiseased
	}
	a.T[timeMutate] = s.clock + s.rng.Expon(rate)
	return s.scheduleNext(n, slotsFor(a.State))
}

// notify records the case report and erases the report time so the case is
// counted once.
func (s *Simulator) notify(n int) error {
	a := &s.pop.A[n]
	s.met.RecordNotification(s.clock-a.T[timeBirth], a.Sex, a.Region, int(s.clock))
	a.T[timeReport] = s.neverTime()
	return s.scheduleNext(n, slotsFor(a.State))
}
