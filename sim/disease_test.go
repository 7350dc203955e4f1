package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestCase allocates one UK-born susceptible with sane saved times, queued
// on its death, inside a simulator that has not been seeded.
func newTestCase(t *testing.T, s *Simulator) int {
	t.Helper()
	n, err := s.pop.AllocUK()
	if err != nil {
		t.Fatalf("AllocUK: %v", err)
	}
	a := &s.pop.A[n]
	*a = Individual{Region: RegionUK}
	for i := range a.T {
		a.T[i] = s.neverTime()
	}
	a.T[timeBirth] = s.clock - 30
	a.T[timeDeath] = s.clock + 40
	a.T[timeEmigrate] = s.clock + 60
	if err := s.pop.SetState(n, StateUninfected); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := s.scheduleNext(n, demographySlots); err != nil {
		t.Fatalf("scheduleNext: %v", err)
	}
	return n
}

func TestInfect_SusceptibleBecomesRecent(t *testing.T) {
	// GIVEN a susceptible queued on its death
	s, err := NewSimulator(testParams(), 3)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	assert.Equal(t, PendingDeath, s.pop.A[n].Pending)

	// WHEN it is freshly infected
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}

	// THEN it enters recent infection with the recency window saved, still
	// holding exactly one queued event
	a := &s.pop.A[n]
	assert.Equal(t, StateRecentInfection, a.State)
	assert.Equal(t, s.clock+s.p.Disease.LatentYears, a.T[timeExit])
	assert.Equal(t, 1, s.sched.Len())
	assert.Equal(t, 1, s.met.Infections)
	assert.Equal(t, 1, s.pop.Count(StateRecentInfection))
	assert.Equal(t, 0, s.pop.Count(StateUninfected))
}

func TestInfect_VaccinatedIsProtected(t *testing.T) {
	// GIVEN a successfully vaccinated individual
	s, err := NewSimulator(testParams(), 3)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.pop.SetState(n, StateVaccinated); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	// WHEN exposure occurs
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}

	// THEN nothing changes
	assert.Equal(t, StateVaccinated, s.pop.A[n].State)
	assert.Equal(t, 0, s.met.Infections)
	assert.Equal(t, PendingDeath, s.pop.A[n].Pending)
}

func TestInfect_RemoteBecomesReinfection(t *testing.T) {
	// GIVEN an individual with old infection
	s, err := NewSimulator(testParams(), 4)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	s.pop.A[n].Pending = PendingNone
	if err := s.seedRemote(n); err != nil {
		t.Fatalf("seedRemote: %v", err)
	}
	assert.Equal(t, StateRemoteInfection, s.pop.A[n].State)

	// WHEN reexposed
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}

	// THEN the recency clock restarts as reinfection
	assert.Equal(t, StateReinfection, s.pop.A[n].State)
	assert.Equal(t, 1, s.met.Infections)
	assert.Equal(t, 1, s.sched.Len())
}

func TestProgress_RecentBecomesActiveDisease(t *testing.T) {
	// GIVEN a recently infected individual whose progression event fired
	s, err := NewSimulator(testParams(), 5)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// WHEN disease develops
	if err := s.progress(n); err != nil {
		t.Fatalf("progress: %v", err)
	}

	// THEN the state is primary disease, with recovery ahead and the case
	// counted
	a := &s.pop.A[n]
	assert.True(t, a.State.Diseased())
	assert.Contains(t, []State{StateDiseasePrimary, StateDiseasePrimaryNP}, a.State)
	assert.Greater(t, a.T[timeExit], s.clock)
	assert.Equal(t, 1, s.met.Cases)
	assert.Equal(t, 1, s.sched.Len())
}

func TestProgress_FatalCaseNeverOutlivesRecordedExits(t *testing.T) {
	// GIVEN a certainly fatal case whose natural death is imminent
	p := testParams()
	p.Disease.CaseFatality = 1
	s, err := NewSimulator(p, 9)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	naturalDeath := s.clock + 0.01
	s.pop.A[n].T[timeDeath] = naturalDeath

	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// WHEN disease develops
	if err := s.progress(n); err != nil {
		t.Fatalf("progress: %v", err)
	}

	// THEN the disease death preempts the natural death rather than
	// extending the lifespan past it
	a := &s.pop.A[n]
	assert.Less(t, a.T[timeDeath], naturalDeath)
	assert.Greater(t, a.T[timeDeath], s.clock)
}

func TestProgress_FromUnexpectedStateFails(t *testing.T) {
	s, err := NewSimulator(testParams(), 5)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	assert.Error(t, s.progress(n))
}

func TestBecomeRemote_ClearsDiseaseOnlyTimes(t *testing.T) {
	// GIVEN an active case whose recovery fired
	s, err := NewSimulator(testParams(), 6)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.progress(n); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// WHEN it recovers
	if err := s.becomeRemote(n); err != nil {
		t.Fatalf("becomeRemote: %v", err)
	}

	// THEN it sits in remote infection and can no longer transmit or be
	// reported
	a := &s.pop.A[n]
	assert.Equal(t, StateRemoteInfection, a.State)
	assert.GreaterOrEqual(t, a.T[timeTransmit], 2*s.t1)
	assert.GreaterOrEqual(t, a.T[timeReport], 2*s.t1)
	assert.Equal(t, 1, s.sched.Len())
}

func TestNotify_CountsOnceAndErasesReportTime(t *testing.T) {
	// GIVEN an active case with a report due
	s, err := NewSimulator(testParams(), 7)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	n := newTestCase(t, s)
	if err := s.infect(n, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.progress(n); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := s.sched.Cancel(n); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// WHEN the report fires
	if err := s.notify(n); err != nil {
		t.Fatalf("notify: %v", err)
	}

	// THEN it is tallied by age class, sex, region, and year, and the report
	// time is pushed past the horizon
	a := &s.pop.A[n]
	assert.Equal(t, 1, s.met.Notifications)
	assert.Equal(t, 1, s.met.NotesByYear[int(s.clock)])
	assert.Equal(t, 1, s.met.NotesByClass[ageClass(30)][a.Sex][a.Region])
	assert.GreaterOrEqual(t, a.T[timeReport], 2*s.t1)
	assert.Equal(t, 1, s.sched.Len())
}

func TestTransmit_EventuallyInfectsContacts(t *testing.T) {
	// GIVEN one infectious case among fifty susceptibles
	s, err := NewSimulator(testParams(), 8)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	var ids []int
	for i := 0; i < 51; i++ {
		ids = append(ids, newTestCase(t, s))
	}
	caseID := ids[0]
	if err := s.infect(caseID, 0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := s.sched.Cancel(caseID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.progress(caseID); err != nil {
		t.Fatalf("progress: %v", err)
	}

	// WHEN fifty contact events fire
	for i := 0; i < 50; i++ {
		if err := s.sched.Cancel(caseID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if err := s.transmit(caseID); err != nil {
			t.Fatalf("transmit: %v", err)
		}
	}

	// THEN infection has spread and everyone still holds one queued event
	assert.Greater(t, s.met.Infections, 1)
	assert.Equal(t, len(ids), s.sched.Len())
}
