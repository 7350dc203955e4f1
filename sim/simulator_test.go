package sim

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() {
	// Keep the periodic snapshot lines of end-to-end runs out of test output.
	logrus.SetLevel(logrus.ErrorLevel)
}

// testParams returns a configuration small enough for an end-to-end run in
// well under a second.
func testParams() Params {
	p := DefaultParams()
	p.Time = TimeParams{StartYear: 1981, EndYear: 1990}
	p.Population = PopulationParams{
		MaxIndividuals: 20_000,
		MaxImmigrants:  4_000,
		InitialUKBorn:  2_000,
		InitialNonUK:   500,
	}
	p.Demography.BirthsPerYear = 50
	p.Demography.ImmigrantsPerYear = 30
	p.Reporting.Interval = 1.0
	return p
}

func TestSimulator_Setup_SchedulesEveryIndividual(t *testing.T) {
	// GIVEN a freshly seeded simulation
	s, err := NewSimulator(testParams(), 1)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	// THEN each individual holds exactly one queued event, plus the two
	// pulse generators
	pop := s.Population()
	assert.Equal(t, 2500, pop.Size())
	assert.Equal(t, pop.Size()+2, s.Scheduler().Len())

	// AND the compartment counters account for everyone
	total := 0
	for q := StateUninfected; q < numStates; q++ {
		total += pop.Count(q)
	}
	assert.Equal(t, pop.Size(), total)
	assert.Greater(t, pop.Infected(), 0)
}

func TestSimulator_Run_ConservesPopulation(t *testing.T) {
	// GIVEN a full run over nine years
	s, err := NewSimulator(testParams(), 2)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// THEN arrivals minus departures accounts exactly for the head count
	pop, m := s.Population(), s.Metrics()
	want := 2500 + m.Births + m.Immigrations - m.Deaths - m.Emigrations
	assert.Equal(t, want, pop.Size())

	// AND demographic turnover actually happened
	assert.Greater(t, m.Births, 0)
	assert.Greater(t, m.Immigrations, 0)
	assert.Greater(t, m.Deaths, 0)
	assert.Greater(t, m.Emigrations, 0)
	assert.Greater(t, m.Infections, 0)
	assert.Greater(t, m.Vaccinations, 0)

	// AND the queue still holds one event per live individual and the two
	// generators, less the single event extracted when the horizon was hit
	assert.InDelta(t, pop.Size()+2, s.Scheduler().Len(), 1)

	// AND the compartment counters still account for everyone
	total := 0
	for q := StateUninfected; q < numStates; q++ {
		total += pop.Count(q)
	}
	assert.Equal(t, pop.Size(), total)
}

func TestSimulator_Run_DeterministicForEqualSeeds(t *testing.T) {
	// GIVEN two simulations with identical parameters and seeds
	run := func() *Simulator {
		s, err := NewSimulator(testParams(), 777)
		if err != nil {
			t.Fatalf("NewSimulator: %v", err)
		}
		if err := s.Setup(); err != nil {
			t.Fatalf("Setup: %v", err)
		}
		if err := s.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return s
	}
	a := run()
	b := run()

	// THEN every outcome matches exactly
	assert.Equal(t, a.Population().Size(), b.Population().Size())
	assert.Equal(t, *a.Metrics(), *b.Metrics())
	assert.Equal(t, a.Scheduler().Clock(), b.Scheduler().Clock())
	for q := StateUninfected; q < numStates; q++ {
		assert.Equal(t, a.Population().Count(q), b.Population().Count(q), "state %v", q)
	}
}

func TestSimulator_Run_DifferentSeedsDiverge(t *testing.T) {
	run := func(seed int64) *Simulator {
		s, err := NewSimulator(testParams(), seed)
		if err != nil {
			t.Fatalf("NewSimulator: %v", err)
		}
		if err := s.Setup(); err != nil {
			t.Fatalf("Setup: %v", err)
		}
		if err := s.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return s
	}
	a := run(1)
	b := run(2)
	assert.NotEqual(t, *a.Metrics(), *b.Metrics())
}

func TestSimulator_Recorder_WritesSnapshots(t *testing.T) {
	// GIVEN a short run recording into a file-backed SQLite database
	rec, err := NewRecorder(t.TempDir() + "/run.db")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	defer rec.Close()

	p := testParams()
	p.Time.EndYear = 1984
	s, err := NewSimulator(p, 5)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	s.AttachRecorder(rec)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// THEN one snapshot row exists per reporting interval crossed before the
	// horizon: 1982 and 1983
	var rows int
	if err := rec.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&rows); err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	assert.Equal(t, 2, rows)
}

func TestPopulation_Remove_CompactsAndRenumbers(t *testing.T) {
	// GIVEN three UK-born individuals with queued events
	pop := NewPopulation(100, 10)
	sched := NewEventScheduler(pop.MaxID(), 32, 8.0)
	var ids []int
	for i := 0; i < 3; i++ {
		n, err := pop.AllocUK()
		if err != nil {
			t.Fatalf("AllocUK: %v", err)
		}
		pop.A[n].Region = RegionUK
		pop.A[n].T[timeDeath] = float64(i + 1)
		if err := pop.SetState(n, StateUninfected); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		if err := sched.Schedule(n, pop.A[n].T[timeDeath]); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		ids = append(ids, n)
	}
	first, last := ids[0], ids[2]
	lastDeath := pop.A[last].T[timeDeath]

	// WHEN the first one is removed after its event was extracted
	if err := sched.Cancel(first); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := pop.Remove(first, sched); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	// THEN the highest-numbered individual now lives in the freed slot with
	// its event intact, and the vacated slot is cleared
	assert.Equal(t, 2, pop.Size())
	assert.Equal(t, lastDeath, pop.A[first].T[timeDeath])
	assert.Equal(t, StateUnused, pop.A[last].State)
	assert.ErrorIs(t, sched.Cancel(last), ErrNotScheduled)
	assert.NoError(t, sched.Cancel(first))
}
