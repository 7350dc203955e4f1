// sim/simulator.go
//
// The Simulator ties the event queue to the population: it seeds the initial
// population, runs the dispatch loop until the time horizon, and hands each
// dispatched individual to the handler its pending-event kind names.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator drives one realisation of the model.
type Simulator struct {
	p     Params
	rng   *RNG
	pop   *Population
	sched *EventScheduler
	met   *Metrics
	steps *StepStats
	rec   *Recorder

	t0, t1 float64
	clock  float64 // time of the event being handled
}

// NewSimulator builds a simulator for the given parameters and seed. The
// scheduler defaults to one bucket per schedulable ID, the optimum when all
// bucket operations cost the same.
func NewSimulator(p Params, seed int64) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pop := NewPopulation(p.Population.MaxIndividuals, p.Population.MaxImmigrants)
	buckets := p.Scheduler.Buckets
	if buckets == 0 {
		buckets = pop.MaxID() + 1
	}
	sched := NewEventScheduler(pop.MaxID(), buckets, p.Scheduler.CycleWidth)
	sched.Init()
	if err := sched.SetStartTime(p.Time.StartYear); err != nil {
		return nil, err
	}
	return &Simulator{
		p:     p,
		rng:   NewRNG(seed),
		pop:   pop,
		sched: sched,
		met:   NewMetrics(),
		steps: NewStepStats(),
		t0:    p.Time.StartYear,
		t1:    p.Time.EndYear,
		clock: p.Time.StartYear,
	}, nil
}

// Population exposes the arena, mainly for inspection after a run.
func (s *Simulator) Population() *Population { return s.pop }

// Scheduler exposes the event queue, mainly for profiling.
func (s *Simulator) Scheduler() *EventScheduler { return s.sched }

// Metrics exposes the run counters.
func (s *Simulator) Metrics() *Metrics { return s.met }

// AttachRecorder directs periodic snapshots to rec. Pass nil to detach.
func (s *Simulator) AttachRecorder(rec *Recorder) { s.rec = rec }

// neverTime returns a time safely beyond the horizon. The random offset
// keeps such times distinct so bucket lists stay short.
func (s *Simulator) neverTime() float64 {
	return 2*s.t1 + s.rng.Float64()
}

// scheduleNext queues individual n's earliest saved time among the given
// slots and records which event kind it stands for. The individual must not
// already be in the queue.
func (s *Simulator) scheduleNext(n int, subset []int) error {
	m := Earliest(s.pop.A[n].T[:], subset)
	s.pop.A[n].Pending = pendingForTime[m]
	return s.sched.Schedule(n, s.pop.A[n].T[m])
}

// Setup seeds the initial population and starts the demographic pulse
// generators. Call once, before Run.
func (s *Simulator) Setup() error {
	logrus.Infof("seeding %d UK-born and %d non-UK-born individuals at %.0f",
		s.p.Population.InitialUKBorn, s.p.Population.InitialNonUK, s.t0)

	for i := 0; i < s.p.Population.InitialUKBorn; i++ {
		n, err := s.pop.AllocUK()
		if err != nil {
			return err
		}
		if err := s.admit(n, RegionUK, s.t0); err != nil {
			return err
		}
	}
	for i := 0; i < s.p.Population.InitialNonUK; i++ {
		n, err := s.pop.AllocImm()
		if err != nil {
			return err
		}
		if err := s.admit(n, RegionNonUK, s.t0); err != nil {
			return err
		}
	}

	bid := s.pop.BirthID()
	s.pop.A[bid].Pending = PendingBirthPulse
	if err := s.sched.Schedule(bid, s.t0+s.rng.Expon(s.p.Demography.BirthsPerYear)); err != nil {
		return err
	}
	iid := s.pop.ImmigrationID()
	s.pop.A[iid].Pending = PendingImmigrationPulse
	if err := s.sched.Schedule(iid, s.t0+s.rng.Expon(s.p.Demography.ImmigrantsPerYear)); err != nil {
		return err
	}

	logrus.Infof("initial population %d, infected %d, queued events %d",
		s.pop.Size(), s.pop.Infected(), s.sched.Len())
	return nil
}

// Run dispatches events in time order until the horizon, writing a
// population snapshot every reporting interval. The clock only ever moves
// forward; any scheduler inconsistency is returned as an error.
func (s *Simulator) Run() error {
	nextReport := s.t0 + s.p.Reporting.Interval
	for {
		n, err := s.sched.Next()
		if err != nil {
			return err
		}
		if n == 0 {
			logrus.Warnf("event queue drained at %.4f, before horizon %.4f", s.clock, s.t1)
			break
		}
		t := s.sched.Clock()
		if t >= s.t1 {
			break
		}
		s.steps.Record(s.clock, t)
		s.clock = t

		if err := s.dispatch(n); err != nil {
			return fmt.Errorf("dispatch at %.6f: %w", t, err)
		}

		for t >= nextReport {
			if err := s.report(nextReport); err != nil {
				return err
			}
			nextReport += s.p.Reporting.Interval
		}
	}
	s.logSummary()
	return nil
}

func (s *Simulator) dispatch(n int) error {
	kind := s.pop.A[n].Pending
	s.met.Dispatched(kind)
	logrus.Tracef("t=%.6f id=%d %s", s.clock, n, kind)

	switch kind {
	case PendingBirthPulse:
		return s.birthPulse()
	case PendingImmigrationPulse:
		return s.immigrationPulse()
	case PendingVaccination:
		return s.vaccinate(n)
	case PendingTransmission:
		return s.transmit(n)
	case PendingRemote:
		return s.becomeRemote(n)
	case PendingDisease:
		return s.progress(n)
	case PendingDeath:
		return s.death(n)
	case PendingMutation:
		return s.mutate(n)
	case PendingEmigration:
		return s.emigrate(n)
	case PendingReport:
		return s.notify(n)
	}
	return fmt.Errorf("id %d dispatched with pending kind %d", n, kind)
}

// report logs one periodic snapshot and forwards it to the recorder.
func (s *Simulator) report(t float64) error {
	logrus.Infof("t=%.2f pop=%d infected=%d active=%d notifications=%d",
		t, s.pop.Size(), s.pop.Infected(), s.activeCases(), s.met.Notifications)
	if s.rec != nil {
		return s.rec.WriteSnapshot(t, s.pop, s.met)
	}
	return nil
}

func (s *Simulator) activeCases() int {
	n := 0
	for q := StateDiseasePrimary; q < numStates; q++ {
		n += s.pop.Count(q)
	}
	return n
}

func (s *Simulator) logSummary() {
	logrus.Infof("run complete: %d events dispatched over %.1f years",
		int(s.steps.Count()), s.t1-s.t0)
	logrus.Infof("final population %d (infected %d, active %d)",
		s.pop.Size(), s.pop.Infected(), s.activeCases())
	logrus.Infof("births %d, immigrations %d, deaths %d, emigrations %d",
		s.met.Births, s.met.Immigrations, s.met.Deaths, s.met.Emigrations)
	logrus.Infof("infections %d, cases %d, notifications %d, mutations %d",
		s.met.Infections, s.met.Cases, s.met.Notifications, s.met.Mutations)
	if s.met.Deaths > 0 {
		logrus.Infof("mean age at death %.1f years", s.met.MeanAgeAtDeath())
	}
	logrus.Infof("step size mean %s, spread %s, min %s, max %s",
		FormatDuration(s.steps.Mean()), FormatDuration(s.steps.RootVariance()),
		FormatDuration(s.steps.Min()), FormatDuration(s.steps.Max()))
}
