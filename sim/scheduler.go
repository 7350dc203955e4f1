// sim/scheduler.go
//
// Time-bucketed event scheduler, efficient even for queues holding hundreds
// of millions of pending events.
//
// The method is a hash-coded search with a modulus key: a fixed circular
// array of time buckets spans one cycle of width `width`, and each scheduled
// event is linked into the bucket its time maps to modulo that width. With
// the bucket count chosen near the expected event count, bucket occupancy
// follows a Poisson distribution with mean near one, so scheduling,
// cancellation, and next-event dispatch all run in amortized O(1) regardless
// of how many events are pending. Only two integers of overhead are needed
// per event: a bucket head and a forward link.
//
// Because of the modulus, a bucket can simultaneously hold events from
// future cycles; dispatch validates each bucket head against the current
// cycle's upper bound and leaves future-cycle events in place for a later
// pass.

package sim

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// unscheduled marks link slots whose event ID is not in any bucket.
// Link value 0 terminates a bucket list, so slot 0 never holds an event.
const unscheduled = -1

// Scheduler error conditions. All of them indicate a logic bug in the caller
// or a corrupted structure; callers are expected to abort the run on any of
// them rather than attempt repair.
var (
	ErrIDRange          = errors.New("event id out of range")
	ErrAlreadyScheduled = errors.New("event already scheduled")
	ErrNotScheduled     = errors.New("event not scheduled")
	ErrPastTime         = errors.New("event time precedes current clock")
	ErrNotEmpty         = errors.New("events already scheduled")
	ErrEventMissing     = errors.New("scheduled event absent from candidate buckets")
	ErrCountNegative    = errors.New("scheduled-event count went negative")
	ErrLinkCorrupt      = errors.New("forward link out of range")
)

// EventScheduler holds all scheduling state for one simulation. Event IDs in
// [1, maxID] are assigned and owned by the caller; the scheduler only tracks
// whether each ID is pending and when it fires. Not safe for concurrent use:
// the entire simulation is one dispatch loop.
type EventScheduler struct {
	maxID int       // highest valid event ID
	times []float64 // scheduled time per ID, meaningful only while linked
	links []int     // forward link per ID; unscheduled when not linked
	heads []int     // first ID in each bucket, 0 when empty

	nBuckets int     // number of time buckets
	width    float64 // time width of one full cycle across all buckets
	active   int     // index of the bucket currently being dispatched
	ordered  bool    // whether the active bucket is known to be sorted
	count    int     // events pending across all buckets

	cycleLo float64 // earliest time representable this cycle
	cycleHi float64 // earliest time beyond this cycle

	clock float64 // time of the last dispatched event
}

// NewEventScheduler allocates a scheduler for event IDs 1..maxID, with the
// given bucket count and cycle width. A bucket count near maxID keeps the
// expected occupancy at one event per bucket; cycle width trades clustering
// near the present against spreading events over mostly-empty buckets.
func NewEventScheduler(maxID, buckets int, cycleWidth float64) *EventScheduler {
	if maxID < 1 || buckets < 1 || cycleWidth <= 0 {
		panic(fmt.Sprintf("sim: invalid scheduler geometry: maxID=%d buckets=%d width=%g",
			maxID, buckets, cycleWidth))
	}
	s := &EventScheduler{
		maxID:    maxID,
		times:    make([]float64, maxID+1),
		links:    make([]int, maxID+1),
		heads:    make([]int, buckets),
		nBuckets: buckets,
		width:    cycleWidth,
	}
	s.Init()
	return s
}

// Init wipes all scheduling state so the same instance can be reused for an
// entirely new run without restarting the process. Idempotent.
func (s *EventScheduler) Init() {
	for i := range s.links {
		s.links[i] = unscheduled
	}
	for i := range s.times {
		s.times[i] = 0
	}
	for i := range s.heads {
		s.heads[i] = 0
	}
	s.active = 0
	s.ordered = true
	s.count = 0
	s.cycleLo = 0
	s.cycleHi = s.width
	s.clock = 0
}

// SetStartTime positions the bucket cycle so the run can begin at t0 (for
// example a calendar year) instead of working forward from zero. The cycle
// lower bound is backed off by half a bucket's width: a time computed as
// exactly t0 by one code path and as t0 minus an epsilon by another must not
// straddle a bucket boundary, or events would come out of order.
func (s *EventScheduler) SetStartTime(t0 float64) error {
	if s.count != 0 {
		return fmt.Errorf("set start time %g: %w (%d pending)", t0, ErrNotEmpty, s.count)
	}
	s.cycleLo = t0 - (s.width/float64(s.nBuckets))/2
	s.cycleHi = s.cycleLo + s.width
	s.clock = t0
	return nil
}

// Clock returns the time of the most recently dispatched event.
func (s *EventScheduler) Clock() float64 { return s.clock }

// Len returns the number of events currently scheduled.
func (s *EventScheduler) Len() int { return s.count }

// bucketFor maps an event time to its bucket index under the cycle modulus.
func (s *EventScheduler) bucketFor(te float64) int {
	frac := (te - s.cycleLo) / s.width
	frac -= math.Floor(frac)
	i := int(frac * float64(s.nBuckets))
	if i >= s.nBuckets { // rounding can land exactly on the cycle boundary
		i = 0
	}
	return i
}

// Schedule links event id into the bucket its time maps to. The id must be
// unscheduled and the time must not precede the current clock. O(1).
func (s *EventScheduler) Schedule(id int, te float64) error {
	if id < 1 || id > s.maxID {
		return fmt.Errorf("schedule id %d: %w [1,%d]", id, ErrIDRange, s.maxID)
	}
	if s.links[id] != unscheduled {
		return fmt.Errorf("schedule id %d at %g: %w (pending at %g)",
			id, te, ErrAlreadyScheduled, s.times[id])
	}
	if te < s.clock {
		return fmt.Errorf("schedule id %d: %w (clock %g > %g)", id, ErrPastTime, s.clock, te)
	}

	s.times[id] = te
	i := s.bucketFor(te)
	if i == s.active { // insertion breaks any prior sort order
		s.ordered = false
	}
	s.links[id] = s.heads[i]
	s.heads[i] = id
	s.count++
	return nil
}

// Cancel unlinks a scheduled event. The expected bucket is recomputed from
// the stored time exactly as Schedule computed it, but finite-precision
// arithmetic can evaluate a time sitting on a bucket boundary into either
// neighbour, so on a miss the two adjacent buckets are probed as well. A
// miss in all three is an internal-consistency failure. Amortized O(1):
// expected bucket occupancy is about one.
func (s *EventScheduler) Cancel(id int) error {
	if id < 1 || id > s.maxID {
		return fmt.Errorf("cancel id %d: %w [1,%d]", id, ErrIDRange, s.maxID)
	}
	if s.links[id] == unscheduled {
		return fmt.Errorf("cancel id %d: %w", id, ErrNotScheduled)
	}

	i := s.bucketFor(s.times[id])
	for _, b := range [3]int{i, (i - 1 + s.nBuckets) % s.nBuckets, (i + 1) % s.nBuckets} {
		if !s.unlink(id, b) {
			continue
		}
		s.count--
		if s.count < 0 {
			return fmt.Errorf("cancel id %d bucket %d: %w", id, b, ErrCountNegative)
		}
		return nil
	}
	return fmt.Errorf("cancel id %d at %g (bucket %d): %w", id, s.times[id], i, ErrEventMissing)
}

// unlink removes id from one bucket's list, reporting whether it was there.
func (s *EventScheduler) unlink(id, bucket int) bool {
	prev := 0
	for j := s.heads[bucket]; j > 0; prev, j = j, s.links[j] {
		if j != id {
			continue
		}
		if prev > 0 {
			s.links[prev] = s.links[j]
		} else {
			s.heads[bucket] = s.links[j]
		}
		s.links[j] = unscheduled
		return true
	}
	return false
}

// Renumber moves the event pending under oldID to newID, preserving its
// scheduled time. Callers use this to keep the ID space compact, handing a
// freed slot to the highest-numbered individual in use. Renumbering an ID to
// itself is a no-op.
func (s *EventScheduler) Renumber(newID, oldID int) error {
	if newID < 1 || newID > s.maxID {
		return fmt.Errorf("renumber to id %d: %w [1,%d]", newID, ErrIDRange, s.maxID)
	}
	if oldID < 1 || oldID > s.maxID {
		return fmt.Errorf("renumber from id %d: %w [1,%d]", oldID, ErrIDRange, s.maxID)
	}
	if newID == oldID {
		return nil
	}
	if s.links[oldID] == unscheduled {
		return fmt.Errorf("renumber from id %d: %w", oldID, ErrNotScheduled)
	}
	if s.links[newID] != unscheduled {
		return fmt.Errorf("renumber to id %d: %w", newID, ErrAlreadyScheduled)
	}

	te := s.times[oldID]
	if err := s.Cancel(oldID); err != nil {
		return err
	}
	return s.Schedule(newID, te)
}

// Next removes and returns the ID of the earliest pending event, advancing
// the clock to its time. It scans forward from the active bucket, sorting a
// bucket on first contact (or after an insertion disturbed it) so dispatch
// only ever inspects the head. Heads belonging to a future cycle are left in
// place. When a full pass over the buckets yields nothing, the cycle bounds
// advance by one width and scanning restarts at bucket zero. Returns id 0
// when no events remain anywhere.
func (s *EventScheduler) Next() (int, error) {
	for s.count > 0 {
		for ; s.active < s.nBuckets; s.active, s.ordered = s.active+1, false {
			j := s.heads[s.active]
			if j == 0 {
				continue
			}
			if j < 1 || j > s.maxID {
				return 0, fmt.Errorf("next: bucket %d head %d: %w", s.active, j, ErrLinkCorrupt)
			}

			if !s.ordered {
				j = sortList(s.links, j, s.byTime)
				s.heads[s.active] = j
				s.ordered = true
			}

			if s.times[j] < s.cycleHi { // head belongs to this cycle
				if s.links[j] == unscheduled {
					return 0, fmt.Errorf("next: bucket %d id %d: %w", s.active, j, ErrLinkCorrupt)
				}
				s.heads[s.active] = s.links[j]
				s.links[j] = unscheduled
				s.count--
				s.clock = s.times[j]
				return j, nil
			}
		}
		s.active = 0 // circle back and represent the next cycle
		s.cycleLo += s.width
		s.cycleHi = s.cycleLo + s.width
	}
	return 0, nil
}

// byTime orders two event IDs by scheduled time, for sorting a bucket.
func (s *EventScheduler) byTime(a, b int) int {
	switch d := s.times[a] - s.times[b]; {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Profile writes a histogram of bucket occupancy next to the Poisson
// expectation at the same mean load, a direct check that events are not
// pathologically clustered. It returns the byte footprint of the three
// backing arrays. Diagnostic only, never on the hot path.
func (s *EventScheduler) Profile(label string) (int, error) {
	const maxOccupancy = 1000

	if label == "" {
		label = "Bucket"
	}

	var prof [maxOccupancy + 1]int
	for i := 0; i < s.nBuckets; i++ {
		n := 0
		for j := s.heads[i]; j > 0; j = s.links[j] {
			if j < 1 || j > s.maxID || n > s.maxID {
				return 0, fmt.Errorf("profile: bucket %d link %d: %w", i, j, ErrLinkCorrupt)
			}
			n++
		}
		if n > maxOccupancy {
			n = maxOccupancy
		}
		prof[n]++
	}

	top := 0
	for i, c := range prof {
		if c > 0 {
			top = i
		}
	}

	lambda := float64(s.count) / float64(s.nBuckets)
	poisson := distuv.Poisson{Lambda: lambda}
	fmt.Printf("%s distribution of %d events:\n", label, s.count)
	fmt.Printf("   N   Observed   Expected\n")
	for i := 0; i <= top; i++ {
		expected := 0.0
		switch {
		case lambda > 0:
			expected = float64(s.nBuckets) * poisson.Prob(float64(i))
		case i == 0: // empty scheduler: every bucket is expected empty
			expected = float64(s.nBuckets)
		}
		if prof[i] == 0 && expected <= 0.5 {
			continue
		}
		tag := ' '
		if i == maxOccupancy {
			tag = '+'
		}
		fmt.Printf("%4d%c%9d %10.0f\n", i, tag, prof[i], expected)
	}
	fmt.Printf("\n")

	const slotBytes = 8 // int and float64 slots on 64-bit targets
	return (len(s.heads) + len(s.links) + len(s.times)) * slotBytes, nil
}
