// sim/event.go
//
// Pending-event kinds and the saved-time slots they read. Each individual
// carries up to eight saved future times but holds at most one position in
// the event queue: the earliest relevant event is scheduled, and the handler
// that dispatches it decides what to schedule next.

package sim

// PendingEvent identifies the kind of event scheduled for an individual.
type PendingEvent uint8

const (
	PendingNone             PendingEvent = iota
	PendingVaccination                   // effective vaccination
	PendingTransmission                  // transmit infection to another
	PendingRemote                        // transition to remote (latent) infection
	PendingDisease                       // progression to active disease
	PendingDeath                         // death
	PendingMutation                      // strain type mutation
	PendingEmigration                    // emigration from the study population
	PendingBirthPulse                    // birth generator tick (pseudo-individual)
	PendingImmigrationPulse              // immigration generator tick (pseudo-individual)
	PendingReport                        // disease case report
)

var pendingNames = [...]string{
	PendingNone:             "none",
	PendingVaccination:      "vaccination",
	PendingTransmission:     "transmission",
	PendingRemote:           "remote",
	PendingDisease:          "disease",
	PendingDeath:            "death",
	PendingMutation:         "mutation",
	PendingEmigration:       "emigration",
	PendingBirthPulse:       "birth-pulse",
	PendingImmigrationPulse: "immigration-pulse",
	PendingReport:           "report",
}

func (p PendingEvent) String() string {
	if int(p) < len(pendingNames) {
		return pendingNames[p]
	}
	return "invalid"
}

// Saved-time slots in an individual's record. The indices matter: handlers
// pass subsets of them to Earliest to pick the next event to schedule.
const (
	timeBirth    = iota // initiation of this record
	timeExit            // exit from the present state (recovery to remote)
	timeDeath           // closure of this record
	timeDisease         // progression to active disease
	timeTransmit        // next transmission to another individual
	timeMutate          // strain type mutation
	timeEmigrate        // emigration
	timeReport          // disease case report
	numTimes
)

// pendingForTime maps a saved-time slot to the event kind that fires it.
var pendingForTime = [numTimes]PendingEvent{
	timeExit:     PendingRemote,
	timeDeath:    PendingDeath,
	timeDisease:  PendingDisease,
	timeTransmit: PendingTransmission,
	timeMutate:   PendingMutation,
	timeEmigrate: PendingEmigration,
	timeReport:   PendingReport,
}
