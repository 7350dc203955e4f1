// sim/recorder.go
//
// Optional SQLite sink for periodic population snapshots, so runs can be
// compared and plotted without parsing logs.

package sim

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	t             REAL NOT NULL,
	population    INTEGER NOT NULL,
	uninfected    INTEGER NOT NULL,
	vaccinated    INTEGER NOT NULL,
	recent        INTEGER NOT NULL,
	remote        INTEGER NOT NULL,
	reinfection   INTEGER NOT NULL,
	active        INTEGER NOT NULL,
	infections    INTEGER NOT NULL,
	cases         INTEGER NOT NULL,
	notifications INTEGER NOT NULL,
	deaths        INTEGER NOT NULL,
	emigrations   INTEGER NOT NULL
);`

// Recorder writes run snapshots to a SQLite database.
type Recorder struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewRecorder opens (or creates) the database at path and prepares the
// snapshot table.
func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	insert, err := db.Prepare(`INSERT INTO snapshots VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare snapshot insert: %w", err)
	}
	return &Recorder{db: db, insert: insert}, nil
}

// WriteSnapshot appends one row for the state of the population at time t.
func (r *Recorder) WriteSnapshot(t float64, pop *Population, m *Metrics) error {
	active := 0
	for q := StateDiseasePrimary; q < numStates; q++ {
		active += pop.Count(q)
	}
	_, err := r.insert.Exec(
		t,
		pop.Size(),
		pop.Count(StateUninfected),
		pop.Count(StateVaccinated),
		pop.Count(StateRecentInfection),
		pop.Count(StateRemoteInfection),
		pop.Count(StateReinfection),
		active,
		m.Infections,
		m.Cases,
		m.Notifications,
		m.Deaths,
		m.Emigrations,
	)
	if err != nil {
		return fmt.Errorf("write snapshot at %.4f: %w", t, err)
	}
	return nil
}

// Close releases the database.
func (r *Recorder) Close() error {
	if r.insert != nil {
		r.insert.Close()
	}
	return r.db.Close()
}
