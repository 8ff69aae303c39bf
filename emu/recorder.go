package emu

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/xid"

	"oamdma/emu/log"
	"oamdma/hw"
)

const defaultBatchSize = 4096

// Recorder is a cycle tracer storing every cycle in a SQLite database. Each
// recorder writes a new session, identified by a unique id, so that several
// runs can share the same database.
type Recorder struct {
	db      *sql.DB
	insert  *sql.Stmt
	session string

	batch     []hw.CycleState
	batchSize int
}

// NewRecorder opens (or creates) the database at path and starts a new
// session. label is a free-form description stored with the session.
func NewRecorder(path, label string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}

	r := &Recorder{
		db:        db,
		session:   xid.New().String(),
		batchSize: defaultBatchSize,
	}
	if err := r.init(label); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: %w", err)
	}

	log.ModTrace.InfoZ("Recording session").
		String("db", path).
		String("session", r.session).
		End()
	return r, nil
}

func (r *Recorder) init(label string) error {
	schema := []string{`
		CREATE TABLE IF NOT EXISTS sessions
		(
			id      TEXT PRIMARY KEY,
			label   TEXT NOT NULL,
			created INTEGER NOT NULL
		);`, `
		CREATE TABLE IF NOT EXISTS cycles
		(
			session TEXT    NOT NULL,
			cycle   INTEGER NOT NULL,
			master  INTEGER NOT NULL,
			state   INTEGER NOT NULL,
			phase   INTEGER NOT NULL,
			addr    INTEGER NOT NULL,
			data    INTEGER NOT NULL,
			rnw     INTEGER NOT NULL,
			req     INTEGER NOT NULL,
			ready   INTEGER NOT NULL,
			rdata   INTEGER NOT NULL,
			reset   INTEGER NOT NULL
		);`, `
		CREATE INDEX IF NOT EXISTS cycles_session_cycle_index
			ON cycles (session, cycle);`,
	}
	for _, q := range schema {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	_, err := r.db.Exec(`INSERT INTO sessions VALUES (?, ?, ?)`,
		r.session, label, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	r.insert, err = r.db.Prepare(`INSERT INTO cycles VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	return nil
}

// Session returns the id of the session being recorded.
func (r *Recorder) Session() string { return r.session }

// TraceCycle buffers cs, the buffer is written to the database once full.
func (r *Recorder) TraceCycle(cs hw.CycleState) error {
	r.batch = append(r.batch, cs)
	if len(r.batch) >= r.batchSize {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered cycles in a single transaction.
func (r *Recorder) Flush() error {
	if len(r.batch) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(r.insert)
	for _, cs := range r.batch {
		_, err := stmt.Exec(
			r.session,
			cs.Cycle,
			int64(cs.Master),
			int64(cs.State),
			int64(cs.Phase),
			int64(cs.Bus.Addr),
			int64(cs.Bus.Data),
			cs.Bus.RnW,
			cs.Req,
			cs.Ready,
			int64(cs.RData),
			cs.Reset,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert cycle %d: %w", cs.Cycle, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.ModTrace.DebugZ("Flushed cycles").Int("count", len(r.batch)).End()
	r.batch = r.batch[:0]
	return nil
}

// Close flushes buffered cycles and closes the database.
func (r *Recorder) Close() error {
	return errors.Join(
		r.Flush(),
		r.insert.Close(),
		r.db.Close(),
	)
}

// ReadSession returns the cycles recorded during a session, in order.
func (r *Recorder) ReadSession(session string) ([]hw.CycleState, error) {
	return readSession(r.db, session)
}

// ReadSession opens the database at path and returns the cycles recorded
// during a session.
func ReadSession(path, session string) ([]hw.CycleState, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return readSession(db, session)
}

func readSession(db *sql.DB, session string) ([]hw.CycleState, error) {
	rows, err := db.Query(`
		SELECT cycle, master, state, phase, addr, data, rnw, req, ready, rdata, reset
		FROM cycles WHERE session = ? ORDER BY cycle`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []hw.CycleState
	for rows.Next() {
		var (
			cs                                      hw.CycleState
			master, state, phase, addr, data, rdata int64
		)
		err := rows.Scan(&cs.Cycle, &master, &state, &phase, &addr, &data,
			&cs.Bus.RnW, &cs.Req, &cs.Ready, &rdata, &cs.Reset)
		if err != nil {
			return nil, err
		}
		cs.Master = hw.BusMaster(master)
		cs.State = hw.DMAState(state)
		cs.Phase = uint8(phase)
		cs.Bus.Addr = uint16(addr)
		cs.Bus.Data = uint8(data)
		cs.RData = uint8(rdata)
		cycles = append(cycles, cs)
	}
	return cycles, rows.Err()
}

// SessionInfo describes a recorded session.
type SessionInfo struct {
	ID      string
	Label   string
	Created time.Time
	Cycles  int64
}

// Sessions lists the sessions stored in the database at path, oldest first.
func Sessions(path string) ([]SessionInfo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT s.id, s.label, s.created, COUNT(c.cycle)
		FROM sessions s LEFT JOIN cycles c ON c.session = s.id
		GROUP BY s.id
		ORDER BY s.created`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Label, &created, &info.Cycles); err != nil {
			return nil, err
		}
		info.Created = time.Unix(0, created)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
