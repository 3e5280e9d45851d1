// Package journal persists token records to a SQLite database so runs can
// be inspected after the fact without re-parsing session files.
//
// The journal is a write-mostly log: one row per executed action with its
// outcome state, duration and produced artifact ids. It attaches to a
// session as a token recorder.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// Journal is a SQLite-backed token log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and initializes the schema.
func Open(path string) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tokens (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		session          TEXT NOT NULL,
		action_tag       TEXT NOT NULL,
		instance_name    TEXT NOT NULL,
		state            TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		artifact_ids     TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tokens_session ON tokens(session, id);
	CREATE INDEX IF NOT EXISTS idx_tokens_tag ON tokens(action_tag, state);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one token record. Implements session.TokenRecorder.
func (j *Journal) Record(rec session.TokenRecord) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		_, err := j.db.Exec(
			`INSERT INTO tokens (session, action_tag, instance_name, state, duration_seconds, artifact_ids, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionName, rec.ActionTag, rec.InstanceName, rec.State,
			rec.DurationSeconds, strings.Join(rec.ArtifactIDs, ","), now,
		)
		return err
	})
}

// List returns the records of one session in insertion order.
func (j *Journal) List(sessionName string) ([]session.TokenRecord, error) {
	rows, err := j.db.Query(
		`SELECT session, action_tag, instance_name, state, duration_seconds, artifact_ids
		 FROM tokens WHERE session = ? ORDER BY id`, sessionName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.TokenRecord
	for rows.Next() {
		var rec session.TokenRecord
		var ids string
		if err := rows.Scan(&rec.SessionName, &rec.ActionTag, &rec.InstanceName, &rec.State, &rec.DurationSeconds, &ids); err != nil {
			return nil, err
		}
		if ids != "" {
			rec.ArtifactIDs = strings.Split(ids, ",")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByState returns how many records of one session are in each state.
func (j *Journal) CountByState(sessionName string) (map[string]int64, error) {
	rows, err := j.db.Query(
		`SELECT state, COUNT(*) FROM tokens WHERE session = ? GROUP BY state`, sessionName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}

// Compile-time check that *Journal implements session.TokenRecorder.
var _ session.TokenRecorder = (*Journal)(nil)
