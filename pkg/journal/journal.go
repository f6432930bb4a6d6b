// Package journal persists per-send outcomes to a local SQLite
// database so a long run leaves an auditable history behind.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/mavrell/drumbeat/pkg/agent"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	at    TIMESTAMP NOT NULL,
	agent INTEGER NOT NULL,
	kind  TEXT NOT NULL,
	idx   INTEGER NOT NULL,
	conn  TEXT NOT NULL DEFAULT '',
	err   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
`

// Entry is one recorded runtime event
type Entry struct {
	ID    int64
	At    time.Time
	Agent int
	Kind  string
	Index int
	Conn  string
	Err   string
}

// Journal records agent events into SQLite
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// Open opens (creating if needed) the journal database at path
func Open(path string, logger zerolog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{
		db:     db,
		logger: logger.With().Str("component", "journal").Logger(),
	}, nil
}

// Record persists one event. Recording is best-effort: a failure is
// logged and never surfaces into the send loop.
func (j *Journal) Record(ev agent.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO events (at, agent, kind, idx, conn, err) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.At, ev.Agent, string(ev.Kind), ev.Index, ev.Conn, ev.Err,
	)
	if err != nil {
		j.logger.Warn().Err(err).Msg("Failed to record event")
	}
}

// Sink returns an agent.Sink backed by this journal
func (j *Journal) Sink() agent.Sink {
	return agent.SinkFunc(j.Record)
}

// Recent returns the most recent entries, newest first
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.Query(
		`SELECT id, at, agent, kind, idx, conn, err FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.At, &e.Agent, &e.Kind, &e.Index, &e.Conn, &e.Err); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Counts returns per-kind event totals
func (j *Journal) Counts() (map[string]int64, error) {
	rows, err := j.db.Query(`SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan journal count: %w", err)
		}
		counts[kind] = n
	}

	return counts, rows.Err()
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}
