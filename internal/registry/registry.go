// Package registry persists the pids of orchestrator-launched processes so
// a later stop or status invocation can find them. It is backed by a small
// sqlite database: one row per service, writes transactional per key.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Lookup when no pid is recorded for a service.
var ErrNotFound = errors.New("no process recorded for service")

const schema = `
CREATE TABLE IF NOT EXISTS processes (
	service TEXT PRIMARY KEY,
	pid INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL
)
`

const recordSQL = `
INSERT INTO processes (service, pid, started_at)
VALUES ($1, $2, $3)
ON CONFLICT (service)
DO UPDATE SET pid = $2, started_at = $3
`

// Entry is one recorded service → pid mapping.
type Entry struct {
	Service   string    `db:"service"`
	PID       int       `db:"pid"`
	StartedAt time.Time `db:"started_at"`
}

// Registry is a durable service name → pid store.
type Registry struct {
	db *sqlx.DB
}

// Open connects to the registry database at path, creating the file and
// its schema as needed.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Record stores pid for service, overwriting any prior entry. It does not
// attempt to stop the old pid; callers stop before they start.
func (r *Registry) Record(service string, pid int) error {
	if _, err := r.db.Exec(recordSQL, service, pid, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording pid %d for %s: %w", pid, service, err)
	}
	return nil
}

// Lookup returns the recorded pid for service, or ErrNotFound.
func (r *Registry) Lookup(service string) (int, error) {
	var pid int
	err := r.db.Get(&pid, "SELECT pid FROM processes WHERE service = $1", service)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up %s: %w", service, err)
	}
	return pid, nil
}

// Clear removes the entry for service. Clearing an absent entry is not an
// error.
func (r *Registry) Clear(service string) error {
	if _, err := r.db.Exec("DELETE FROM processes WHERE service = $1", service); err != nil {
		return fmt.Errorf("clearing %s: %w", service, err)
	}
	return nil
}

// All returns every recorded entry ordered by service name.
func (r *Registry) All() ([]Entry, error) {
	var entries []Entry
	if err := r.db.Select(&entries, "SELECT service, pid, started_at FROM processes ORDER BY service"); err != nil {
		return nil, fmt.Errorf("listing registry entries: %w", err)
	}
	return entries, nil
}
