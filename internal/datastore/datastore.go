// Package datastore owns the connect/initialize handshake with the
// platform's structured data store. The orchestrator only needs to know
// the store exists and is reachable before services start; schema beyond
// the version marker belongs to the backend application.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const versionSchema = `
CREATE TABLE IF NOT EXISTS _schema_versions (
	component TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)
`

// Initialize opens the data store at path, creating the file and the
// schema-version table if needed, and verifies the connection with a ping.
func Initialize(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data store directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return fmt.Errorf("connecting to data store %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(versionSchema); err != nil {
		return fmt.Errorf("initializing data store schema: %w", err)
	}
	return nil
}
