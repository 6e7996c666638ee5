// Package index provides the SQLite-backed read model for the knowledge
// graph. Each pipeline run replaces the whole snapshot in one transaction;
// queries between runs are served from the last committed snapshot.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'draft',
	tags         TEXT NOT NULL DEFAULT '[]',
	golden_paths TEXT NOT NULL DEFAULT '[]',
	sources      TEXT NOT NULL DEFAULT '[]',
	file_path    TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	indexed_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source_id       TEXT NOT NULL,
	target_raw      TEXT NOT NULL,
	type            TEXT NOT NULL,
	line            INTEGER NOT NULL DEFAULT 0,
	context         TEXT NOT NULL DEFAULT '',
	target_id       TEXT NOT NULL DEFAULT '',
	target_resolved TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id);
`

// DB wraps a sql.DB with graph-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
