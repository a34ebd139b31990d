package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// migration is a single schema change, applied in its own transaction.
type migration struct {
	version int
	up      func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version: 1,
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE classifications (
					id         TEXT PRIMARY KEY,
					input      TEXT NOT NULL,
					intent     TEXT NOT NULL DEFAULT '',
					params     TEXT NOT NULL DEFAULT '{}',
					error_kind TEXT NOT NULL DEFAULT '',
					error      TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				);
				CREATE INDEX idx_classifications_created ON classifications (created_at DESC);
			`)
			return err
		},
	},
	{
		version: 2,
		up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE contacts (
					name        TEXT PRIMARY KEY COLLATE NOCASE,
					requests    INTEGER NOT NULL DEFAULT 0,
					last_intent TEXT NOT NULL DEFAULT '',
					first_seen  TEXT NOT NULL,
					last_seen   TEXT NOT NULL
				);
			`)
			return err
		},
	},
}

// runMigrations creates the schema_version table if needed and applies pending migrations.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := db.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&current); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema version: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (0)"); err != nil {
			return fmt.Errorf("insert initial schema version: %w", err)
		}
		current = 0
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update schema version to %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
