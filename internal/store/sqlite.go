// Package store persists classification history and the contacts that
// actionable requests mention.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shahar-caura/relay/internal/intent"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Record is one stored classification. Intent is empty when the call failed.
type Record struct {
	ID        string        `json:"id"`
	Input     string        `json:"input"`
	Intent    intent.Intent `json:"intent,omitempty"`
	Params    intent.Params `json:"params,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Contact is a recipient seen in at least one successful classification.
type Contact struct {
	Name       string        `json:"name"`
	Requests   int           `json:"requests"`
	LastIntent intent.Intent `json:"last_intent"`
	FirstSeen  time.Time     `json:"first_seen"`
	LastSeen   time.Time     `json:"last_seen"`
}

// SQLiteStore is a classification history backed by SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dbPath, enables WAL mode, and
// runs any pending schema migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Record stores the outcome of one classification and, when the result names
// a recipient, bumps that contact. Its signature matches agent.Hook.
func (s *SQLiteStore) Record(ctx context.Context, input string, res *intent.Result, cerr error) error {
	rec := Record{
		ID:        uuid.NewString(),
		Input:     input,
		CreatedAt: s.now().UTC(),
	}
	if res != nil {
		rec.Intent = res.Intent
		rec.Params = res.Params
	}
	if cerr != nil {
		rec.ErrorKind = intent.KindOf(cerr)
		rec.Error = cerr.Error()
	}

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("store: encoding params: %w", err)
	}
	if rec.Params == nil {
		params = []byte("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO classifications (id, input, intent, params, error_kind, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Input,
		string(rec.Intent),
		string(params),
		rec.ErrorKind,
		rec.Error,
		rec.CreatedAt.Format(timeFormat),
	); err != nil {
		return fmt.Errorf("store: insert classification: %w", err)
	}

	if res != nil {
		if name, ok := res.Params.Recipient(); ok && strings.TrimSpace(name) != "" {
			if err := upsertContact(ctx, tx, strings.TrimSpace(name), res.Intent, rec.CreatedAt); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func upsertContact(ctx context.Context, tx *sql.Tx, name string, i intent.Intent, seen time.Time) error {
	ts := seen.Format(timeFormat)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contacts (name, requests, last_intent, first_seen, last_seen)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			requests = requests + 1,
			last_intent = excluded.last_intent,
			last_seen = excluded.last_seen`,
		name, string(i), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("store: upsert contact %q: %w", name, err)
	}
	return nil
}

// List returns up to limit records, newest first. limit is clamped to 1..MaxLimit.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	limit = ClampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input, intent, params, error_kind, error, created_at
		FROM classifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query classifications: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var token, params, created string
		if err := rows.Scan(&r.ID, &r.Input, &token, &params, &r.ErrorKind, &r.Error, &created); err != nil {
			return nil, fmt.Errorf("store: scan classification row: %w", err)
		}
		r.Intent = intent.Intent(token)
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("store: decoding params of %s: %w", r.ID, err)
		}
		if len(r.Params) == 0 {
			r.Params = nil
		}
		r.CreatedAt, _ = time.Parse(timeFormat, created)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate classification rows: %w", err)
	}

	return records, nil
}

// Contacts returns every known contact, most recently seen first.
func (s *SQLiteStore) Contacts(ctx context.Context) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, requests, last_intent, first_seen, last_seen
		FROM contacts
		ORDER BY last_seen DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("store: query contacts: %w", err)
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		var c Contact
		var token, first, last string
		if err := rows.Scan(&c.Name, &c.Requests, &token, &first, &last); err != nil {
			return nil, fmt.Errorf("store: scan contact row: %w", err)
		}
		c.LastIntent = intent.Intent(token)
		c.FirstSeen, _ = time.Parse(timeFormat, first)
		c.LastSeen, _ = time.Parse(timeFormat, last)
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate contact rows: %w", err)
	}

	return contacts, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ClampLimit maps limit into 1..MaxLimit, using DefaultLimit for zero.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
