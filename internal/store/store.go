// Package store persists users, request records, video usage and the
// ban/block lists in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id INTEGER UNIQUE,
	username TEXT,
	first_name TEXT,
	last_name TEXT,
	created_at TEXT,
	last_seen_at TEXT,
	total_requests INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	url TEXT,
	domain TEXT,
	action_type TEXT,
	quality TEXT,
	status TEXT,
	error TEXT,
	created_at TEXT,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_domain ON requests(domain);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);

CREATE TABLE IF NOT EXISTS banned_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id INTEGER UNIQUE,
	reason TEXT,
	banned_at TEXT
);

CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	url TEXT UNIQUE,
	domain TEXT,
	first_seen_at TEXT,
	last_used_at TEXT,
	times_used INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS blocked_domains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT UNIQUE,
	reason TEXT,
	added_at TEXT
);
`

// Store is a SQLite-backed implementation of every durable operation.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers and keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// WAL is not available everywhere (e.g. some network filesystems); not critical.
	_, _ = db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`)

	if _, err := db.ExecContext(ctx, `
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
