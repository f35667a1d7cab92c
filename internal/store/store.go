// Package store persists finished dictation sessions to SQLite so runs
// can be reviewed and the two pipelines compared after the fact.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one saved recording run.
type Session struct {
	ID         int64
	Pipeline   string
	Locale     string
	Transcript string
	StartedAt  time.Time
	EndedAt    time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "duoscribe", "history.sqlite")
}

// Open opens (creating if needed) the history database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pipeline TEXT NOT NULL,
			locale TEXT NOT NULL,
			transcript TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession records one finished session.
func (s *Store) SaveSession(pipeline, locale, transcript string, startedAt, endedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (pipeline, locale, transcript, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)
	`, pipeline, locale, transcript, startedAt.Unix(), endedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: insert session: %w", err)
	}
	return nil
}

// Recent returns the n most recent sessions, newest first.
func (s *Store) Recent(n int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, pipeline, locale, transcript, started_at, ended_at
		FROM sessions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var started, ended int64
		if err := rows.Scan(&sess.ID, &sess.Pipeline, &sess.Locale, &sess.Transcript, &started, &ended); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sess.StartedAt = time.Unix(started, 0)
		sess.EndedAt = time.Unix(ended, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
