// Package store keeps imported content packs in a SQLite database so a
// classroom install can carry its own lessons and questions alongside the
// built-in ones.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lesson_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		position INTEGER NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		word TEXT NOT NULL DEFAULT '',
		translation TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		char TEXT NOT NULL DEFAULT '',
		pinyin TEXT NOT NULL DEFAULT '',
		meaning TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS test_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		position INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_index INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lesson_items_subject ON lesson_items(subject, position);
	CREATE INDEX IF NOT EXISTS idx_test_questions_subject ON test_questions(subject, position);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		subject TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
