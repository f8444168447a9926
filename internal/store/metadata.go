package store

import (
	"database/sql"
	"time"
)

const lastImportKey = "last_import"

// SetMetadata upserts a key-value pair in the content_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO content_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM content_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// LastImport reports when a pack was last imported; the zero time means never.
func (s *Store) LastImport() (time.Time, error) {
	v, err := s.GetMetadata(lastImportKey)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Store) touchLastImport(t time.Time) error {
	return s.SetMetadata(lastImportKey, t.UTC().Format(time.RFC3339))
}
