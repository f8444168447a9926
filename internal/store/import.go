package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// ImportResult describes one pack file handled by ImportPack.
type ImportResult struct {
	Path    string
	Subject model.Subject
	Lessons int
	Tests   int
	Skipped bool
}

// GetImportedFileHash returns the hash recorded for path, or "" if the file
// was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the hash of an imported file.
func (s *Store) SetImportedFileHash(path, hash string, subject model.Subject) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash, subject, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, subject = excluded.subject, imported_at = excluded.imported_at`,
		path, hash, subject, time.Now().UTC(),
	)
	return err
}

// ImportPack loads a JSON or YAML pack file and replaces its subject's
// stored content. The subject comes from the file name. A file whose
// contents did not change since the last import is skipped.
func (s *Store) ImportPack(path string) (ImportResult, error) {
	res := ImportResult{Path: path}

	subject, err := content.SubjectFromFilename(path)
	if err != nil {
		return res, fmt.Errorf("import %s: %w", path, err)
	}
	res.Subject = subject

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	hash := sha256sum(data)
	storedHash, err := s.GetImportedFileHash(key)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("content pack unchanged, skipping", "path", path)
		res.Skipped = true
		return res, nil
	}

	pool, err := content.DecodePack(path, data)
	if err != nil {
		return res, err
	}
	if err := content.Validate(subject, pool); err != nil {
		return res, fmt.Errorf("import %s: %w", path, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()
	if err := replacePool(tx, subject, pool); err != nil {
		return res, fmt.Errorf("import %s: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}

	if err := s.SetImportedFileHash(key, hash, subject); err != nil {
		return res, fmt.Errorf("record import for %s: %w", path, err)
	}
	if err := s.touchLastImport(time.Now()); err != nil {
		return res, fmt.Errorf("record import time: %w", err)
	}

	res.Lessons, res.Tests = len(pool.Lessons), len(pool.Tests)
	if storedHash != "" {
		slog.Info("content pack changed, replaced subject content", "path", path, "subject", subject)
	}
	slog.Info("imported content pack",
		"path", path,
		"subject", subject,
		"lessons", res.Lessons,
		"tests", res.Tests)
	return res, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
