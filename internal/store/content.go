package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// ReplacePool swaps the stored content of subject for pool in one transaction.
func (s *Store) ReplacePool(subject model.Subject, pool model.ContentPool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replacePool(tx, subject, pool); err != nil {
		return err
	}
	return tx.Commit()
}

func replacePool(tx *sql.Tx, subject model.Subject, pool model.ContentPool) error {
	if _, err := tx.Exec(`DELETE FROM lesson_items WHERE subject = ?`, subject); err != nil {
		return fmt.Errorf("clear lessons: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM test_questions WHERE subject = ?`, subject); err != nil {
		return fmt.Errorf("clear tests: %w", err)
	}

	for i, it := range pool.Lessons {
		_, err := tx.Exec(
			`INSERT INTO lesson_items (subject, position, emoji, category, word, translation, title, content, char, pinyin, meaning)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			subject, i, it.Emoji, it.Category, it.Word, it.Translation, it.Title, it.Content, it.Char, it.Pinyin, it.Meaning,
		)
		if err != nil {
			return fmt.Errorf("insert lesson %d: %w", i, err)
		}
	}
	for i, q := range pool.Tests {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options of test %d: %w", i, err)
		}
		_, err = tx.Exec(
			`INSERT INTO test_questions (subject, position, prompt, options, correct_index) VALUES (?, ?, ?, ?, ?)`,
			subject, i, q.Prompt, string(opts), q.CorrectIndex,
		)
		if err != nil {
			return fmt.Errorf("insert test %d: %w", i, err)
		}
	}
	return nil
}

// LoadPool returns the stored content of subject in import order.
func (s *Store) LoadPool(subject model.Subject) (model.ContentPool, error) {
	var p model.ContentPool

	rows, err := s.db.Query(
		`SELECT emoji, category, word, translation, title, content, char, pinyin, meaning
		 FROM lesson_items WHERE subject = ? ORDER BY position`, subject)
	if err != nil {
		return p, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.LessonItem
		if err := rows.Scan(&it.Emoji, &it.Category, &it.Word, &it.Translation, &it.Title, &it.Content, &it.Char, &it.Pinyin, &it.Meaning); err != nil {
			return p, err
		}
		p.Lessons = append(p.Lessons, it)
	}
	if err := rows.Err(); err != nil {
		return p, err
	}

	qrows, err := s.db.Query(
		`SELECT prompt, options, correct_index FROM test_questions WHERE subject = ? ORDER BY position`, subject)
	if err != nil {
		return p, err
	}
	defer qrows.Close()
	for qrows.Next() {
		var q model.TestQuestion
		var opts string
		if err := qrows.Scan(&q.Prompt, &opts, &q.CorrectIndex); err != nil {
			return p, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return p, fmt.Errorf("decode options: %w", err)
		}
		p.Tests = append(p.Tests, q)
	}
	return p, qrows.Err()
}

// LoadPools returns the stored content of every subject that has any.
func (s *Store) LoadPools() (map[model.Subject]model.ContentPool, error) {
	pools := make(map[model.Subject]model.ContentPool, len(model.Subjects))
	for _, subj := range model.Subjects {
		p, err := s.LoadPool(subj)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", subj, err)
		}
		if len(p.Lessons) == 0 && len(p.Tests) == 0 {
			continue
		}
		pools[subj] = p
	}
	return pools, nil
}

// Repository loads the stored content into a read-only repository.
// Subjects missing from the database fall back to fallback's pools when
// fallback is non-nil.
func (s *Store) Repository(fallback content.Repository) (*content.Static, error) {
	pools, err := s.LoadPools()
	if err != nil {
		return nil, err
	}
	if fallback != nil {
		for _, subj := range model.Subjects {
			if _, ok := pools[subj]; ok {
				continue
			}
			p, err := fallback.Pool(subj)
			if err != nil {
				return nil, err
			}
			pools[subj] = p
		}
	}
	return content.NewStatic(pools)
}

// CountBySubject returns the number of stored lessons and tests per subject.
func (s *Store) CountBySubject() (map[model.Subject][2]int, error) {
	out := make(map[model.Subject][2]int)
	for _, q := range []struct {
		query string
		slot  int
	}{
		{`SELECT subject, COUNT(*) FROM lesson_items GROUP BY subject`, 0},
		{`SELECT subject, COUNT(*) FROM test_questions GROUP BY subject`, 1},
	} {
		rows, err := s.db.Query(q.query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var subj model.Subject
			var n int
			if err := rows.Scan(&subj, &n); err != nil {
				rows.Close()
				return nil, err
			}
			c := out[subj]
			c[q.slot] = n
			out[subj] = c
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
