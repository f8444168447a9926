// Package content supplies the per-subject lesson and test pools.
//
// Pools are loaded once, validated, and never modified afterwards. The
// default tables are embedded in the binary; alternative packs can be read
// from a directory of JSON or YAML files or from a SQLite content database
// built by the import command.
package content

import (
	"fmt"

	"github.com/pavelanni/kinderquiz/internal/model"
)

// Repository supplies the immutable content pool of each subject.
// Implementations should return pools that pass Validate; the quiz engine
// checks the questions it draws and refuses to start on invalid ones.
type Repository interface {
	Pool(subject model.Subject) (model.ContentPool, error)
}

// Static is an in-memory Repository. It is safe for concurrent use because
// nothing mutates it after construction.
type Static struct {
	pools map[model.Subject]model.ContentPool
}

// NewStatic validates pools and returns a repository holding private copies.
// Subjects missing from pools get an empty pool.
func NewStatic(pools map[model.Subject]model.ContentPool) (*Static, error) {
	s := &Static{pools: make(map[model.Subject]model.ContentPool, len(model.Subjects))}
	for subj := range pools {
		if !subj.Valid() {
			return nil, fmt.Errorf("content: %w: %q", model.ErrUnknownSubject, subj)
		}
	}
	for _, subj := range model.Subjects {
		p := pools[subj]
		if err := Validate(subj, p); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		s.pools[subj] = clonePool(p)
	}
	return s, nil
}

// Pool returns a copy of the subject's pool.
func (s *Static) Pool(subject model.Subject) (model.ContentPool, error) {
	p, ok := s.pools[subject]
	if !ok {
		return model.ContentPool{}, fmt.Errorf("%w: %q", model.ErrUnknownSubject, subject)
	}
	return clonePool(p), nil
}

// Counts reports lesson and test counts per subject.
func (s *Static) Counts() map[model.Subject][2]int {
	out := make(map[model.Subject][2]int, len(s.pools))
	for subj, p := range s.pools {
		out[subj] = [2]int{len(p.Lessons), len(p.Tests)}
	}
	return out
}

func clonePool(p model.ContentPool) model.ContentPool {
	out := model.ContentPool{
		Lessons: make([]model.LessonItem, len(p.Lessons)),
		Tests:   make([]model.TestQuestion, len(p.Tests)),
	}
	copy(out.Lessons, p.Lessons)
	for i, q := range p.Tests {
		q.Options = append([]string(nil), q.Options...)
		out.Tests[i] = q
	}
	return out
}
