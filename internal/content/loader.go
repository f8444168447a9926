package content

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/kinderquiz/internal/model"
)

//go:embed data/*.json
var embedded embed.FS

// Embedded returns the built-in content tables.
func Embedded() (*Static, error) {
	return LoadFS(embedded, "data")
}

var packExtensions = []string{".json", ".yaml", ".yml"}

// LoadFS reads one pack file per subject from dir, named after the subject
// (vocabulary.json, arithmetic.yaml, ...). A subject without a file gets an
// empty pool.
func LoadFS(fsys fs.FS, dir string) (*Static, error) {
	pools := make(map[model.Subject]model.ContentPool, len(model.Subjects))
	for _, subj := range model.Subjects {
		p, name, err := readSubject(fsys, dir, subj)
		if err != nil {
			return nil, err
		}
		if name == "" {
			slog.Warn("no content pack for subject", "subject", subj, "dir", dir)
			continue
		}
		slog.Debug("loaded content pack", "file", name, "lessons", len(p.Lessons), "tests", len(p.Tests))
		pools[subj] = p
	}
	return NewStatic(pools)
}

func readSubject(fsys fs.FS, dir string, subj model.Subject) (model.ContentPool, string, error) {
	for _, ext := range packExtensions {
		name := path.Join(dir, string(subj)+ext)
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return model.ContentPool{}, "", fmt.Errorf("read %s: %w", name, err)
		}
		p, err := DecodePack(name, data)
		if err != nil {
			return model.ContentPool{}, "", err
		}
		return p, name, nil
	}
	return model.ContentPool{}, "", nil
}

// DecodePack parses a JSON or YAML pack; the format follows the file extension.
func DecodePack(name string, data []byte) (model.ContentPool, error) {
	var p model.ContentPool
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return p, fmt.Errorf("parse %s: unsupported pack format", name)
	}
	return p, nil
}

// SubjectFromFilename derives the subject a pack file belongs to.
func SubjectFromFilename(name string) (model.Subject, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return model.ParseSubject(strings.TrimSuffix(base, path.Ext(base)))
}
