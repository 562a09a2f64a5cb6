package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gokatarajesh/quiz-pool/internal/pool"
	"github.com/gokatarajesh/quiz-pool/internal/question"
)

// File names inside the data directory.
const (
	MasterFile = "master_questions.json"
	ActiveFile = "active_pool.json"
	MetaFile   = "meta.json"
)

// FileStore keeps the master bank, active pool and policy as JSON files.
type FileStore struct {
	dir string
}

var (
	_ pool.QuestionStore = (*FileStore)(nil)
	_ pool.PoolStore     = (*FileStore)(nil)
)

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

type masterJSON struct {
	Questions []question.Question `json:"questions"`
}

// LoadQuestions reads {"questions": [...]} from the master bank file.
func (s *FileStore) LoadQuestions(ctx context.Context) ([]question.Question, error) {
	var master masterJSON
	if err := s.readJSON(ctx, MasterFile, &master); err != nil {
		return nil, err
	}
	return master.Questions, nil
}

// LoadPool reads the active pool file.
func (s *FileStore) LoadPool(ctx context.Context) (pool.Pool, error) {
	var p pool.Pool
	if err := s.readJSON(ctx, ActiveFile, &p); err != nil {
		return pool.Pool{}, err
	}
	return p, nil
}

// SavePool writes the pool to a temp file and renames it over the old one.
func (s *FileStore) SavePool(ctx context.Context, p pool.Pool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(s.dir, ActiveFile), p)
}

// LoadPolicy reads the meta file.
func (s *FileStore) LoadPolicy(ctx context.Context) (pool.PolicyOverrides, error) {
	var o pool.PolicyOverrides
	if err := s.readJSON(ctx, MetaFile, &o); err != nil {
		return pool.PolicyOverrides{}, err
	}
	return o, nil
}

// SaveQuestions replaces the master bank file.
func (s *FileStore) SaveQuestions(ctx context.Context, qs []question.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return writeJSONAtomic(filepath.Join(s.dir, MasterFile), masterJSON{Questions: qs})
}

func (s *FileStore) readJSON(ctx context.Context, name string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, pool.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}
