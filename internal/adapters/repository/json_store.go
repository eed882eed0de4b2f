package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/pkg/logger"
)

// JSONStore keeps the catalog in a single JSON document on disk.
type JSONStore struct {
	path string
	cfg  config

	mu     sync.Mutex
	closed bool
}

// NewJSONStore returns a store writing to path. The file is created on the
// first Save.
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("json store: path is required")
	}
	return &JSONStore{path: filepath.Clean(path), cfg: buildConfig(opts)}, nil
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context) ([]model.Project, error) {
	defer observe("load", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var projects []model.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		s.cfg.log.Warn(ctx, "undecodable project file", logger.String("path", s.path), logger.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return projects, nil
}

// Save implements Store. The snapshot is written to a temporary sibling
// file and renamed over the previous one.
func (s *JSONStore) Save(ctx context.Context, projects []model.Project) error {
	defer observe("save", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if projects == nil {
		projects = []model.Project{}
	}
	var (
		data []byte
		err  error
	)
	if s.cfg.indent == "" {
		data, err = json.Marshal(projects)
	} else {
		data, err = json.MarshalIndent(projects, "", s.cfg.indent)
	}
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	s.cfg.log.Debug(ctx, "projects saved", logger.String("path", s.path), logger.Int("count", len(projects)))
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
