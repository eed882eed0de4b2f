package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/adapters/repository"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/export"
)

type memStore struct {
	mu       sync.Mutex
	projects []model.Project
	loadErr  error
	saveErr  error
	saves    int
}

func (m *memStore) Load(context.Context) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.projects == nil {
		return nil, repository.ErrNotFound
	}
	return slices.Clone(m.projects), nil
}

func (m *memStore) Save(_ context.Context, projects []model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.projects = slices.Clone(projects)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) saved() []model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.projects)
}

type fakeResolver struct {
	stale bool
}

func (r *fakeResolver) Create(_ context.Context, path string) (handle.Handle, error) {
	if path == "" {
		return nil, handle.ErrUnresolvable
	}
	return handle.Handle("h:" + path), nil
}

func (r *fakeResolver) Resolve(_ context.Context, h handle.Handle) (*handle.Access, error) {
	if len(h) < 2 {
		return nil, handle.ErrEmptyHandle
	}
	return handle.NewAccess(string(h[2:]), r.stale, nil), nil
}

type fakeOpener struct {
	duration float64
	err      error
}

func (o *fakeOpener) Open(_ context.Context, path string) (*composition.Asset, error) {
	if o.err != nil {
		return nil, o.err
	}
	return &composition.Asset{Path: path, Duration: o.duration}, nil
}

type fakeExporter struct {
	mu       sync.Mutex
	running  bool
	requests []export.Request
	closed   bool
}

func (e *fakeExporter) Start(_ context.Context, req export.Request) (*export.Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.closed {
		return nil, false
	}
	e.running = true
	e.requests = append(e.requests, req)
	return &export.Run{}, true
}

func (e *fakeExporter) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.running
	e.running = false
	return was
}

func (e *fakeExporter) Status() export.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return export.Status{State: export.StateExporting}
	}
	return export.Status{State: export.StateIdle}
}

func (e *fakeExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.running = false
	return nil
}

func (e *fakeExporter) last() export.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[len(e.requests)-1]
}

var errDisk = errors.New("disk full")
