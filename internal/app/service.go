// Package service wires the project catalog, the score timeline and the
// export orchestrator into the operations exposed by the HTTP API and CLI.
package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/timeline"
	"github.com/okian/bjjscore/internal/domain/types"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/logger"
)

// Exporter runs exports for the service.
type Exporter interface {
	Start(ctx context.Context, req export.Request) (*export.Run, bool)
	Cancel() bool
	Status() export.Status
	Close() error
}

// Service serializes access to the timeline engine and keeps it in step with
// the selected project.
type Service struct {
	mu sync.Mutex

	catalog  *Catalog
	engine   *timeline.Engine
	exporter Exporter
	resolver export.Resolver
	opener   composition.Opener

	historyCapacity int
	logger          logger.Logger

	started          bool
	configuredID     uuid.UUID
	configuredHandle []byte
}

// New constructs a service. Start must be called before use.
func New(catalog *Catalog, exporter Exporter, resolver export.Resolver, opts ...Option) *Service {
	s := &Service{
		catalog:         catalog,
		exporter:        exporter,
		resolver:        resolver,
		historyCapacity: timeline.DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.engine = timeline.New(
		timeline.WithHistoryCapacity(s.historyCapacity),
		timeline.WithLogger(s.logger.Named("timeline")),
	)
	return s
}

// Start loads the catalog and configures the timeline for the selected
// project.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.catalog.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.sync(ctx)
	s.started = true
	s.logger.Info(ctx, "scoreboard service started", logger.Int("projects", s.catalog.Len()))
	return nil
}

// Stop cancels any running export and waits for background work.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	err := s.exporter.Close()
	s.logger.Info(context.Background(), "scoreboard service stopped")
	return err
}

// Projects returns every project in catalog order.
func (s *Service) Projects() []model.Project { return s.catalog.List() }

// Project returns the project with id.
func (s *Service) Project(id uuid.UUID) (model.Project, error) { return s.catalog.Get(id) }

// CurrentProject returns the selected project.
func (s *Service) CurrentProject() model.Project { return s.catalog.Current() }

// CreateProject adds and selects a new project.
func (s *Service) CreateProject(ctx context.Context, title string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Create(ctx, title)
	s.sync(ctx)
	return p, err
}

// UpdateProject applies patch to the project with id.
func (s *Service) UpdateProject(ctx context.Context, id uuid.UUID, patch types.ProjectPatch) (model.Project, error) {
	if err := patch.Validate(); err != nil {
		return model.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Modify(ctx, id, patch.Apply)
	if err != nil && p.ID == uuid.Nil {
		return p, err
	}
	s.sync(ctx)
	return p, err
}

// DeleteProject removes the project with id.
func (s *Service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.catalog.Delete(ctx, id)
	s.sync(ctx)
	return err
}

// SelectProject makes the project with id current.
func (s *Service) SelectProject(ctx context.Context, id uuid.UUID) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Select(id)
	if err != nil {
		return p, err
	}
	s.sync(ctx)
	return p, nil
}

// ImportSource points the selected project at the video file at path. The
// previous source's events and notes are dropped. A default title is
// replaced by the file name without extension.
func (s *Service) ImportSource(ctx context.Context, path string) (model.Project, error) {
	h, err := s.resolver.Create(ctx, path)
	if err != nil {
		return model.Project{}, err
	}
	duration := -1.0
	if s.opener != nil {
		if access, rerr := s.resolver.Resolve(ctx, h); rerr == nil {
			if asset, oerr := s.opener.Open(ctx, access.Path); oerr == nil {
				duration = asset.Duration
			} else {
				s.logger.Warn(ctx, "probing source failed", logger.String("path", path), logger.Error(oerr))
			}
			access.Release()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.catalog.Modify(ctx, s.catalog.Current().ID, func(p *model.Project) {
		name := filepath.Base(path)
		p.SourceHandle = slices.Clone(h)
		p.SourceFilename = name
		p.Duration = max(duration, 0)
		p.Events = []model.ScoreEvent{}
		p.Notes = []model.Note{}
		if p.Title == model.DefaultProjectTitle {
			p.Title = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if p.Metadata.Title == "" {
			p.Metadata.Title = p.Title
		}
	})
	if err != nil && p.ID == uuid.Nil {
		return p, err
	}
	s.reconfigure(ctx, s.catalog.Current())
	return p, err
}

// Timeline returns a snapshot of the active timeline.
func (s *Service) Timeline() types.TimelineView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// AddEvent validates and records a scoring event. A missing id or creation
// instant is filled in.
func (s *Service) AddEvent(ctx context.Context, ev model.ScoreEvent) (model.ScoreEvent, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if err := ev.Validate(); err != nil {
		return model.ScoreEvent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.AddEvent(ev)
	return ev, s.persist(ctx)
}

// UpdateEvent replaces the event with the same id. A zero creation instant
// keeps the stored one.
func (s *Service) UpdateEvent(ctx context.Context, ev model.ScoreEvent) (model.ScoreEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.engine.Event(ev.ID)
	if !ok {
		return model.ScoreEvent{}, ErrEventNotFound
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = old.CreatedAt
	}
	if err := ev.Validate(); err != nil {
		return model.ScoreEvent{}, err
	}
	s.engine.UpdateEvent(ev)
	return ev, s.persist(ctx)
}

// RemoveEvent deletes the event with id.
func (s *Service) RemoveEvent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.RemoveEvent(id) {
		return ErrEventNotFound
	}
	return s.persist(ctx)
}

// Undo reverts the last event mutation. It reports whether anything changed.
func (s *Service) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.Undo() {
		return false, nil
	}
	return true, s.persist(ctx)
}

// Redo reapplies the last undone mutation. It reports whether anything
// changed.
func (s *Service) Redo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.Redo() {
		return false, nil
	}
	return true, s.persist(ctx)
}

// ScoreAt moves the playhead to t and returns the score there.
func (s *Service) ScoreAt(t float64) model.ScoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.UpdateCurrentScore(t)
	return s.engine.CurrentScore()
}

// AddNote records a note. A missing id is filled in.
func (s *Service) AddNote(ctx context.Context, n model.Note) (model.Note, error) {
	if n.Timestamp < 0 {
		return model.Note{}, fmt.Errorf("%w: negative timestamp %v", model.ErrInvalid, n.Timestamp)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.AddNote(n)
	return n, s.persist(ctx)
}

// RemoveNote deletes the note with id.
func (s *Service) RemoveNote(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.RemoveNote(id) {
		return ErrNoteNotFound
	}
	return s.persist(ctx)
}

// NotesNear returns notes within the default window of t.
func (s *Service) NotesNear(t float64) []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.NotesNear(t, timeline.DefaultNoteWindow)
}

// StartExport exports the selected project as it stands now.
func (s *Service) StartExport(ctx context.Context) (*export.Run, error) {
	s.mu.Lock()
	p := s.catalog.Current()
	req := export.Request{
		ProjectID: p.ID,
		Handle:    slices.Clone(p.SourceHandle),
		Composition: composition.Request{
			Events:      s.engine.Events(),
			Notes:       s.engine.Notes(),
			Metadata:    p.Metadata,
			Preferences: p.ExportPreferences,
		},
		OnRefresh: s.refreshHandle,
	}
	s.mu.Unlock()

	if len(req.Handle) == 0 {
		return nil, ErrNoSource
	}
	run, ok := s.exporter.Start(ctx, req)
	if !ok {
		return nil, ErrExportRunning
	}
	return run, nil
}

// CancelExport stops the running export. It reports whether one was running.
func (s *Service) CancelExport() bool { return s.exporter.Cancel() }

// ExportStatus returns the export state.
func (s *Service) ExportStatus() export.Status { return s.exporter.Status() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Stats{
		Started:   s.started,
		Projects:  s.catalog.Len(),
		ProjectID: s.configuredID.String(),
		Events:    len(s.engine.Events()),
		Notes:     len(s.engine.Notes()),
		CanUndo:   s.engine.CanUndo(),
		CanRedo:   s.engine.CanRedo(),
		Exporting: s.exporter.Status().State == export.StateExporting,
	}
}

// refreshHandle stores a re-minted handle for a project whose handle
// resolved stale. A changed handle on the configured project reconfigures
// the timeline.
func (s *Service) refreshHandle(projectID uuid.UUID, fresh handle.Handle) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.catalog.Modify(ctx, projectID, func(p *model.Project) {
		p.SourceHandle = slices.Clone(fresh)
	}); err != nil {
		s.logger.Warn(ctx, "storing refreshed handle failed", logger.String("project", projectID.String()), logger.Error(err))
		return
	}
	s.sync(ctx)
	s.logger.Info(ctx, "source handle refreshed", logger.String("project", projectID.String()))
}

// sync reconfigures the engine when the selected project or its source
// changed since the last configuration. Must be called with mu held.
func (s *Service) sync(ctx context.Context) {
	p := s.catalog.Current()
	if p.ID == s.configuredID && bytes.Equal(p.SourceHandle, s.configuredHandle) {
		return
	}
	s.reconfigure(ctx, p)
}

// reconfigure loads p into the engine, discarding history. Must be called
// with mu held.
func (s *Service) reconfigure(ctx context.Context, p model.Project) {
	s.engine.Configure(p.Events, p.Notes)
	s.configuredID = p.ID
	s.configuredHandle = slices.Clone(p.SourceHandle)
	s.logger.Debug(ctx, "timeline reconfigured", logger.String("project", p.ID.String()))
}

// persist writes the engine content back to the configured project. Must be
// called with mu held.
func (s *Service) persist(ctx context.Context) error {
	events, notes := s.engine.Events(), s.engine.Notes()
	_, err := s.catalog.Modify(ctx, s.configuredID, func(p *model.Project) {
		p.Events = events
		p.Notes = notes
	})
	return err
}

// view must be called with mu held.
func (s *Service) view() types.TimelineView {
	return types.TimelineView{
		ProjectID:    s.configuredID,
		Events:       s.engine.Events(),
		Notes:        s.engine.Notes(),
		CurrentScore: s.engine.CurrentScore(),
		CanUndo:      s.engine.CanUndo(),
		CanRedo:      s.engine.CanRedo(),
	}
}
