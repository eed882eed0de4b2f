package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bjjscore/internal/adapters/repository"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
)

// Catalog is the ordered, persisted list of projects plus the selected one.
// The in-memory list is authoritative; every change is saved as a whole
// snapshot and save failures are returned after the change is applied.
type Catalog struct {
	store  repository.Store
	logger logger.Logger

	// saveMu orders snapshots so an older one never lands after a newer one.
	saveMu   sync.Mutex
	mu       sync.RWMutex
	projects []model.Project
	current  uuid.UUID
}

// NewCatalog returns an empty catalog backed by store. Call Load before use.
func NewCatalog(store repository.Store, l logger.Logger) *Catalog {
	if l == nil {
		l = logger.NewNop()
	}
	return &Catalog{store: store, logger: l.Named("catalog")}
}

// Load reads the store. A missing store seeds one new project, and so does
// a corrupt one. The first project becomes current.
func (c *Catalog) Load(ctx context.Context) error {
	projects, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		projects = nil
	case errors.Is(err, repository.ErrCorrupt):
		c.logger.Warn(ctx, "project store unreadable, starting fresh", logger.Error(err))
		metrics.RecordErrorByComponent("catalog", "corrupt")
		projects = nil
	case err != nil:
		return err
	}
	if len(projects) == 0 {
		projects = []model.Project{model.NewProject()}
	}

	c.mu.Lock()
	c.projects = projects
	c.current = projects[0].ID
	c.mu.Unlock()

	metrics.UpdateProjectsTotal(len(projects))
	c.logger.Info(ctx, "catalog loaded", logger.Int("projects", len(projects)))
	return nil
}

// List returns copies of every project in catalog order.
func (c *Catalog) List() []model.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Project, len(c.projects))
	for i, p := range c.projects {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the project with id.
func (c *Catalog) Get(id uuid.UUID) (model.Project, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return model.Project{}, ErrProjectNotFound
	}
	return c.projects[i].Clone(), nil
}

// Current returns a copy of the selected project.
func (c *Catalog) Current() model.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(c.current); i >= 0 {
		return c.projects[i].Clone()
	}
	return model.Project{}
}

// Create inserts a new project at the front and selects it.
func (c *Catalog) Create(ctx context.Context, title string) (model.Project, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	p := model.NewProject()
	if title != "" {
		p.Title = title
	}
	c.mu.Lock()
	c.projects = slices.Insert(c.projects, 0, p)
	c.current = p.ID
	snapshot := c.snapshot()
	c.mu.Unlock()

	return p.Clone(), c.save(ctx, snapshot)
}

// Update replaces the project with the same id, appending it when unknown.
// The selection does not change.
func (c *Catalog) Update(ctx context.Context, p model.Project) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	p = p.Clone()
	p.UpdatedAt = time.Now()
	c.mu.Lock()
	if i := c.indexOf(p.ID); i >= 0 {
		c.projects[i] = p
	} else {
		c.projects = append(c.projects, p)
	}
	snapshot := c.snapshot()
	c.mu.Unlock()

	return c.save(ctx, snapshot)
}

// Modify applies fn to the stored project with id and saves the result.
func (c *Catalog) Modify(ctx context.Context, id uuid.UUID, fn func(*model.Project)) (model.Project, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return model.Project{}, ErrProjectNotFound
	}
	p := c.projects[i].Clone()
	fn(&p)
	p.ID = id
	p.UpdatedAt = time.Now()
	c.projects[i] = p
	snapshot := c.snapshot()
	c.mu.Unlock()

	return p.Clone(), c.save(ctx, snapshot)
}

// Delete removes the project with id. Deleting the selected project selects
// the first remaining one; deleting the last project seeds a new one.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrProjectNotFound
	}
	c.projects = slices.Delete(c.projects, i, i+1)
	if len(c.projects) == 0 {
		c.projects = []model.Project{model.NewProject()}
	}
	if c.current == id {
		c.current = c.projects[0].ID
	}
	snapshot := c.snapshot()
	c.mu.Unlock()

	return c.save(ctx, snapshot)
}

// Select makes the project with id current.
func (c *Catalog) Select(id uuid.UUID) (model.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return model.Project{}, ErrProjectNotFound
	}
	c.current = id
	return c.projects[i].Clone(), nil
}

// Len returns the number of projects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.projects)
}

func (c *Catalog) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c.projects, func(p model.Project) bool { return p.ID == id })
}

// snapshot must be called with mu held.
func (c *Catalog) snapshot() []model.Project {
	out := make([]model.Project, len(c.projects))
	for i, p := range c.projects {
		out[i] = p.Clone()
	}
	return out
}

func (c *Catalog) save(ctx context.Context, projects []model.Project) error {
	metrics.UpdateProjectsTotal(len(projects))
	if err := c.store.Save(ctx, projects); err != nil {
		metrics.RecordErrorByComponent("catalog", "save")
		c.logger.Error(ctx, "saving projects failed", logger.Error(err))
		return err
	}
	return nil
}
