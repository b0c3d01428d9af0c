// Package inmemory provides a map-backed storage.Driver for tests and
// throwaway local runs.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

type mappingKey struct {
	projectID string
	service   string
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map below
	mu sync.RWMutex

	// projects is keyed by project id
	projects map[string]*project.Project

	// slugs maps a slug to the owning project id
	slugs map[string]string

	mappings map[mappingKey]*project.Mapping
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		projects: make(map[string]*project.Project),
		slugs:    make(map[string]string),
		mappings: make(map[mappingKey]*project.Mapping),
	}
}

// CreateProject stores a new project.
func (d *Driver) CreateProject(_ context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[p.ID]; ok {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	if _, ok := d.slugs[p.Slug]; ok {
		return storage.ErrSlugConflict
	}

	d.projects[p.ID] = p.Clone()
	d.slugs[p.Slug] = p.ID
	return nil
}

// GetProject retrieves a project by id.
func (d *Driver) GetProject(_ context.Context, id string) (*project.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.projects[id]
	if !ok {
		return nil, storage.NotFoundError{Key: id}
	}
	return p.Clone(), nil
}

// GetProjectBySlug retrieves a project by slug.
func (d *Driver) GetProjectBySlug(_ context.Context, slug string) (*project.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.slugs[slug]
	if !ok {
		return nil, storage.NotFoundError{Key: slug}
	}
	return d.projects[id].Clone(), nil
}

// UpdateProject overwrites a stored project.
func (d *Driver) UpdateProject(_ context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("cannot store nil project")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.projects[p.ID]
	if !ok {
		return storage.NotFoundError{Key: p.ID}
	}
	if owner, ok := d.slugs[p.Slug]; ok && owner != p.ID {
		return storage.ErrSlugConflict
	}

	delete(d.slugs, existing.Slug)
	d.projects[p.ID] = p.Clone()
	d.slugs[p.Slug] = p.ID
	return nil
}

// DeleteProject removes a project and its mappings.
func (d *Driver) DeleteProject(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.projects[id]
	if !ok {
		return storage.NotFoundError{Key: id}
	}

	delete(d.slugs, p.Slug)
	delete(d.projects, id)
	for k := range d.mappings {
		if k.projectID == id {
			delete(d.mappings, k)
		}
	}
	return nil
}

// ListProjects returns all projects in display order.
func (d *Driver) ListProjects(_ context.Context) ([]*project.Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*project.Project, 0, len(d.projects))
	for _, p := range d.projects {
		out = append(out, p.Clone())
	}
	project.SortByPosition(out)
	return out, nil
}

// ReorderProjects assigns position = index for each id.
func (d *Driver) ReorderProjects(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		if _, ok := d.projects[id]; !ok {
			return storage.NotFoundError{Key: id}
		}
	}
	now := time.Now().UTC()
	for i, id := range ids {
		d.projects[id].Position = i
		d.projects[id].UpdatedAt = now
	}
	return nil
}

// NextPosition returns one past the highest stored position.
func (d *Driver) NextPosition(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	next := 0
	for _, p := range d.projects {
		if p.Position >= next {
			next = p.Position + 1
		}
	}
	return next, nil
}

// GetMapping retrieves a mapping.
func (d *Driver) GetMapping(_ context.Context, projectID, service string) (*project.Mapping, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.mappings[mappingKey{projectID, service}]
	if !ok {
		return nil, storage.NotFoundError{Kind: "mapping", Key: projectID + "/" + service}
	}
	c := *m
	return &c, nil
}

// UpsertMapping inserts or replaces a mapping.
func (d *Driver) UpsertMapping(_ context.Context, m *project.Mapping) error {
	if m == nil {
		return errors.New("cannot store nil mapping")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c := *m
	d.mappings[mappingKey{m.ProjectID, m.Service}] = &c
	return nil
}

// DeleteMapping removes a mapping.
func (d *Driver) DeleteMapping(_ context.Context, projectID, service string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.mappings, mappingKey{projectID, service})
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
