// Package storage defines the content store for portfolio projects and the
// integration mappings that record where each project has been mirrored.
package storage

import (
	"context"

	"github.com/papercomputeco/folio/pkg/project"
)

// ProjectStore persists portfolio projects.
type ProjectStore interface {
	// CreateProject stores a new project. The caller assigns ID, Position and
	// timestamps. Returns ErrSlugConflict if the slug is taken.
	CreateProject(ctx context.Context, p *project.Project) error

	// GetProject retrieves a project by id.
	GetProject(ctx context.Context, id string) (*project.Project, error)

	// GetProjectBySlug retrieves a project by slug.
	GetProjectBySlug(ctx context.Context, slug string) (*project.Project, error)

	// UpdateProject overwrites the stored project with the same ID.
	// Returns ErrSlugConflict if the new slug belongs to another project.
	UpdateProject(ctx context.Context, p *project.Project) error

	// DeleteProject removes a project and all of its integration mappings.
	DeleteProject(ctx context.Context, id string) error

	// ListProjects returns every project ordered by position, then creation time.
	ListProjects(ctx context.Context) ([]*project.Project, error)

	// ReorderProjects sets each listed project's position to its index in ids.
	// Projects not named keep their position. Unknown ids fail the whole call.
	ReorderProjects(ctx context.Context, ids []string) error

	// NextPosition returns a position after every stored project.
	NextPosition(ctx context.Context) (int, error)
}

// MappingStore persists integration mappings.
type MappingStore interface {
	// GetMapping retrieves the mapping for a project and service.
	GetMapping(ctx context.Context, projectID, service string) (*project.Mapping, error)

	// UpsertMapping inserts or replaces the mapping for (ProjectID, Service).
	UpsertMapping(ctx context.Context, m *project.Mapping) error

	// DeleteMapping removes a mapping. Missing mappings are not an error.
	DeleteMapping(ctx context.Context, projectID, service string) error
}

// Driver is a complete content store backend.
type Driver interface {
	ProjectStore
	MappingStore

	// Close closes the store and releases any resources.
	Close() error
}
