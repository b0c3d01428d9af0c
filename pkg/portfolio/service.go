// Package portfolio is the write path for projects. It validates and stores
// a mutation, then hands the vector index sync to the outbox and announces
// the change on the event stream. Neither of those can fail a mutation that
// the content store accepted.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/folio/pkg/eventstream"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

// Enqueuer accepts sync tasks. *outbox.Pool implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, t outbox.Task) (bool, error)
}

// Config wires the service.
type Config struct {
	Store     storage.Driver
	Outbox    Enqueuer
	Publisher eventstream.Publisher

	// Source stamps every published event.
	Source eventstream.EventSource

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service manages projects.
type Service struct {
	store     storage.Driver
	outbox    Enqueuer
	publisher eventstream.Publisher
	source    eventstream.EventSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a project service.
func NewService(c Config) (*Service, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if c.Outbox == nil {
		return nil, fmt.Errorf("outbox is required")
	}
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if c.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:     c.Store,
		outbox:    c.Outbox,
		publisher: c.Publisher,
		source:    c.Source,
		logger:    c.Logger,
		now:       now,
	}, nil
}

// Create validates and stores a new project at the end of the display order.
func (s *Service) Create(ctx context.Context, in *project.Project) (*project.Project, error) {
	p := in.Clone()
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pos, err := s.store.NextPosition(ctx)
	if err != nil {
		return nil, fmt.Errorf("assigning position: %w", err)
	}

	now := s.now().UTC()
	p.ID = project.NewID()
	p.Position = pos
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	s.logger.Info("project created", "project_id", p.ID, "slug", p.Slug)

	s.enqueue(ctx, p.ID, outbox.OpUpsert)
	s.publish(ctx, eventstream.NewProjectCreated(s.source, p))
	return p, nil
}

// Update replaces the editable fields of project id with in. The id,
// position and creation time are kept.
func (s *Service) Update(ctx context.Context, id string, in *project.Project) (*project.Project, error) {
	existing, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	p := in.Clone()
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.ID = existing.ID
	p.Position = existing.Position
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	s.logger.Info("project updated",
		"project_id", p.ID,
		"slug", p.Slug,
		"visibility", p.Visibility,
	)

	s.enqueue(ctx, p.ID, outbox.OpUpsert)
	s.publish(ctx, eventstream.NewProjectUpdated(s.source, p))
	return p, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)

	s.enqueue(ctx, id, outbox.OpDelete)
	s.publish(ctx, eventstream.NewProjectDeleted(s.source, id))
	return nil
}

// Reorder sets the display order. Positions are not mirrored in the vector
// index, so no sync is queued.
func (s *Service) Reorder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return project.ValidationError{Field: "ids", Reason: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return project.ValidationError{Field: "ids", Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = struct{}{}
	}

	if err := s.store.ReorderProjects(ctx, ids); err != nil {
		return err
	}
	s.logger.Info("projects reordered", "count", len(ids))

	s.publish(ctx, eventstream.NewProjectsReordered(s.source, ids))
	return nil
}

// Resync queues a sync of project id without changing it. It reports
// whether a worker picked the task up; false means it waits for replay.
func (s *Service) Resync(ctx context.Context, id string) (bool, error) {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return false, err
	}
	queued, err := s.outbox.Enqueue(ctx, outbox.NewTask(id, outbox.OpUpsert))
	if err != nil {
		return false, fmt.Errorf("queueing sync: %w", err)
	}
	return queued, nil
}

// Get returns any project by id.
func (s *Service) Get(ctx context.Context, id string) (*project.Project, error) {
	return s.store.GetProject(ctx, id)
}

// List returns every project in display order.
func (s *Service) List(ctx context.Context) ([]*project.Project, error) {
	return s.store.ListProjects(ctx)
}

// ListPublic returns the projects shown on the public site.
func (s *Service) ListPublic(ctx context.Context) ([]*project.Project, error) {
	all, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*project.Project, 0, len(all))
	for _, p := range all {
		if p.Listed() {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPublicBySlug returns a public or unlisted project. Private projects
// are reported as not found.
func (s *Service) GetPublicBySlug(ctx context.Context, slug string) (*project.Project, error) {
	p, err := s.store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.IsPrivate() {
		return nil, storage.NotFoundError{Key: slug}
	}
	return p, nil
}

// Mapping returns the integration mapping of a project for service.
func (s *Service) Mapping(ctx context.Context, id, service string) (*project.Mapping, error) {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetMapping(ctx, id, service)
}

func (s *Service) enqueue(ctx context.Context, projectID string, op outbox.Op) {
	queued, err := s.outbox.Enqueue(ctx, outbox.NewTask(projectID, op))
	switch {
	case err != nil:
		s.logger.Error("failed to queue sync", "project_id", projectID, "op", op, "error", err)
	case !queued:
		s.logger.Warn("sync left pending", "project_id", projectID, "op", op)
	}
}

func (s *Service) publish(ctx context.Context, e *eventstream.ProjectEvent) {
	if err := s.publisher.PublishProject(ctx, e); err != nil {
		s.logger.Warn("failed to publish event",
			"event_type", e.EventType,
			"project_id", e.ProjectID,
			"error", err,
		)
	}
}
