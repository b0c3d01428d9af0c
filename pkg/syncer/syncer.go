// Package syncer keeps the vector index in line with the content store.
//
// Every non-private project has exactly one memory in the index, stored
// under memory.PointID(project.ID). The integration mapping for the
// "vector-index" service records the last successful sync. A failed embed or
// index call never touches the project, so it stays readable and the failure
// stays visible as a pending outbox task. An existing mapping keeps its
// SyncedAt and gains the failure in LastError.
//
// The index collection is prepared on first use. Until that succeeds every
// sync fails with ErrIndexUnavailable and its task stays journaled.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/folio/pkg/embeddings"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/vector"
)

// ServiceVectorIndex is the integration mapping service name for the vector index.
const ServiceVectorIndex = "vector-index"

// Config wires the orchestrator.
type Config struct {
	Store    storage.Driver
	Embedder embeddings.Embedder
	Index    vector.Driver

	// Namespace tags every memory written by this deployment.
	Namespace string

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator mirrors projects into the vector index. It implements
// outbox.Handler.
type Orchestrator struct {
	store     storage.Driver
	embedder  embeddings.Embedder
	index     vector.Driver
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	ensureMu sync.Mutex
	ready    atomic.Bool
}

// New creates an orchestrator.
func New(c Config) (*Orchestrator, error) {
	switch {
	case c.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case c.Embedder == nil:
		return nil, fmt.Errorf("%w: embedder", ErrMissingDependency)
	case c.Index == nil:
		return nil, fmt.Errorf("%w: vector index", ErrMissingDependency)
	case c.Logger == nil:
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	case c.Namespace == "":
		return nil, fmt.Errorf("%w: %w", ErrMissingDependency, vector.ErrNamespace)
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		store:     c.Store,
		embedder:  c.Embedder,
		index:     c.Index,
		namespace: c.Namespace,
		logger:    c.Logger,
		now:       now,
	}, nil
}

// EnsureIndex prepares the index collection. It is a no-op once it has
// succeeded.
func (o *Orchestrator) EnsureIndex(ctx context.Context) error {
	if o.ready.Load() {
		return nil
	}

	o.ensureMu.Lock()
	defer o.ensureMu.Unlock()
	if o.ready.Load() {
		return nil
	}

	if err := o.index.EnsureCollection(ctx); err != nil {
		o.logger.Warn("vector index unavailable", "error", err)
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	o.ready.Store(true)
	o.logger.Info("vector index ready")
	return nil
}

// Ready reports whether the index collection has been prepared.
func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

// Sync mirrors p into the vector index. Private projects are removed
// instead.
func (o *Orchestrator) Sync(ctx context.Context, p *project.Project) error {
	if p.IsPrivate() {
		return o.Remove(ctx, p.ID)
	}

	log := o.logger.With("project_id", p.ID, "slug", p.Slug)
	log.Debug("syncing project")

	if err := o.EnsureIndex(ctx); err != nil {
		o.recordFailure(ctx, p.ID, err)
		return err
	}

	rec := memory.NewRecord(p, o.namespace, o.now())

	vec, err := o.embedder.Embed(ctx, rec.Text)
	if err != nil {
		log.Error("failed to embed project", "error", err)
		err = fmt.Errorf("embedding project %s: %w", p.ID, err)
		o.recordFailure(ctx, p.ID, err)
		return err
	}

	doc := vector.Document{
		ID:        rec.PointID,
		Embedding: vec,
		Payload:   rec.Payload(),
	}
	if err := o.index.Upsert(ctx, []vector.Document{doc}); err != nil {
		log.Error("failed to upsert memory", "point_id", rec.PointID, "error", err)
		err = fmt.Errorf("upserting memory for project %s: %w", p.ID, err)
		o.recordFailure(ctx, p.ID, err)
		return err
	}

	m := &project.Mapping{
		ProjectID:  p.ID,
		Service:    ServiceVectorIndex,
		ExternalID: rec.PointID,
		SyncedAt:   rec.Timestamp,
	}
	if err := o.store.UpsertMapping(ctx, m); err != nil {
		log.Error("failed to record mapping", "error", err)
		return fmt.Errorf("recording mapping for project %s: %w", p.ID, err)
	}

	log.Info("project synced", "point_id", rec.PointID)
	return nil
}

// recordFailure notes err on the project's existing mapping. SyncedAt is
// left alone so it still names the last good sync.
func (o *Orchestrator) recordFailure(ctx context.Context, projectID string, syncErr error) {
	m, err := o.store.GetMapping(ctx, projectID, ServiceVectorIndex)
	if err != nil {
		if !storage.IsNotFound(err) {
			o.logger.Warn("failed to load mapping", "project_id", projectID, "error", err)
		}
		return
	}

	m.LastError = syncErr.Error()
	if err := o.store.UpsertMapping(ctx, m); err != nil {
		o.logger.Warn("failed to record sync error", "project_id", projectID, "error", err)
	}
}

// Remove deletes a project's memory and its mapping. Deleting a memory that
// was never written is not an error.
func (o *Orchestrator) Remove(ctx context.Context, projectID string) error {
	pointID := memory.PointID(projectID)
	log := o.logger.With("project_id", projectID, "point_id", pointID)

	if err := o.EnsureIndex(ctx); err != nil {
		return err
	}

	if err := o.index.Delete(ctx, []string{pointID}); err != nil {
		log.Error("failed to delete memory", "error", err)
		return fmt.Errorf("deleting memory for project %s: %w", projectID, err)
	}

	if err := o.store.DeleteMapping(ctx, projectID, ServiceVectorIndex); err != nil {
		log.Error("failed to delete mapping", "error", err)
		return fmt.Errorf("deleting mapping for project %s: %w", projectID, err)
	}

	log.Info("project memory removed")
	return nil
}

// Reconcile brings the index in line with the stored state of projectID.
// A project that no longer exists is removed.
func (o *Orchestrator) Reconcile(ctx context.Context, projectID string) error {
	p, err := o.store.GetProject(ctx, projectID)
	if storage.IsNotFound(err) {
		return o.Remove(ctx, projectID)
	}
	if err != nil {
		return fmt.Errorf("loading project %s: %w", projectID, err)
	}
	return o.Sync(ctx, p)
}

// HandleTask implements outbox.Handler. Upsert tasks reconcile against the
// current store state, so a stale task never resurrects an older version.
func (o *Orchestrator) HandleTask(ctx context.Context, t outbox.Task) error {
	if t.Op == outbox.OpDelete {
		return o.Remove(ctx, t.ProjectID)
	}
	return o.Reconcile(ctx, t.ProjectID)
}

// SyncAll runs Sync for every stored project. A failing project does not
// stop the run. progress, when non-nil, is called after each project.
func (o *Orchestrator) SyncAll(ctx context.Context, progress func(done, total int)) (*Result, error) {
	projects, err := o.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	res := &Result{Total: len(projects), Errors: map[string]error{}}
	for i, p := range projects {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch err := o.Sync(ctx, p); {
		case err != nil:
			res.Failed++
			res.Errors[p.Slug] = err
		case p.IsPrivate():
			res.Removed++
		default:
			res.Synced++
		}

		if progress != nil {
			progress(i+1, len(projects))
		}
	}

	o.logger.Info("full sync finished",
		"total", res.Total,
		"synced", res.Synced,
		"removed", res.Removed,
		"failed", res.Failed,
	)
	return res, nil
}

var _ outbox.Handler = (*Orchestrator)(nil)
