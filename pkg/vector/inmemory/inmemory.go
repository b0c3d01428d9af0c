// Package inmemory provides a brute-force vector.Driver kept in process
// memory. It is used by tests and by local runs that don't need the index to
// outlive the process.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/papercomputeco/folio/pkg/vector"
)

// Driver implements vector.Driver using in-process data structures.
type Driver struct {
	dimensions uint
	logger     *slog.Logger

	mu   sync.RWMutex
	docs map[string]vector.Document
}

// Config holds configuration for the in-memory driver.
type Config struct {
	// Dimensions, when non-zero, is enforced on every upsert and query.
	Dimensions uint
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver(c Config, logger *slog.Logger) *Driver {
	return &Driver{
		dimensions: c.Dimensions,
		logger:     logger,
		docs:       make(map[string]vector.Document),
	}
}

// EnsureCollection is a no-op; the collection always exists.
func (d *Driver) EnsureCollection(context.Context) error {
	return nil
}

// Upsert stores documents, replacing any with the same ID.
func (d *Driver) Upsert(_ context.Context, docs []vector.Document) error {
	for _, doc := range docs {
		if err := d.checkDims(doc.Embedding); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		d.docs[doc.ID] = vector.Document{
			ID:        doc.ID,
			Embedding: slices.Clone(doc.Embedding),
			Payload:   vector.ClonePayload(doc.Payload),
		}
	}

	d.logger.Debug("upserted documents", "count", len(docs))
	return nil
}

// Query scans every document in the namespace and returns the topK most
// similar. Equal scores are ordered by ID.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	if namespace == "" {
		return nil, vector.ErrNamespace
	}
	if err := d.checkDims(embedding); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	d.mu.RLock()
	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		if doc.Namespace() != namespace {
			continue
		}
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:        doc.ID,
				Embedding: slices.Clone(doc.Embedding),
				Payload:   vector.ClonePayload(doc.Payload),
			},
			Score: vector.CosineSimilarity(embedding, doc.Embedding),
		})
	}
	d.mu.RUnlock()

	slices.SortFunc(results, func(a, b vector.QueryResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []vector.Document
	for _, id := range ids {
		doc, ok := d.docs[id]
		if !ok {
			continue
		}
		out = append(out, vector.Document{
			ID:        doc.ID,
			Embedding: slices.Clone(doc.Embedding),
			Payload:   vector.ClonePayload(doc.Payload),
		})
	}
	return out, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	return nil
}

// Len returns the number of stored documents.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) checkDims(v []float32) error {
	if d.dimensions != 0 && uint(len(v)) != d.dimensions {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensions, len(v), d.dimensions)
	}
	return nil
}
