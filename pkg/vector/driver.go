// Package vector provides the vector index that stores project memories and
// answers nearest-neighbour queries scoped to a namespace.
package vector

import (
	"context"
	"math"
)

const (
	// NamespaceKey is the payload key holding a document's namespace tag.
	// Every driver indexes it and filters queries on it.
	NamespaceKey = "container_tag"

	// OwnerKey is the payload key holding the id of the owning record.
	OwnerKey = "project_id"

	// DefaultTopK is used when a query asks for zero or fewer results.
	DefaultTopK = 10
)

// Document represents a stored item with its embedding and payload.
type Document struct {
	// ID is the point identifier. Drivers backed by Qdrant or Postgres
	// require UUID-shaped ids.
	ID string

	// Embedding is the vector representation of the document content.
	Embedding []float32

	// Payload is stored verbatim next to the embedding. A second upsert of
	// the same ID replaces it entirely.
	Payload map[string]string
}

// Namespace returns the document's namespace tag.
func (d Document) Namespace() string {
	return d.Payload[NamespaceKey]
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the cosine similarity to the query (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// EnsureCollection creates the backing collection and its payload
	// indices if they don't exist. Safe to call repeatedly.
	EnsureCollection(ctx context.Context) error

	// Upsert stores documents. An existing document with the same ID is
	// fully replaced.
	Upsert(ctx context.Context, docs []Document) error

	// Query returns up to topK documents nearest to embedding by cosine
	// similarity, restricted to documents whose namespace equals namespace.
	// An empty namespace fails with ErrNamespace.
	Query(ctx context.Context, embedding []float32, topK int, namespace string) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs. Missing IDs are not an error.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Normalize scales v to unit length in place and returns it. Zero vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

// ClonePayload copies p so callers cannot alias stored payloads.
func ClonePayload(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
