// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/folio/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memories.
	DefaultCollectionName = "portfolio_memories"

	// DefaultMaxRetries is the number of collection lookups attempted before
	// NewDriver gives up.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the first delay between attempts. It doubles up to
	// DefaultMaxRetryDelay.
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries, RetryDelay and MaxRetryDelay control how long NewDriver
	// waits for Chroma to come up. Zero values use the defaults.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, retrying the collection
// lookup with exponential backoff while Chroma is starting.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = d.EnsureCollection(context.Background())
		if lastErr == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: collection %q after %d attempts: %v", vector.ErrConnection, collectionName, maxRetries, lastErr)
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", d.collectionID,
	)

	return d, nil
}

// EnsureCollection gets or creates the collection with cosine space and
// remembers its id.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	var collection chromaCollection
	err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection)
	if err == nil {
		d.collectionID = collection.ID
		return nil
	}

	err = d.do(ctx, http.MethodPost, collectionsPath, chromaCreateRequest{
		Name:        d.collectionName,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	}, &collection)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	d.collectionID = collection.ID
	return nil
}

// Upsert stores documents with their embeddings. The payload is stored as
// Chroma metadata.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = toMetadata(doc.Payload)
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}

	d.logger.Debug("upserted documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents within namespace.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	if namespace == "" {
		return nil, vector.ErrNamespace
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
		Where:           map[string]any{vector.NamespaceKey: namespace},
	}

	var resp chromaQueryResponse
	if err := d.do(ctx, http.MethodPost, d.collectionPath("query"), req, &resp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	var distances []float32
	if len(resp.Distances) > 0 {
		distances = resp.Distances[0]
	}
	var metadatas []map[string]any
	if len(resp.Metadatas) > 0 {
		metadatas = resp.Metadatas[0]
	}

	results := make([]vector.QueryResult, 0, len(ids))
	for i, id := range ids {
		result := vector.QueryResult{Document: vector.Document{ID: id}}
		if i < len(metadatas) {
			result.Payload = fromMetadata(metadatas[i])
		}
		// cosine space: distance = 1 - similarity
		if i < len(distances) {
			result.Score = 1 - distances[i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "namespace", namespace, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp chromaGetResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i].ID = id
		if i < len(resp.Metadatas) {
			docs[i].Payload = fromMetadata(resp.Metadatas[i])
		}
		if i < len(resp.Embeddings) {
			docs[i].Embedding = resp.Embeddings[i]
		}
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma", "count", len(ids))
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// do sends body as JSON and decodes a 2xx response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toMetadata(p map[string]string) map[string]any {
	m := make(map[string]any, len(p))
	for k, v := range p {
		m[k] = v
	}
	return m
}

func fromMetadata(m map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	p := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			p[k] = s
		} else {
			p[k] = fmt.Sprint(v)
		}
	}
	return p
}
