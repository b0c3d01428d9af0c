// Package qdrant provides a vector.Driver backed by Qdrant over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/folio/pkg/vector"
)

const (
	// DefaultCollection is used when no collection is configured.
	DefaultCollection = "portfolio_memories"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address: "host", "host:port" or a URL whose
	// scheme selects TLS ("https").
	Target string

	// APIKey is sent with every request when set.
	APIKey string

	// Collection defaults to DefaultCollection.
	Collection string

	// Dimensions is the vector size used when the collection is created.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver connects to Qdrant. The collection is not touched until
// EnsureCollection is called.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, useTLS, err := parseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,

		// The version check dials the server, which would fail startup
		// while the index is down.
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	logger.Info("qdrant vector driver initialized",
		"host", host,
		"port", port,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// parseTarget splits a target into host, port and TLS flag.
func parseTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "", 0, false, errors.New("qdrant target is required")
	}

	useTLS := false
	hostport := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		useTLS = u.Scheme == "https"
		hostport = u.Host
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, DefaultPort, useTLS, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}

// EnsureCollection creates the collection with cosine distance and keyword
// indices on the namespace and owner payload keys.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(d.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			// A concurrent creator may have won the race.
			if exists, checkErr := d.client.CollectionExists(ctx, d.collection); checkErr != nil || !exists {
				return fmt.Errorf("creating collection %s: %w", d.collection, err)
			}
		}
		d.logger.Info("created qdrant collection", "collection", d.collection)
	}

	for _, field := range []string{vector.NamespaceKey, vector.OwnerKey} {
		_, err := d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: d.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating payload index %s: %w", field, err)
		}
	}
	return nil
}

// Upsert stores documents, replacing points with the same id.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("document %s: %w: got %d, want %d", doc.ID, vector.ErrDimensions, len(doc.Embedding), d.dimensions)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: toPayload(doc.Payload),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted points to qdrant", "count", len(docs))
	return nil
}

// Query finds the topK nearest points whose namespace matches.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	if namespace == "" {
		return nil, vector.ErrNamespace
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	req := &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(vector.NamespaceKey, namespace)},
		},
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:      p.GetId().GetUuid(),
				Payload: fromPayload(p.GetPayload()),
			},
			Score: p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant", "namespace", namespace, "results", len(results))
	return results, nil
}

// Get retrieves points by id.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, vector.Document{
			ID:        p.GetId().GetUuid(),
			Embedding: p.GetVectors().GetVector().GetData(),
			Payload:   fromPayload(p.GetPayload()),
		})
	}
	return docs, nil
}

// Delete removes points by id.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted points from qdrant", "count", len(ids))
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func pointIDs(ids []string) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewID(id)
	}
	return out
}

func toPayload(p map[string]string) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(p))
	for k, v := range p {
		out[k] = qdrant.NewValueString(v)
	}
	return out
}

func fromPayload(p map[string]*qdrant.Value) map[string]string {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v.GetStringValue()
	}
	return out
}
