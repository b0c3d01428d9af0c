// Package pgvector provides a vector.Driver backed by PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/papercomputeco/folio/pkg/vector"
)

// DefaultTable is used when no collection is configured.
const DefaultTable = "portfolio_memories"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds configuration for the pgvector driver.
type Config struct {
	// ConnString is a PostgreSQL connection string or URI.
	ConnString string

	// Table names the backing table. Defaults to DefaultTable.
	Table string

	// Dimensions is the embedding column size.
	Dimensions uint
}

// Driver implements vector.Driver using pgvector.
type Driver struct {
	pool       *pgxpool.Pool
	table      string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver installs the vector extension if needed and opens a pool whose
// connections know the vector type.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.ConnString == "" {
		return nil, errors.New("postgres connection string is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	table := c.Table
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: must be a SQL identifier", table)
	}

	// The type can only be registered once the extension exists.
	conn, err := pgx.Connect(ctx, c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	logger.Info("pgvector vector driver initialized",
		"table", table,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		pool:       pool,
		table:      table,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the table, the namespace and owner indices and an
// HNSW index for cosine distance.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id uuid PRIMARY KEY,
				container_tag text NOT NULL DEFAULT '',
				owner_id text NOT NULL DEFAULT '',
				payload jsonb NOT NULL DEFAULT '{}',
				embedding vector(%d) NOT NULL
			)`, d.table, d.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tag_idx ON %s (container_tag)`, d.table, d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id)`, d.table, d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, d.table, d.table),
	}

	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
	}
	return nil
}

// Upsert inserts or fully replaces rows by id.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("document %s: %w: got %d, want %d", doc.ID, vector.ErrDimensions, len(doc.Embedding), d.dimensions)
		}
		payload, err := json.Marshal(doc.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for doc %s: %w", doc.ID, err)
		}
		batch.Queue(fmt.Sprintf(`
			INSERT INTO %s (id, container_tag, owner_id, payload, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				container_tag = EXCLUDED.container_tag,
				owner_id = EXCLUDED.owner_id,
				payload = EXCLUDED.payload,
				embedding = EXCLUDED.embedding
		`, d.table), doc.ID, doc.Namespace(), doc.Payload[vector.OwnerKey], payload, pgvector.NewVector(doc.Embedding))
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}

	d.logger.Debug("upserted documents to pgvector", "count", len(docs))
	return nil
}

// Query orders rows in namespace by cosine distance to embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	if namespace == "" {
		return nil, vector.ErrNamespace
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT id::text, payload, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE container_tag = $2
		ORDER BY embedding <=> $1, id
		LIMIT $3
	`, d.table), pgvector.NewVector(embedding), namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r       vector.QueryResult
			payload []byte
			score   float64
		)
		if err := rows.Scan(&r.ID, &payload, &score); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if err := json.Unmarshal(payload, &r.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload for doc %s: %w", r.ID, err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried pgvector", "namespace", namespace, "results", len(results))
	return results, nil
}

// Get retrieves rows by id.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT id::text, payload, embedding
		FROM %s
		WHERE id::text = ANY($1)
		ORDER BY id
	`, d.table), ids)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var (
			doc     vector.Document
			payload []byte
			emb     pgvector.Vector
		)
		if err := rows.Scan(&doc.ID, &payload, &emb); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal(payload, &doc.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload for doc %s: %w", doc.ID, err)
		}
		doc.Embedding = emb.Slice()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Delete removes rows by id.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tag, err := d.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id::text = ANY($1)`, d.table), ids)
	if err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from pgvector", "count", tag.RowsAffected())
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}
