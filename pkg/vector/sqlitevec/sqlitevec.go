// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/folio/pkg/vector"
)

// DefaultCollection prefixes the driver's tables when no collection is configured.
const DefaultCollection = "portfolio_memories"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions uint
	docsTable  string
	vecTable   string
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint

	// Collection names the table pair backing the index.
	// Defaults to DefaultCollection if empty.
	Collection string
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec
// and ensures its tables exist.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	if !identPattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q: must be a SQL identifier", collection)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if c.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	d := &SQLiteVecDriver{
		db:         db,
		dimensions: c.Dimensions,
		docsTable:  collection + "_documents",
		vecTable:   collection + "_embeddings",
		logger:     logger,
	}

	if err := d.EnsureCollection(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"collection", collection,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return d, nil
}

// EnsureCollection creates the document table and the vec0 virtual table.
// The namespace is a vec0 partition key, so filtered KNN queries only scan
// one namespace.
func (d *SQLiteVecDriver) EnsureCollection(ctx context.Context) error {
	// vec0 virtual tables use integer rowids, so we need a mapping from
	// string document IDs to integer rowids.
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				rowid INTEGER PRIMARY KEY AUTOINCREMENT,
				doc_id TEXT NOT NULL UNIQUE,
				container_tag TEXT NOT NULL DEFAULT '',
				owner_id TEXT NOT NULL DEFAULT '',
				payload TEXT NOT NULL DEFAULT '{}'
			)`, d.docsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner ON %s(owner_id)`, d.docsTable, d.docsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tag ON %s(container_tag)`, d.docsTable, d.docsTable),
		fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
				container_tag text partition key,
				embedding float[%d] distance_metric=cosine
			)`, d.vecTable, d.dimensions),
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating collection tables: %w", err)
		}
	}
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert stores documents with their embeddings.
// If a document with the same ID already exists, it is replaced.
func (d *SQLiteVecDriver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("document %s: %w: got %d, want %d", doc.ID, vector.ErrDimensions, len(doc.Embedding), d.dimensions)
		}

		payload, err := json.Marshal(doc.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for doc %s: %w", doc.ID, err)
		}
		embBlob := serializeFloat32(doc.Embedding)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id = ?`, d.docsTable), doc.ID,
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET container_tag = ?, owner_id = ?, payload = ? WHERE rowid = ?`, d.docsTable),
				doc.Namespace(), doc.Payload[vector.OwnerKey], string(payload), rowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}

			// vec0 does not support UPDATE of partition keys, so replace the row.
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, d.vecTable), rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(doc_id, container_tag, owner_id, payload) VALUES (?, ?, ?, ?)`, d.docsTable),
				doc.ID, doc.Namespace(), doc.Payload[vector.OwnerKey], string(payload),
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}
			if rowID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(rowid, container_tag, embedding) VALUES (?, ?, ?)`, d.vecTable),
			rowID, doc.Namespace(), embBlob,
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted documents to sqlite-vec", "count", len(docs))
	return nil
}

// Query finds the topK most similar documents in namespace.
func (d *SQLiteVecDriver) Query(ctx context.Context, embedding []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	if namespace == "" {
		return nil, vector.ErrNamespace
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensions, len(embedding), d.dimensions)
	}
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	where := "ve.embedding MATCH ? AND ve.k = ? AND ve.container_tag = ?"
	args := []any{serializeFloat32(embedding), topK, namespace}

	// KNN query via vec0 MATCH, then JOIN back to get doc_id and payload.
	// Embeddings are not returned; use Get for those.
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.doc_id, d.payload, ve.distance
		FROM %s ve
		INNER JOIN %s d ON d.rowid = ve.rowid
		WHERE %s
		ORDER BY ve.distance, d.doc_id
	`, d.vecTable, d.docsTable, where), args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			docID, payload string
			distance       float64
		)
		if err := rows.Scan(&docID, &payload, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		doc, err := decodeDocument(docID, payload, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, vector.QueryResult{
			Document: doc,
			// cosine distance is 1 - similarity
			Score: float32(1 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "namespace", namespace, "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *SQLiteVecDriver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT rowid, doc_id, payload
		FROM %s
		WHERE doc_id IN (%s)
		ORDER BY doc_id
	`, d.docsTable, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	// Collect results first so we can close the rows cursor before
	// issuing additional queries (":memory:" uses a single connection).
	type docRow struct {
		rowID   int64
		docID   string
		payload string
	}
	var docRows []docRow
	for rows.Next() {
		var dr docRow
		if err := rows.Scan(&dr.rowID, &dr.docID, &dr.payload); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docRows = append(docRows, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	rows.Close()

	docs := make([]vector.Document, 0, len(docRows))
	for _, dr := range docRows {
		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT embedding FROM %s WHERE rowid = ?`, d.vecTable), dr.rowID,
		).Scan(&embBlob)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reading embedding for doc %s: %w", dr.docID, err)
		}

		doc, err := decodeDocument(dr.docID, dr.payload, embBlob)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *SQLiteVecDriver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders, args := inClause(ids)

	// First, get the rowids for the documents to delete from vec0
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT rowid FROM %s WHERE doc_id IN (%s)`, d.docsTable, placeholders,
	), args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, d.vecTable), rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE doc_id IN (%s)`, d.docsTable, placeholders,
	), args...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted documents from sqlite-vec", "count", len(rowIDs))
	return nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func decodeDocument(id, payload string, embBlob []byte) (vector.Document, error) {
	doc := vector.Document{ID: id}
	if payload != "" && payload != "null" {
		if err := json.Unmarshal([]byte(payload), &doc.Payload); err != nil {
			return doc, fmt.Errorf("decoding payload for doc %s: %w", id, err)
		}
	}
	if len(embBlob) > 0 {
		emb, err := deserializeFloat32(embBlob)
		if err != nil {
			return doc, fmt.Errorf("decoding embedding for doc %s: %w", id, err)
		}
		doc.Embedding = emb
	}
	return doc, nil
}
