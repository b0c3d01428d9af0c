// Package search provides shared search types and logic for semantic search
// over project memories. It is used by both the REST API endpoint and the
// MCP server tool.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/folio/pkg/embeddings"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/utils"
	"github.com/papercomputeco/folio/pkg/vector"
)

const (
	DefaultTopK = 5
	MaxTopK     = 20

	previewLen = 280
)

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single matching project.
type SearchResult struct {
	ProjectID  string  `json:"project_id"`
	Slug       string  `json:"slug"`
	Visibility string  `json:"visibility"`
	Score      float32 `json:"score"`
	Preview    string  `json:"preview"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Searcher runs semantic searches within one namespace.
type Searcher struct {
	embedder     embeddings.Embedder
	vectorDriver vector.Driver
	namespace    string
	logger       *slog.Logger
}

// NewSearcher creates a searcher scoped to namespace, which must be set.
func NewSearcher(embedder embeddings.Embedder, vectorDriver vector.Driver, namespace string, logger *slog.Logger) (*Searcher, error) {
	if namespace == "" {
		return nil, fmt.Errorf("creating searcher: %w", vector.ErrNamespace)
	}
	return &Searcher{
		embedder:     embedder,
		vectorDriver: vectorDriver,
		namespace:    namespace,
		logger:       logger,
	}, nil
}

// Search embeds query and returns the nearest project memories, best first.
func (s *Searcher) Search(ctx context.Context, query string, topK int) (*SearchOutput, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	s.logger.Debug("search request", "query", query, "top_k", topK)

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.vectorDriver.Query(ctx, queryEmbedding, topK, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, result := range results {
		searchResults = append(searchResults, BuildSearchResult(result))
	}

	return &SearchOutput{
		Query:   query,
		Results: searchResults,
		Count:   len(searchResults),
	}, nil
}

// BuildSearchResult converts a vector query result into a SearchResult.
func BuildSearchResult(result vector.QueryResult) SearchResult {
	p := result.Payload
	return SearchResult{
		ProjectID:  p[memory.KeyProjectID],
		Slug:       p[memory.KeySlug],
		Visibility: p[memory.KeyVisibility],
		Score:      result.Score,
		Preview:    utils.Truncate(p[memory.KeyText], previewLen),
	}
}
