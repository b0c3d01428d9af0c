// Package gemini implements pkg/embeddings' Embedder with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/papercomputeco/folio/pkg/embeddings"
	"github.com/papercomputeco/folio/pkg/vector"
)

const DefaultEmbeddingModel = "text-embedding-004"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is not set")

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	APIKey string
	Model  string

	// Dimensions sets the output dimensionality when non-zero.
	Dimensions uint

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

// Embedder wraps the genai models client.
type Embedder struct {
	client *genai.Client
	model  string
	config *genai.EmbedContentConfig
}

// NewEmbedder creates a Gemini embedder.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	e := &Embedder{client: client, model: cfg.Model}
	if cfg.Dimensions > 0 {
		dims := int32(cfg.Dimensions)
		e.config = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}
	return e, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), e.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", vector.ErrEmbedding)
	}
	return resp.Embeddings[0].Values, nil
}

// Close is a no-op; the genai client holds no long-lived connections.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
