// Package embeddingutils builds the configured embedder.
package embeddingutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/folio/pkg/embeddings"
	"github.com/papercomputeco/folio/pkg/embeddings/gemini"
	"github.com/papercomputeco/folio/pkg/embeddings/local"
	"github.com/papercomputeco/folio/pkg/embeddings/ollama"
	"github.com/papercomputeco/folio/pkg/embeddings/openai"
)

// Providers lists the supported embedding providers.
var Providers = []string{"local", "ollama", "openai", "gemini"}

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint
}

// NewEmbedder returns a lazily initialized embedder for the configured
// provider. Unknown providers are rejected immediately; every other
// failure surfaces on the first Embed call as embeddings.ErrInit.
func NewEmbedder(o *NewEmbedderOpts) (*embeddings.Lazy, error) {
	factory, err := newFactory(o)
	if err != nil {
		return nil, err
	}
	return embeddings.NewLazy(factory, o.Dimensions), nil
}

func newFactory(o *NewEmbedderOpts) (embeddings.Factory, error) {
	switch o.ProviderType {
	case "local", "":
		return func(context.Context) (embeddings.Embedder, error) {
			return local.NewEmbedder(local.EmbedderConfig{Dimensions: o.Dimensions}), nil
		}, nil
	case "ollama":
		return func(context.Context) (embeddings.Embedder, error) {
			return ollama.NewEmbedder(ollama.EmbedderConfig{
				BaseURL: o.TargetURL,
				Model:   o.Model,
			})
		}, nil
	case "openai":
		return func(context.Context) (embeddings.Embedder, error) {
			return openai.NewEmbedder(openai.EmbedderConfig{
				BaseURL:    o.TargetURL,
				APIKey:     o.APIKey,
				Model:      o.Model,
				Dimensions: o.Dimensions,
			})
		}, nil
	case "gemini":
		return func(ctx context.Context) (embeddings.Embedder, error) {
			return gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
				APIKey:     o.APIKey,
				Model:      o.Model,
				Dimensions: o.Dimensions,
				BaseURL:    o.TargetURL,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
