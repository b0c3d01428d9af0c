// Package provider builds the configured llm.Streamer.
package provider

import (
	"context"
	"fmt"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/folio/pkg/llm/provider/gemini"
	"github.com/papercomputeco/folio/pkg/llm/provider/ollama"
	"github.com/papercomputeco/folio/pkg/llm/provider/openai"
)

// Config selects and configures a chat provider.
type Config struct {
	// Type is one of SupportedProviders.
	Type    string
	BaseURL string
	APIKey  string
	Model   string
}

// New creates a Streamer for the given provider type. Providers that need an
// API key return an error wrapping llm.ErrMissingCredentials without one.
func New(ctx context.Context, c Config) (llm.Streamer, error) {
	switch c.Type {
	case OpenAI:
		return openai.New(openai.Config{BaseURL: c.BaseURL, APIKey: c.APIKey, Model: c.Model})
	case Anthropic:
		return anthropic.New(anthropic.Config{BaseURL: c.BaseURL, APIKey: c.APIKey, Model: c.Model})
	case Gemini:
		return gemini.New(ctx, gemini.Config{BaseURL: c.BaseURL, APIKey: c.APIKey, Model: c.Model})
	case Ollama:
		return ollama.New(ollama.Config{BaseURL: c.BaseURL, Model: c.Model}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", c.Type, SupportedProviders())
	}
}
