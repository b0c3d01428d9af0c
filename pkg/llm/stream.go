package llm

import (
	"context"
	"iter"
	"time"
)

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model"`

	// Chunk timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The content of this chunk (typically a partial message)
	Message Message `json:"message"`

	// Whether this is the final chunk
	Done bool `json:"done"`

	// Stop reason (only present on final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present on final chunk)
	Usage *Usage `json:"usage,omitempty"`
}

// Streamer runs streaming chat completions against a generative model.
type Streamer interface {
	// Name returns the provider name (e.g., "openai", "anthropic").
	Name() string

	// Stream sends req and yields chunks in arrival order. Iteration stops
	// at the first error, which is yielded with a nil chunk. Breaking out of
	// the loop cancels the upstream request.
	Stream(ctx context.Context, req *ChatRequest) iter.Seq2[*StreamChunk, error]
}
