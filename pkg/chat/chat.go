// Package chat answers visitor questions with retrieval-augmented
// generation over the project memories in the vector index.
package chat

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/papercomputeco/folio/pkg/embeddings"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/prompt"
	"github.com/papercomputeco/folio/pkg/vector"
)

const (
	// DefaultTopK is the number of memories retrieved per question.
	DefaultTopK = 5

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Config holds the fixed parameters of every chat completion.
type Config struct {
	// Namespace scopes retrieval to this deployment's memories.
	Namespace string

	TopK        int
	Model       string
	Temperature float64
	MaxTokens   int

	// Persona and Guidelines override the prompt defaults when set.
	Persona    string
	Guidelines string

	// MaxHistory keeps only the newest prior turns. Zero keeps all.
	MaxHistory int
}

// Service runs the chat pipeline: embed, retrieve, assemble, stream.
type Service struct {
	config   Config
	embedder embeddings.Embedder
	index    vector.Driver
	streamer llm.Streamer
	logger   *slog.Logger
}

// NewService creates a chat service. A nil streamer makes every Answer
// fail with ErrNotConfigured.
func NewService(c Config, embedder embeddings.Embedder, index vector.Driver, streamer llm.Streamer, logger *slog.Logger) (*Service, error) {
	if c.Namespace == "" {
		return nil, fmt.Errorf("creating chat service: %w", vector.ErrNamespace)
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}

	return &Service{
		config:   c,
		embedder: embedder,
		index:    index,
		streamer: streamer,
		logger:   logger,
	}, nil
}

// Configured reports whether a generative model is available.
func (s *Service) Configured() bool {
	return s.streamer != nil
}

// Answer validates req, retrieves context and starts the completion. It
// waits for the first token so that upstream failures before any output
// are returned as errors rather than inside the stream.
func (s *Service) Answer(ctx context.Context, req Request) (*Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.streamer == nil {
		return nil, ErrNotConfigured
	}

	p := s.Prompt(ctx, req)

	temp := s.config.Temperature
	maxTokens := s.config.MaxTokens
	chatReq := &llm.ChatRequest{
		Model:       s.config.Model,
		System:      p.System,
		Messages:    p.Messages,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	stream := newStream(tokens(s.streamer.Stream(ctx, chatReq)))
	if err := stream.prime(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting completion: %w", err)
	}
	return stream, nil
}

// Prompt assembles the prompt for req, retrieving context on the way.
func (s *Service) Prompt(ctx context.Context, req Request) prompt.Prompt {
	b := prompt.NewBuilder()
	if s.config.Persona != "" {
		b.Persona(s.config.Persona)
	}
	if s.config.Guidelines != "" {
		b.Guidelines(s.config.Guidelines)
	}

	return b.
		Context(s.Retrieve(ctx, req.Message)...).
		History(req.ConversationHistory).
		MaxHistory(s.config.MaxHistory).
		Question(req.Message).
		Build()
}

// Retrieve returns the texts of the memories nearest to question, in rank
// order. Embedding or index failures are logged and yield no context.
func (s *Service) Retrieve(ctx context.Context, question string) []string {
	if s.embedder == nil || s.index == nil {
		return nil
	}

	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("embedding question failed, answering without context", "error", err)
		return nil
	}

	results, err := s.index.Query(ctx, emb, s.config.TopK, s.config.Namespace)
	if err != nil {
		s.logger.Warn("searching memories failed, answering without context", "error", err)
		return nil
	}

	docs := make([]string, 0, len(results))
	for _, r := range results {
		if text := r.Payload[memory.KeyText]; text != "" {
			docs = append(docs, text)
		}
	}

	s.logger.Debug("retrieved context",
		"namespace", s.config.Namespace,
		"results", len(results),
	)
	return docs
}

// tokens maps model chunks to their non-empty text.
func tokens(chunks iter.Seq2[*llm.StreamChunk, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range chunks {
			if err != nil {
				yield("", err)
				return
			}
			text := chunk.Message.GetText()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
