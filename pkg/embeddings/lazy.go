package embeddings

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/folio/pkg/vector"
)

// Factory builds the underlying embedder. It may be slow, e.g. when it loads
// a model or probes a remote endpoint.
type Factory func(ctx context.Context) (Embedder, error)

// Lazy is an Embedder that builds its underlying model on first use and
// reuses it for the life of the process. Concurrent first callers share a
// single initialization. If initialization fails, every pending and later
// call fails with ErrInit; there is no retry.
//
// Output vectors are L2-normalized.
type Lazy struct {
	init       func() (Embedder, error)
	started    atomic.Bool
	dimensions uint
}

// NewLazy wraps factory. When dimensions is non-zero, vectors of any other
// size are rejected with ErrDimensions.
func NewLazy(factory Factory, dimensions uint) *Lazy {
	l := &Lazy{dimensions: dimensions}
	l.init = sync.OnceValues(func() (Embedder, error) {
		l.started.Store(true)
		// Initialization outlives the request that triggered it.
		e, err := factory(context.Background())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInit, err)
		}
		return e, nil
	})
	return l
}

// Embed initializes the model if needed and embeds text.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.init()
	if err != nil {
		return nil, err
	}

	v, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if l.dimensions != 0 && uint(len(v)) != l.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensions, len(v), l.dimensions)
	}
	return vector.Normalize(slices.Clone(v)), nil
}

// Close closes the underlying embedder if it was ever built.
func (l *Lazy) Close() error {
	if !l.started.Load() {
		return nil
	}
	e, err := l.init()
	if err != nil || e == nil {
		return nil
	}
	return e.Close()
}

var _ Embedder = (*Lazy)(nil)
