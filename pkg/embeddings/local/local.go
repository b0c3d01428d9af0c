// Package local provides an offline embedder based on feature hashing.
//
// Each token is hashed into a signed bucket of a fixed-size vector and the
// token vectors are mean-pooled. It needs no model download and no network,
// which makes it suitable for tests and for running folio without an
// inference server. Retrieval quality is lexical, not semantic.
package local

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/papercomputeco/folio/pkg/embeddings"
)

// DefaultDimensions is used when no dimension is configured.
const DefaultDimensions = 256

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "with": {},
}

// Embedder hashes tokens into a fixed-size vector.
type Embedder struct {
	dimensions int
}

// EmbedderConfig holds configuration for the local embedder.
type EmbedderConfig struct {
	Dimensions uint
}

// NewEmbedder creates a hashing embedder.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	dims := int(cfg.Dimensions)
	if dims == 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dimensions: dims}
}

// Embed returns the mean of the hashed token vectors. Text without any
// tokens embeds to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dimensions)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	n := 0
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dimensions))
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		v[idx] += sign
		n++
	}

	if n > 0 {
		for i := range v {
			v[i] /= float32(n)
		}
	}
	return v, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
