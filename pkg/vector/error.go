package vector

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrNamespace is returned when a query carries no namespace.
	ErrNamespace = errors.New("namespace is required")

	// ErrDimensions is returned when an embedding's length doesn't match the
	// collection's configured dimensions.
	ErrDimensions = errors.New("embedding dimensions mismatch")
)
