package embeddings

import "errors"

var (
	// ErrInit is returned by every call on a Lazy embedder whose
	// initialization failed.
	ErrInit = errors.New("embedder initialization failed")

	// ErrDimensions is returned when a model produces a vector of the wrong size.
	ErrDimensions = errors.New("embedding has unexpected dimensions")
)
