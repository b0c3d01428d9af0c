package chat

import "errors"

var (
	// ErrNotConfigured is returned when no generative model is available,
	// usually because its credentials are missing.
	ErrNotConfigured = errors.New("chat model is not configured")

	// ErrInvalidRequest is returned for malformed chat requests.
	ErrInvalidRequest = errors.New("invalid chat request")
)
