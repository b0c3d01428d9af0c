package llm

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when a provider is selected without the
// API key it needs.
var ErrMissingCredentials = errors.New("missing model credentials")

// ErrorResponse is the JSON body of every non-streaming API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
