// Package api provides the HTTP API for the portfolio: the public project
// showcase, the admin area, semantic search and the chat stream.
package api

import (
	"time"

	"github.com/papercomputeco/folio/api/mcp"
	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/portfolio"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Projects is required.
	Projects *portfolio.Service

	// Chat serves POST /v1/chat. Nil answers every chat with a 500.
	Chat *chat.Service

	// Searcher serves GET /v1/search. Nil answers with a 503.
	Searcher *search.Searcher

	// Journal exposes pending syncs in the admin sync status.
	Journal outbox.Journal

	// MCP is mounted at /mcp when set.
	MCP *mcp.Server

	// AdminPassword guards /v1/admin. Empty disables the admin API.
	AdminPassword string

	// SessionTTL is the lifetime of the admin session cookie.
	SessionTTL time.Duration

	// AllowOrigins is a comma separated CORS origin list. Empty disables CORS.
	AllowOrigins string

	// ChatTimeout bounds one streamed answer.
	ChatTimeout time.Duration
}
