// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents search and read the portfolio.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/utils"
)

// ProjectReader reads projects that may be shown publicly.
type ProjectReader interface {
	GetPublicBySlug(ctx context.Context, slug string) (*project.Project, error)
}

type Config struct {
	// Searcher runs semantic search over project memories
	Searcher *search.Searcher

	// Projects enables the get_project tool when set
	Projects ProjectReader

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the portfolio tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "folio",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Searcher == nil {
			return nil, errors.New("searcher is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		if c.Projects != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        getProjectToolName,
				Description: getProjectDescription,
			}, s.handleGetProject)
		}
	}

	s.mcpServer = mcpServer

	// stateless streamable HTTP handler
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
