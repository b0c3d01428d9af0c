package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/folio/api/search"
)

var (
	searchToolName    = "search_projects"
	searchDescription = "Search the portfolio's projects using semantic search. Returns the most relevant projects for the query text with a preview of each."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant projects"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, search.SearchOutput, error) {
	if input.Query == "" {
		return errorResult("query is required"), search.SearchOutput{}, nil
	}

	output, err := s.config.Searcher.Search(ctx, input.Query, input.TopK)
	if err != nil {
		s.config.Logger.Error("MCP search failed", "error", err)
		return errorResult(fmt.Sprintf("Search failed: %v", err)), search.SearchOutput{}, nil
	}

	// Structured results are also returned as serialized JSON text for
	// clients that only read text content.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), search.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
