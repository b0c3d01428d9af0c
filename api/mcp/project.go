package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/storage"
)

var (
	getProjectToolName    = "get_project"
	getProjectDescription = "Get one portfolio project by its slug. Returns the project's full write-up as text. Use search_projects first to find slugs."
)

// GetProjectInput represents the input arguments for the get_project tool.
type GetProjectInput struct {
	Slug string `json:"slug" jsonschema:"the project slug, as returned by search_projects"`
}

// GetProjectOutput is the structured output of get_project.
type GetProjectOutput struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *Server) handleGetProject(ctx context.Context, _ *mcp.CallToolRequest, input GetProjectInput) (*mcp.CallToolResult, GetProjectOutput, error) {
	if input.Slug == "" {
		return errorResult("slug is required"), GetProjectOutput{}, nil
	}

	p, err := s.config.Projects.GetPublicBySlug(ctx, input.Slug)
	if storage.IsNotFound(err) {
		return errorResult(fmt.Sprintf("no project with slug %q", input.Slug)), GetProjectOutput{}, nil
	}
	if err != nil {
		s.config.Logger.Error("MCP get_project failed", "slug", input.Slug, "error", err)
		return errorResult(fmt.Sprintf("Failed to load project: %v", err)), GetProjectOutput{}, nil
	}

	output := GetProjectOutput{
		ID:    p.ID,
		Slug:  p.Slug,
		Title: p.Title,
		Text:  memory.Format(p),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize project: %v", err)), GetProjectOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
