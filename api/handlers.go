package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/folio/pkg/project"
)

// ProjectListResponse wraps a list of projects.
type ProjectListResponse struct {
	Projects []*project.Project `json:"projects"`
	Count    int                `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListProjects returns the public projects in display order.
func (s *Server) handleListProjects(c *fiber.Ctx) error {
	projects, err := s.config.Projects.ListPublic(c.Context())
	if err != nil {
		return s.writeStoreError(c, err, "failed to list projects")
	}

	return c.JSON(ProjectListResponse{Projects: projects, Count: len(projects)})
}

// handleGetProject returns a public or unlisted project by slug.
func (s *Server) handleGetProject(c *fiber.Ctx) error {
	p, err := s.config.Projects.GetPublicBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return s.writeStoreError(c, err, "failed to get project")
	}

	return c.JSON(p)
}
