package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/syncer"
)

// ReorderRequest is the body of POST /v1/admin/projects/reorder.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// SyncStatusResponse describes where a project stands with the vector index.
type SyncStatusResponse struct {
	ProjectID string           `json:"projectId"`
	Synced    bool             `json:"synced"`
	Mapping   *project.Mapping `json:"mapping,omitempty"`
	Pending   *outbox.Task     `json:"pending,omitempty"`
}

func (s *Server) handleAdminListProjects(c *fiber.Ctx) error {
	projects, err := s.config.Projects.List(c.Context())
	if err != nil {
		return s.writeStoreError(c, err, "failed to list projects")
	}

	return c.JSON(ProjectListResponse{Projects: projects, Count: len(projects)})
}

func (s *Server) handleAdminGetProject(c *fiber.Ctx) error {
	p, err := s.config.Projects.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.writeStoreError(c, err, "failed to get project")
	}

	return c.JSON(p)
}

func (s *Server) handleAdminCreateProject(c *fiber.Ctx) error {
	var in project.Project
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	p, err := s.config.Projects.Create(c.Context(), &in)
	if err != nil {
		return s.writeStoreError(c, err, "failed to create project")
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) handleAdminUpdateProject(c *fiber.Ctx) error {
	var in project.Project
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	p, err := s.config.Projects.Update(c.Context(), c.Params("id"), &in)
	if err != nil {
		return s.writeStoreError(c, err, "failed to update project")
	}

	return c.JSON(p)
}

func (s *Server) handleAdminDeleteProject(c *fiber.Ctx) error {
	if err := s.config.Projects.Delete(c.Context(), c.Params("id")); err != nil {
		return s.writeStoreError(c, err, "failed to delete project")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleAdminReorderProjects(c *fiber.Ctx) error {
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	if err := s.config.Projects.Reorder(c.Context(), req.IDs); err != nil {
		return s.writeStoreError(c, err, "failed to reorder projects")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleAdminSyncStatus reports the vector index mapping of a project and
// any sync still waiting in the outbox.
func (s *Server) handleAdminSyncStatus(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	res := SyncStatusResponse{ProjectID: id}

	m, err := s.config.Projects.Mapping(ctx, id, syncer.ServiceVectorIndex)
	switch {
	case err == nil:
		res.Mapping = m
	case storage.IsNotFound(err):
		if _, err := s.config.Projects.Get(ctx, id); err != nil {
			return s.writeStoreError(c, err, "failed to get project")
		}
	default:
		return s.writeStoreError(c, err, "failed to get sync status")
	}

	if s.config.Journal != nil {
		tasks, err := s.config.Journal.List(ctx)
		if err != nil {
			return s.writeStoreError(c, err, "failed to list pending syncs")
		}
		for i := range tasks {
			if tasks[i].ProjectID == id {
				res.Pending = &tasks[i]
				break
			}
		}
	}

	res.Synced = res.Mapping != nil && res.Pending == nil
	return c.JSON(res)
}

// handleAdminResync queues a fresh sync of a project.
func (s *Server) handleAdminResync(c *fiber.Ctx) error {
	queued, err := s.config.Projects.Resync(c.Context(), c.Params("id"))
	if err != nil {
		return s.writeStoreError(c, err, "failed to queue sync")
	}

	return c.Status(fiber.StatusAccepted).JSON(map[string]bool{"queued": queued})
}
