package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

// writeStoreError maps content store and validation errors to a status
// code. Anything unexpected is logged and reported as msg.
func (s *Server) writeStoreError(c *fiber.Ctx, err error, msg string) error {
	var verr project.ValidationError
	switch {
	case storage.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrSlugConflict):
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: verr.Error()})
	}

	s.logger.Error(msg, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msg})
}
