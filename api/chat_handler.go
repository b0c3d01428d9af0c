package api

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/sse"
)

// handleChat answers a visitor question as a server-sent event stream of
// {"content": "..."} frames terminated by "data: [DONE]". Failures before
// the first token are plain JSON errors; a failure mid-stream ends the
// stream with an {"error": "..."} frame instead of [DONE].
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if s.config.Chat == nil || !s.config.Chat.Configured() {
		s.logger.Error("chat request rejected", "error", chat.ErrNotConfigured)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: chat.ErrNotConfigured.Error()})
	}

	// The stream outlives this handler, so it can't use the request context.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ChatTimeout)

	stream, err := s.config.Chat.Answer(ctx, req)
	if err != nil {
		cancel()
		if errors.Is(err, chat.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to start chat completion", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to generate response"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()

		sw := sse.NewWriter(w)
		for tok, err := range stream.Tokens() {
			if err != nil {
				s.logger.Error("chat stream failed", "error", err)
				_ = sw.WriteError("response interrupted")
				return
			}
			if err := sw.WriteContent(tok); err != nil {
				s.logger.Debug("chat client went away", "error", err)
				return
			}
		}
		if err := sw.WriteDone(); err != nil {
			s.logger.Debug("chat client went away", "error", err)
		}
	})

	return nil
}
