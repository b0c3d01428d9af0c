package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultChatTimeout = 2 * time.Minute
)

// Server is the API server for the portfolio.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Projects == nil {
		return nil, errors.New("project service is required")
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaultSessionTTL
	}
	if config.ChatTimeout <= 0 {
		config.ChatTimeout = defaultChatTimeout
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Use(recover.New())
	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.AllowOrigins,
			AllowCredentials: true,
		}))
	}
	if config.AdminPassword != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: cookieKey(config.AdminPassword),
		}))
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/projects", s.handleListProjects)
	v1.Get("/projects/:slug", s.handleGetProject)
	v1.Get("/search", s.handleSearchEndpoint)
	v1.Post("/chat", s.handleChat)

	v1.Post("/admin/login", s.handleLogin)
	v1.Post("/admin/logout", s.handleLogout)

	admin := v1.Group("/admin", s.requireAdmin)
	admin.Get("/projects", s.handleAdminListProjects)
	admin.Post("/projects", s.handleAdminCreateProject)
	admin.Post("/projects/reorder", s.handleAdminReorderProjects)
	admin.Get("/projects/:id", s.handleAdminGetProject)
	admin.Put("/projects/:id", s.handleAdminUpdateProject)
	admin.Delete("/projects/:id", s.handleAdminDeleteProject)
	admin.Get("/projects/:id/sync", s.handleAdminSyncStatus)
	admin.Post("/projects/:id/sync", s.handleAdminResync)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
