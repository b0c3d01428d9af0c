// Package servecmder provides the serve command that runs the folio API
// server together with the background sync workers.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/api"
	"github.com/papercomputeco/folio/api/mcp"
	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/provider"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/prompt"
)

const serveLongDesc string = `Run the folio API server.

The server hosts the public project showcase, the admin API, semantic search,
the streaming chat endpoint and an MCP endpoint at /mcp. Project changes are
mirrored into the vector index by background sync workers. Syncs left pending
by a previous run are replayed on startup.

Examples:
  folio serve
  folio serve --listen :9000 --vector-store-provider qdrant --vector-store-target localhost:6334
  FOLIO_CHAT_API_KEY=... folio serve --chat-provider gemini`

const serveShortDesc string = "Run the folio API server"

// ServiceName stamps published events.
const ServiceName = "folio-api"

var serverFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChatProvider,
	config.FlagChatModel,
	config.FlagNamespace,
	config.FlagSyncWorkers,
	config.FlagJournal,
}

type serveCommander struct {
	flags   flagValues
	logFile string

	config *config.Config
	logger *slog.Logger
}

// flagValues receives the registered flags. Values are read back through
// viper so flags, env and config.toml resolve in one place.
type flagValues struct {
	strings map[string]*string
	uints   map[string]*uint
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, config.ServerFlags, serverFlagKeys)
			if err != nil {
				return err
			}
			cmder.config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := cmder.initLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			return cmder.run(cmd.Context(), stack.ConfigDir(cmd))
		},
	}

	registerServerFlags(cmd, &cmder.flags)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	return cmd
}

// initLogger sets up the command logger, fanning out to --log-file when set.
func (c *serveCommander) initLogger(cmd *cobra.Command) (func(), error) {
	c.logger = stack.NewLogger(cmd)
	if c.logFile == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	c.logger = logger.Multi(c.logger, logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

func registerServerFlags(cmd *cobra.Command, fv *flagValues) {
	fv.strings = make(map[string]*string)
	fv.uints = make(map[string]*uint)

	for _, key := range serverFlagKeys {
		switch key {
		case config.FlagEmbeddingDims, config.FlagSyncWorkers:
			v := new(uint)
			fv.uints[key] = v
			config.AddUintFlag(cmd, config.ServerFlags, key, v)
		default:
			v := new(string)
			fv.strings[key] = v
			config.AddStringFlag(cmd, config.ServerFlags, key, v)
		}
	}
}

func (c *serveCommander) run(ctx context.Context, configDir string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := c.config

	st, err := stack.New(ctx, cfg, stack.Options{ConfigDir: configDir, Service: ServiceName}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			c.logger.Error("failed to close backends", "error", err)
		}
	}()

	if n, err := st.Pool.Replay(ctx); err != nil {
		c.logger.Error("failed to replay pending syncs", "error", err)
	} else if n > 0 {
		c.logger.Info("replayed pending syncs", "count", n)
	}

	streamer, err := c.newStreamer(ctx)
	if err != nil {
		return err
	}

	chatService, err := chat.NewService(chat.Config{
		Namespace: cfg.Sync.Namespace,
		Model:     cfg.Chat.Model,
		Persona:   prompt.OwnerPersona(cfg.Chat.Owner),
	}, st.Embedder, st.Index, streamer, c.logger)

	if err != nil {
		return fmt.Errorf("creating chat service: %w", err)
	}

	searcher, err := search.NewSearcher(st.Embedder, st.Index, cfg.Sync.Namespace, c.logger)
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Searcher: searcher,
		Projects: st.Projects,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:    cfg.API.Listen,
		Projects:      st.Projects,
		Chat:          chatService,
		Searcher:      searcher,
		Journal:       st.Journal,
		MCP:           mcpServer,
		AdminPassword: cfg.API.AdminPassword,
		AllowOrigins:  cfg.API.AllowOrigins,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if cfg.API.AdminPassword == "" {
		c.logger.Warn("api.admin_password is not set, the admin API is disabled")
	}
	c.logger.Info("serving portfolio",
		"listen", cfg.API.Listen,
		"namespace", cfg.Sync.Namespace,
		"chat_provider", cfg.Chat.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("shutting down API server: %w", err)
		}
		return nil
	}
}

// newStreamer builds the chat model. Missing credentials leave chat
// disabled rather than failing the whole server.
func (c *serveCommander) newStreamer(ctx context.Context) (llm.Streamer, error) {
	cfg := c.config.Chat

	streamer, err := provider.New(ctx, provider.Config{
		Type:    cfg.Provider,
		BaseURL: cfg.Target,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	switch {
	case errors.Is(err, llm.ErrMissingCredentials):
		c.logger.Warn("chat model has no credentials, chat is disabled",
			"provider", cfg.Provider,
			"error", err,
		)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}
	return streamer, nil
}
