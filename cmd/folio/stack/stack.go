// Package stack assembles the content store, vector index, sync outbox and
// project service from a resolved config. It is shared by "folio serve",
// "folio sync", "folio seed" and "folio projects".
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
	"github.com/papercomputeco/folio/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/folio/pkg/embeddings/utils"
	"github.com/papercomputeco/folio/pkg/eventstream"
	"github.com/papercomputeco/folio/pkg/eventstream/kafka"
	"github.com/papercomputeco/folio/pkg/eventstream/nop"
	"github.com/papercomputeco/folio/pkg/outbox"
	outboxbolt "github.com/papercomputeco/folio/pkg/outbox/bolt"
	outboxmem "github.com/papercomputeco/folio/pkg/outbox/inmemory"
	"github.com/papercomputeco/folio/pkg/portfolio"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/storage/inmemory"
	"github.com/papercomputeco/folio/pkg/storage/postgres"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
	"github.com/papercomputeco/folio/pkg/syncer"
	"github.com/papercomputeco/folio/pkg/vector"
	vectorutils "github.com/papercomputeco/folio/pkg/vector/utils"
)

// Default file names inside the .folio/ directory.
const (
	ContentDBFile = "folio.db"
	VectorDBFile  = "memories.db"
	JournalFile   = "outbox.db"
)

// Options tweak what New builds.
type Options struct {
	// ConfigDir overrides .folio/ directory resolution.
	ConfigDir string

	// Service names this process in published events.
	Service string

	// SkipIndex builds only the content store and project service. Sync
	// tasks are still journaled so a later "folio sync pending" picks
	// them up.
	SkipIndex bool
}

// Stack is a wired set of backends. Close releases them in reverse order.
type Stack struct {
	Config *config.Config

	Store     storage.Driver
	Embedder  *embeddings.Lazy
	Index     vector.Driver
	Journal   outbox.Journal
	Syncer    *syncer.Orchestrator
	Pool      *outbox.Pool
	Publisher eventstream.Publisher
	Projects  *portfolio.Service

	logger  *slog.Logger
	closers []func() error
}

// New builds a Stack. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Stack{Config: cfg, logger: logger}
	if err := s.build(ctx, opts); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) build(ctx context.Context, opts Options) error {
	var err error
	cfg := s.Config

	s.Store, err = s.newStore(ctx, opts.ConfigDir)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.Store.Close)

	s.Journal, err = s.newJournal(opts.ConfigDir)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.Journal.Close)

	s.Publisher, err = s.newPublisher()
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.Publisher.Close)

	var enqueuer portfolio.Enqueuer = journalOnly{s.Journal}
	if !opts.SkipIndex {
		if err := s.buildSync(ctx, opts.ConfigDir); err != nil {
			return err
		}
		enqueuer = s.Pool
	}

	s.Projects, err = portfolio.NewService(portfolio.Config{
		Store:     s.Store,
		Outbox:    enqueuer,
		Publisher: s.Publisher,
		Source: eventstream.EventSource{
			Namespace: cfg.Sync.Namespace,
			Service:   opts.Service,
		},
		Logger: s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating project service: %w", err)
	}
	return nil
}

func (s *Stack) buildSync(ctx context.Context, configDir string) error {
	var err error
	cfg := s.Config

	s.Embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	s.closers = append(s.closers, s.Embedder.Close)
	s.logger.Info("embedder configured",
		"provider", cfg.Embedding.Provider,
		"model", cfg.Embedding.Model,
	)

	target := cfg.VectorStore.Target
	if target == "" && cfg.VectorStore.Provider == vectorutils.ProviderSQLite {
		target = resolveFile(configDir, VectorDBFile)
	}
	s.Index, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    target,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       cfg.VectorStore.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	s.closers = append(s.closers, s.Index.Close)

	s.logger.Info("vector index configured",
		"provider", cfg.VectorStore.Provider,
		"collection", cfg.VectorStore.Collection,
	)

	s.Syncer, err = syncer.New(syncer.Config{
		Store:     s.Store,
		Embedder:  s.Embedder,
		Index:     s.Index,
		Namespace: cfg.Sync.Namespace,
		Logger:    s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating sync orchestrator: %w", err)
	}

	// An unreachable index degrades sync instead of failing startup. Tasks
	// stay journaled and each one retries the collection until it is ready.
	if err := s.Syncer.EnsureIndex(ctx); err != nil {
		s.logger.Warn("starting with sync degraded", "error", err)
	}

	s.Pool, err = outbox.NewPool(&outbox.Config{
		Journal:    s.Journal,
		Handler:    s.Syncer,
		NumWorkers: cfg.Sync.Workers,
		Logger:     s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating sync pool: %w", err)
	}
	s.closers = append(s.closers, func() error {
		s.Pool.Close()
		return nil
	})
	return nil
}

func (s *Stack) newStore(ctx context.Context, configDir string) (storage.Driver, error) {
	cfg := s.Config.Storage

	switch cfg.Provider {
	case "sqlite", "":
		path := cfg.SQLitePath
		if path == "" {
			path = resolveFile(configDir, ContentDBFile)
		}
		driver, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite content store: %w", err)
		}
		s.logger.Info("using sqlite content store", "path", path)
		return driver, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres content store")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres content store: %w", err)
		}
		s.logger.Info("using postgres content store")
		return driver, nil

	case "memory":
		s.logger.Warn("using in-memory content store, projects are lost on exit")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// newJournal opens the bbolt journal at sync.journal_path, or at
// .folio/outbox.db when a .folio/ directory exists. Otherwise pending tasks
// only live as long as the process.
func (s *Stack) newJournal(configDir string) (outbox.Journal, error) {
	path := s.Config.Sync.JournalPath
	if path == "" {
		p, err := dotdir.NewManager().Path(configDir, JournalFile)
		if err != nil {
			return nil, err
		}
		path = p
	}

	if path == "" {
		s.logger.Warn("no journal path, pending syncs are kept in memory")
		return outboxmem.NewJournal(), nil
	}

	j, err := outboxbolt.NewJournal(path)
	if err != nil {
		return nil, fmt.Errorf("opening sync journal: %w", err)
	}
	s.logger.Info("using sync journal", "path", path)
	return j, nil
}

func (s *Stack) newPublisher() (eventstream.Publisher, error) {
	cfg := s.Config.Events

	switch cfg.Provider {
	case "nop", "":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitList(cfg.Brokers),
			Topic:   cfg.Topic,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		s.logger.Info("publishing project events to kafka", "topic", cfg.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Provider)
	}
}

// Close releases every backend, newest first.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// journalOnly records tasks without processing them.
type journalOnly struct {
	journal outbox.Journal
}

func (j journalOnly) Enqueue(ctx context.Context, t outbox.Task) (bool, error) {
	if err := j.journal.Put(ctx, t); err != nil {
		return false, err
	}
	return false, nil
}

// resolveFile places name in the .folio/ directory when one exists, and in
// the working directory otherwise.
func resolveFile(configDir, name string) string {
	path, err := dotdir.NewManager().Path(configDir, name)
	if err != nil || path == "" {
		return name
	}
	return path
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
