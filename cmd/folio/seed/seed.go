// Package seedcmder provides the seed command that imports projects from
// YAML files.
package seedcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/seed"
)

const seedLongDesc string = `Import projects from YAML files.

Each file holds one project, a list of projects, or a "projects:" list.
Patterns support ** to match nested directories. Projects are matched to
stored ones by slug, so running seed again only updates what changed.

Unless --no-sync is set, every change is mirrored into the vector index
before the command exits. With --no-sync the syncs are journaled for
"folio sync pending" or the next "folio serve".

Examples:
  folio seed projects/*.yaml
  folio seed 'content/**/*.yml' --watch
  folio seed projects.yaml --no-sync`

const seedShortDesc string = "Import projects from YAML files"

// ServiceName stamps published events.
const ServiceName = "folio-seed"

var seedFlagKeys = []string{
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagNamespace,
	config.FlagJournal,
}

type seedCommander struct {
	watch  bool
	noSync bool

	config *config.Config
	logger *slog.Logger
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed <pattern>...",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, config.ServerFlags, seedFlagKeys)
			if err != nil {
				return err
			}
			cmder.config = cfg
			cmder.logger = stack.NewLogger(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), stack.ConfigDir(cmd), args)
		},
	}

	for _, key := range seedFlagKeys {
		if key == config.FlagEmbeddingDims {
			config.AddUintFlag(cmd, config.ServerFlags, key, new(uint))
			continue
		}
		config.AddStringFlag(cmd, config.ServerFlags, key, new(string))
	}
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep running and reseed when files change")
	cmd.Flags().BoolVar(&cmder.noSync, "no-sync", false, "Journal index syncs instead of running them")

	return cmd
}

func (c *seedCommander) run(ctx context.Context, configDir string, patterns []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := stack.New(ctx, c.config, stack.Options{
		ConfigDir: configDir,
		Service:   ServiceName,
		SkipIndex: c.noSync,
	}, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	once := func() error {
		var res *seed.Result
		err := cliui.Step(os.Stdout, "Seeding projects", func() error {
			entries, err := seed.Load(patterns)
			if err != nil {
				return err
			}
			res, err = seed.Apply(ctx, st.Projects, entries)
			if err != nil {
				return err
			}
			if st.Pool != nil {
				st.Pool.Wait()
			}
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("\n  %s %s\n", cliui.Mark(nil), res.Summary())
		for key, err := range res.Errors {
			fmt.Printf("    %s %s %v\n", cliui.FailMark, cliui.NameStyle.Render(key), err)
		}
		fmt.Println()
		return nil
	}

	if err := once(); err != nil && !c.watch {
		return err
	}
	if !c.watch {
		return nil
	}

	return seed.Watch(ctx, patterns, seed.DefaultDebounce, c.logger, func() {
		if err := once(); err != nil {
			c.logger.Error("reseed failed", "error", err)
		}
	})
}
