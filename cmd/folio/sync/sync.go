// Package synccmder provides the `folio sync` commands that mirror projects
// into the vector index outside of the API server.
package synccmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/syncer"
)

const syncLongDesc string = `Sync projects into the vector index.

  folio sync all        Re-sync every project (private projects are removed)
  folio sync pending    Retry syncs left pending by failures or restarts`

const syncShortDesc string = "Sync projects into the vector index"

// ServiceName stamps published events.
const ServiceName = "folio-sync"

var syncFlagKeys = []string{
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
	config.FlagSyncWorkers,
	config.FlagJournal,
}

type syncCommander struct {
	config *config.Config
	logger *slog.Logger
}

func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
	}

	cmd.AddCommand(newAllCmd())
	cmd.AddCommand(newPendingCmd())

	return cmd
}

func newAllCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:     "all",
		Short:   "Re-sync every project",
		Args:    cobra.NoArgs,
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runAll(cmd.Context(), stack.ConfigDir(cmd))
		},
	}

	registerFlags(cmd)
	return cmd
}

func newPendingCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:     "pending",
		Short:   "Retry pending syncs from the journal",
		Args:    cobra.NoArgs,
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runPending(cmd.Context(), stack.ConfigDir(cmd))
		},
	}

	registerFlags(cmd)
	return cmd
}

func registerFlags(cmd *cobra.Command) {
	for _, key := range syncFlagKeys {
		switch key {
		case config.FlagEmbeddingDims, config.FlagSyncWorkers:
			config.AddUintFlag(cmd, config.ServerFlags, key, new(uint))
		default:
			config.AddStringFlag(cmd, config.ServerFlags, key, new(string))
		}
	}
}

func (c *syncCommander) preRun(cmd *cobra.Command, _ []string) error {
	cfg, err := stack.LoadConfig(cmd, config.ServerFlags, syncFlagKeys)
	if err != nil {
		return err
	}
	c.config = cfg
	c.logger = stack.NewLogger(cmd)
	return nil
}

func (c *syncCommander) runAll(ctx context.Context, configDir string) error {
	st, err := stack.New(ctx, c.config, stack.Options{ConfigDir: configDir, Service: ServiceName}, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		bar  *progressbar.ProgressBar
		once sync.Once
	)
	progress := func(done, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Syncing[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		})
		_ = bar.Set(done)
	}

	result, err := st.Syncer.SyncAll(ctx, progress)
	if err != nil {
		return err
	}

	// Settle journaled tasks. Their projects were just synced.
	if _, err := st.Pool.Replay(ctx); err != nil {
		return err
	}
	st.Pool.Wait()

	printResult(result)
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d projects failed to sync", result.Failed, result.Total)
	}
	return nil
}

func (c *syncCommander) runPending(ctx context.Context, configDir string) error {
	st, err := stack.New(ctx, c.config, stack.Options{ConfigDir: configDir, Service: ServiceName}, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var replayed int
	if err := cliui.Step(os.Stdout, "Replaying pending syncs", func() error {
		var err error
		replayed, err = st.Pool.Replay(ctx)
		if err != nil {
			return err
		}
		st.Pool.Wait()
		return nil
	}); err != nil {
		return err
	}

	left, err := st.Journal.List(ctx)
	if err != nil {
		return fmt.Errorf("listing pending syncs: %w", err)
	}

	fmt.Printf("\n  %s Replayed %s, %s still pending\n",
		cliui.Mark(nil),
		cliui.NameStyle.Render(fmt.Sprint(replayed)),
		cliui.NameStyle.Render(fmt.Sprint(len(left))),
	)
	printPending(left)
	fmt.Println()

	if len(left) > 0 {
		return fmt.Errorf("%d syncs still pending", len(left))
	}
	return nil
}

func printResult(r *syncer.Result) {
	mark := cliui.Mark(nil)
	if r.Failed > 0 {
		mark = cliui.FailMark
	}
	fmt.Printf("\n  %s %s\n", mark, r.Summary())
}

func printPending(tasks []outbox.Task) {
	for _, t := range tasks {
		fmt.Printf("    %s %s %s\n",
			cliui.IDStyle.Render(t.ProjectID),
			cliui.DimStyle.Render(fmt.Sprintf("(%s, %d attempts)", t.Op, t.Attempts)),
			t.LastError,
		)
	}
}
