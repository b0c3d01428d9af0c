// Package searchcmder provides the `folio search` command for semantic search
// over project memories.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
)

const searchLongDesc string = `Search project memories in the vector index.

Embeds the query and returns the closest projects in this deployment's
namespace, the same results the API and MCP search tool return.

Use --quiet to print only project slugs, one per line.

Example:
  folio search "rust command line tools"
  folio search "data pipelines" --top 10
  folio search "kubernetes" --quiet`

const searchShortDesc string = "Search project memories"

// ServiceName stamps published events.
const ServiceName = "folio-search"

const previewWidth = 80

var searchFlagKeys = []string{
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
}

type searchCommander struct {
	topK  int
	quiet bool

	config *config.Config
	logger *slog.Logger
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, config.ServerFlags, searchFlagKeys)
			if err != nil {
				return err
			}
			cmder.config = cfg
			cmder.logger = stack.NewLogger(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), stack.ConfigDir(cmd), args[0])
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", search.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only project slugs, one per line")
	for _, key := range searchFlagKeys {
		switch key {
		case config.FlagEmbeddingDims:
			config.AddUintFlag(cmd, config.ServerFlags, key, new(uint))
		default:
			config.AddStringFlag(cmd, config.ServerFlags, key, new(string))
		}
	}

	return cmd
}

func (c *searchCommander) run(ctx context.Context, configDir, query string) error {
	st, err := stack.New(ctx, c.config, stack.Options{ConfigDir: configDir, Service: ServiceName}, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	searcher, err := search.NewSearcher(st.Embedder, st.Index, c.config.Sync.Namespace, c.logger)
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}

	output, err := searcher.Search(ctx, query, c.topK)
	if err != nil {
		return err
	}

	PrintResults(os.Stdout, output, c.quiet)
	return nil
}

// PrintResults writes output to w. Quiet output is one slug per line.
func PrintResults(w io.Writer, output *search.SearchOutput, quiet bool) {
	if output.Count == 0 {
		if !quiet {
			fmt.Fprintln(w, "No results found.")
		}
		return
	}

	if quiet {
		for _, r := range output.Results {
			fmt.Fprintln(w, r.Slug)
		}
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.KeyStyle.Render("Search results for:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	for i, r := range output.Results {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(fmt.Sprintf("score: %.4f", r.Score)),
			cliui.IDStyle.Render(r.Slug),
			cliui.VisibilityBadge(r.Visibility),
		)
		fmt.Fprintf(w, "  %s\n\n", cliui.ValueStyle.Render(preview(r.Preview)))
	}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > previewWidth {
		return string(r[:previewWidth-3]) + "..."
	}
	return s
}
