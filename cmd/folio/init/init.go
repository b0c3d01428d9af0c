// Package initcmder provides the init command for initializing a local .folio
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .folio/ directory in the current working directory.

Creates a local .folio/ directory that takes precedence over ~/.folio/ for
configuration, the default SQLite databases and the sync journal, then
writes a config.toml.

--preset selects the model providers for chat and embeddings:
  gemini    Gemini chat and Gemini embeddings (the default)
  openai    OpenAI chat and OpenAI embeddings
  local     Ollama chat and Ollama embeddings on localhost

A preset may also be an http(s) URL pointing at a config.toml to download.
Running init again with a preset replaces the existing config.toml.

Examples:
  folio init
  folio init --preset local
  folio init --preset https://example.com/folio/config.toml`

const initShortDesc string = "Initialize a local .folio/ directory"

const fetchTimeout = 30 * time.Second

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or config.toml URL")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	// Resolve the preset before creating anything.
	var (
		preset *config.Config
		remote []byte
	)
	switch {
	case c.preset == "":
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		remote, err = fetch(ctx, c.preset)
		if err != nil {
			return fmt.Errorf("fetching remote config: %w", err)
		}
		if _, err := config.ParseConfigTOML(remote); err != nil {
			return fmt.Errorf("parsing remote config: %w", err)
		}
	default:
		preset, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	dir, err := dotdir.NewManager().Init(cwd)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	switch {
	case remote != nil:
		if err := os.WriteFile(cfger.GetTarget(), remote, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	case preset != nil:
		if err := cfger.SaveConfig(preset); err != nil {
			return err
		}
	default:
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			fmt.Printf("\n  %s Already initialized: %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
			return nil
		}
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	fmt.Printf("\n  %s Initialized %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(`Next: "folio config list" to review settings, "folio seed" to import projects.`))
	return nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}
	return data, nil
}
