package stack

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/logger"
)

// LoadConfig resolves the config for cmd with the precedence
// flag > env > config.toml > defaults. keys names the flags of fs that
// cmd registered.
func LoadConfig(cmd *cobra.Command, fs config.FlagSet, keys []string) (*config.Config, error) {
	configDir := ConfigDir(cmd)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, fs, keys)

	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// ConfigDir returns the --config-dir flag, or "" when unset.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// NewLogger builds the command logger from the --debug flag. Output is
// pretty on a terminal and JSON otherwise.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	interactive := term.IsTerminal(int(os.Stderr.Fd()))

	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(interactive),
		logger.WithJSON(!interactive),
		logger.WithWriter(os.Stderr),
	)
}
