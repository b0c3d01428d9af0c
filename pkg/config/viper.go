package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/folio/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads .env files, and binds environment
// variables with the FOLIO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FOLIO_API_LISTEN, FOLIO_CHAT_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := loadDotEnv(target); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// loadDotEnv loads ./.env and <dotdir>/.env into the process environment.
// Variables already set in the environment win.
func loadDotEnv(target string) error {
	candidates := []string{".env"}
	if target != "" {
		candidates = append(candidates, filepath.Join(target, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range orderedKeys {
		info := configKeys[key]
		switch key {
		case "embedding.dimensions":
			v.SetDefault(key, d.Embedding.Dimensions)
		case "sync.workers":
			v.SetDefault(key, d.Sync.Workers)
		default:
			v.SetDefault(key, info.get(d))
		}
	}
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{Version: v.GetInt("version")}
	for _, key := range orderedKeys {
		info := configKeys[key]
		switch key {
		case "embedding.dimensions":
			cfg.Embedding.Dimensions = v.GetUint(key)
		case "sync.workers":
			cfg.Sync.Workers = v.GetUint(key)
		default:
			_ = info.set(cfg, v.GetString(key))
		}
	}
	return cfg
}
