package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent folio configuration stored as config.toml
// in the .folio/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chat        ChatConfig        `toml:"chat"`
	Sync        SyncConfig        `toml:"sync"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig selects the content store backing projects and integration
// mappings.
type StorageConfig struct {
	// Provider is one of "sqlite", "postgres" or "memory".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// AdminPassword guards the /v1/admin routes. Admin routes answer 503
	// when it is empty.
	AdminPassword string `toml:"admin_password,omitempty"`

	// AllowOrigins is a comma separated CORS allow list for the public site.
	AllowOrigins string `toml:"allow_origins,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. folio chat). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	// Provider is one of "sqlite", "qdrant", "pgvector", "chroma" or "memory".
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// ChatConfig holds the generative model settings for the chat endpoint.
type ChatConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`

	// Owner is the portfolio owner's name used in the assistant persona.
	Owner string `toml:"owner,omitempty"`
}

// SyncConfig holds settings for the vector index sync pipeline.
type SyncConfig struct {
	// Namespace tags every memory written by this deployment.
	Namespace string `toml:"namespace,omitempty"`

	// Workers is the number of sync worker goroutines.
	Workers uint `toml:"workers,omitempty"`

	// JournalPath is the bbolt outbox journal file. Empty uses
	// .folio/outbox.db when a .folio directory exists and memory otherwise.
	JournalPath string `toml:"journal_path,omitempty"`
}

// EventsConfig holds the project change event publisher settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"api.listen":         stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.admin_password": stringKey(func(c *Config) *string { return &c.API.AdminPassword }),
	"api.allow_origins":  stringKey(func(c *Config) *string { return &c.API.AllowOrigins }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),

	"chat.provider": stringKey(func(c *Config) *string { return &c.Chat.Provider }),
	"chat.target":   stringKey(func(c *Config) *string { return &c.Chat.Target }),
	"chat.model":    stringKey(func(c *Config) *string { return &c.Chat.Model }),
	"chat.api_key":  stringKey(func(c *Config) *string { return &c.Chat.APIKey }),
	"chat.owner":    stringKey(func(c *Config) *string { return &c.Chat.Owner }),

	"sync.namespace":    stringKey(func(c *Config) *string { return &c.Sync.Namespace }),
	"sync.workers":      uintKey("sync.workers", func(c *Config) *uint { return &c.Sync.Workers }),
	"sync.journal_path": stringKey(func(c *Config) *string { return &c.Sync.JournalPath }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// orderedKeys lists config keys in the TOML section layout order.
var orderedKeys = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"api.listen",
	"api.admin_password",
	"api.allow_origins",
	"client.api_target",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.api_key",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"chat.provider",
	"chat.target",
	"chat.model",
	"chat.api_key",
	"chat.owner",
	"sync.namespace",
	"sync.workers",
	"sync.journal_path",
	"events.provider",
	"events.brokers",
	"events.topic",
}

// secretKeys are masked by "folio config list".
var secretKeys = map[string]bool{
	"api.admin_password":   true,
	"vector_store.api_key": true,
	"embedding.api_key":    true,
	"chat.api_key":         true,
}

// IsSecretKey reports whether the value stored under key should be masked
// when displayed.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
