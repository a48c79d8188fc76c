// Package config provides configuration loading for answerd.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. See loader.go for precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete answerd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Collections []CollectionSpec  `koanf:"collections"`
	Routing     RoutingConfig     `koanf:"routing"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Compliance  ComplianceConfig  `koanf:"compliance"`
	Generation  GenerationConfig  `koanf:"generation"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// EmbeddingsConfig holds embedding provider configuration.
//
// Models maps a business domain to the embedding model serving it. Domains
// absent from the map fall back to DefaultModel. Several domains may share
// one model; the embedding cache guarantees they share one provider
// instance as well.
type EmbeddingsConfig struct {
	BaseURL      string            `koanf:"base_url"`
	DefaultModel string            `koanf:"default_model"`
	Models       map[string]string `koanf:"models"`
	APIKey       string            `koanf:"api_key"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the external Qdrant store.
type QdrantConfig struct {
	URL string `koanf:"url"`
}

// CollectionSpec maps a collection name to its business domain.
//
// The collections table is loaded once at startup and never mutated.
type CollectionSpec struct {
	Name   string `koanf:"name"`
	Domain string `koanf:"domain"`
}

// RoutingConfig holds task routing configuration.
//
// Variants maps a business domain to the prompt variant used when a task
// resolves to that domain. Domains absent from the map use DefaultVariant.
type RoutingConfig struct {
	DefaultVariant string            `koanf:"default_variant"`
	Variants       map[string]string `koanf:"variants"`
}

// RetrievalConfig holds retrieval and ranking configuration.
type RetrievalConfig struct {
	// ContextLimit is the overall context-size budget: the maximum number
	// of merged documents handed to the generation backend per request.
	ContextLimit int `koanf:"context_limit"`

	// PerCollectionK is the top-K passed to each collection's
	// similarity query.
	PerCollectionK int `koanf:"per_collection_k"`
}

// ComplianceConfig holds guardrail configuration for regulated content.
type ComplianceConfig struct {
	// RegulatedCollection names the collection whose documents are subject
	// to metadata validation. Empty disables the guard.
	RegulatedCollection string `koanf:"regulated_collection"`

	// AllowedFields is the metadata key allow-list for regulated
	// documents. Empty uses the built-in default list.
	AllowedFields []string `koanf:"allowed_fields"`
}

// GenerationConfig holds language-model backend configuration.
type GenerationConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`

	// Prompts overrides the built-in system prompt per variant name.
	Prompts map[string]string `koanf:"prompts"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9180
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "http://localhost:8080"
	}
	if c.Embeddings.DefaultModel == "" {
		c.Embeddings.DefaultModel = "BAAI/bge-small-en-v1.5"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "~/.local/share/answerd/vectorstore"
	}
	if c.VectorStore.Qdrant.URL == "" {
		c.VectorStore.Qdrant.URL = "http://localhost:6333"
	}
	if c.Routing.DefaultVariant == "" {
		c.Routing.DefaultVariant = "general"
	}
	if c.Retrieval.ContextLimit == 0 {
		c.Retrieval.ContextLimit = 12
	}
	if c.Retrieval.PerCollectionK == 0 {
		c.Retrieval.PerCollectionK = 5
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "http://localhost:11434/v1"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama3.1"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be 1-65535)", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("%w: logging format must be json or console, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Embeddings.DefaultModel == "" {
		return fmt.Errorf("%w: default embedding model required", ErrInvalidConfig)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: unsupported vectorstore provider %q (supported: chromem, qdrant)",
			ErrInvalidConfig, c.VectorStore.Provider)
	}
	if len(c.Collections) == 0 {
		return fmt.Errorf("%w: at least one collection required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
		}
		if col.Domain == "" {
			return fmt.Errorf("%w: collection %q missing domain", ErrInvalidConfig, col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidConfig, col.Name)
		}
		seen[col.Name] = true
	}
	if c.Compliance.RegulatedCollection != "" {
		if _, ok := c.DomainFor(c.Compliance.RegulatedCollection); !ok {
			return fmt.Errorf("%w: regulated collection %q is not a configured collection",
				ErrInvalidConfig, c.Compliance.RegulatedCollection)
		}
	}
	if c.Retrieval.ContextLimit <= 0 {
		return fmt.Errorf("%w: context limit must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.PerCollectionK <= 0 {
		return fmt.Errorf("%w: per-collection k must be positive", ErrInvalidConfig)
	}
	return nil
}

// DomainFor returns the domain of a configured collection name.
// The second return value reports whether the collection is configured.
func (c *Config) DomainFor(collection string) (string, bool) {
	for _, col := range c.Collections {
		if col.Name == collection {
			return col.Domain, true
		}
	}
	return "", false
}

// Domains returns the distinct domains across all configured collections,
// in configuration order.
func (c *Config) Domains() []string {
	seen := make(map[string]bool)
	var domains []string
	for _, col := range c.Collections {
		if !seen[col.Domain] {
			seen[col.Domain] = true
			domains = append(domains, col.Domain)
		}
	}
	return domains
}
