package embeddings

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// CacheConfig holds the domain-to-model mapping for the provider cache.
type CacheConfig struct {
	// BaseURL is the embedding API base URL shared by all providers.
	BaseURL string

	// DefaultModel serves domains absent from Models.
	DefaultModel string

	// Models maps a business domain to its embedding model name.
	Models map[string]string

	// APIKey is passed through to each provider. Optional.
	APIKey string
}

// Validate validates the configuration.
func (c CacheConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("%w: default model required", ErrInvalidConfig)
	}
	return nil
}

// Cache lazily constructs and shares embedding providers per model name.
//
// Domains resolving to the same model observe the same *Service instance;
// downstream accessor caching is keyed by that identity. Construction
// happens at most once per model, even under concurrent first use.
type Cache struct {
	config CacheConfig
	logger *zap.Logger

	mu        sync.RWMutex
	providers map[string]*Service

	// construct builds a provider for a model. Overridable in tests.
	construct func(Config, *zap.Logger) (*Service, error)
}

// NewCache creates a provider cache.
func NewCache(config CacheConfig, logger *zap.Logger) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		config:    config,
		logger:    logger,
		providers: make(map[string]*Service),
		construct: NewService,
	}, nil
}

// ModelFor resolves the embedding model configured for a domain,
// falling back to the default model.
func (c *Cache) ModelFor(domain string) string {
	if model, ok := c.config.Models[domain]; ok && model != "" {
		return model
	}
	return c.config.DefaultModel
}

// Get returns the shared embedding provider for a domain.
//
// The fast path reads the provider map under a read lock. On a miss the
// write lock is taken and the map re-checked before constructing, so a
// thundering herd of first-time callers still constructs exactly once.
// The provider is published only after successful construction; a failed
// construction leaves no entry behind.
func (c *Cache) Get(domain string) (*Service, error) {
	model := c.ModelFor(domain)

	c.mu.RLock()
	provider, ok := c.providers[model]
	c.mu.RUnlock()
	if ok {
		return provider, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if provider, ok := c.providers[model]; ok {
		return provider, nil
	}

	provider, err := c.construct(Config{
		BaseURL: c.config.BaseURL,
		Model:   model,
		APIKey:  c.config.APIKey,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("constructing embedding provider for model %s: %w", model, err)
	}

	c.providers[model] = provider
	c.logger.Info("embedding provider created",
		zap.String("domain", domain),
		zap.String("model", model),
	)

	return provider, nil
}
