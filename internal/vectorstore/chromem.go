package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("answerd.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/answerd/vectorstore"
	}
}

// ChromemProvider opens collection accessors backed by chromem-go.
//
// chromem-go is an embeddable vector database with no external service
// dependency. One persistent DB serves all collections.
type ChromemProvider struct {
	db     *chromem.DB
	logger *zap.Logger
}

// NewChromemProvider creates a provider over a persistent chromem database.
func NewChromemProvider(config ChromemConfig, logger *zap.Logger) (*ChromemProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Info("chromem provider initialized",
		zap.String("path", path),
		zap.Bool("compress", config.Compress),
	)

	return &ChromemProvider{db: db, logger: logger}, nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Open returns an accessor for the named collection.
func (p *ChromemProvider) Open(ctx context.Context, collection string, embedder Embedder) (Accessor, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}

	col, err := p.db.GetOrCreateCollection(collection, nil, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	return &chromemAccessor{
		name:   collection,
		col:    col,
		logger: p.logger.With(zap.String("collection", collection)),
	}, nil
}

// Close releases provider resources. The chromem DB has no connection to
// close; persistence happens per write.
func (p *ChromemProvider) Close() error {
	return nil
}

// chromemAccessor is the Accessor over one chromem collection.
type chromemAccessor struct {
	name   string
	col    *chromem.Collection
	logger *zap.Logger
}

// SimilaritySearch returns up to k documents most similar to query.
// Results carry the cosine similarity under the "similarity" metadata key
// (higher is more similar).
func (a *chromemAccessor) SimilaritySearch(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "chromemAccessor.SimilaritySearch")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", a.name),
		attribute.Int("k", k),
	)

	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	// chromem requires nResults <= doc count
	count := a.col.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := a.col.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", a.name, err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]interface{}, len(r.Metadata)+1)
		for key, v := range r.Metadata {
			metadata[key] = v
		}
		metadata["similarity"] = float64(r.Similarity)

		out = append(out, SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: metadata,
		})
	}

	span.SetAttributes(attribute.Int("results", len(out)))
	a.logger.Debug("similarity search completed",
		zap.Int("k", k),
		zap.Int("results", len(out)),
	)

	return out, nil
}

// Count returns the current number of documents in the collection.
func (a *chromemAccessor) Count(ctx context.Context) (int, error) {
	return a.col.Count(), nil
}
