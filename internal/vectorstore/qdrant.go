package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tmc/langchaingo/vectorstores/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var qdrantTracer = otel.Tracer("answerd.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant backend.
type QdrantConfig struct {
	// URL is the Qdrant server URL (e.g. http://localhost:6333).
	URL string

	// APIKey authenticates against a secured Qdrant deployment. Optional.
	APIKey string
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: Qdrant URL required", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("%w: parsing Qdrant URL: %v", ErrInvalidConfig, err)
	}
	return nil
}

// QdrantProvider opens collection accessors backed by an external Qdrant
// server via langchaingo's vector store client.
//
// Collections are expected to exist on the server; answerd does not
// populate them (ingestion is a separate system).
type QdrantProvider struct {
	config QdrantConfig
	client *http.Client
	logger *zap.Logger
}

// NewQdrantProvider creates a provider against a Qdrant server.
func NewQdrantProvider(config QdrantConfig, logger *zap.Logger) (*QdrantProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QdrantProvider{
		config: config,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Open returns an accessor for the named collection.
func (p *QdrantProvider) Open(ctx context.Context, collection string, embedder Embedder) (Accessor, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}

	qdrantURL, err := url.Parse(p.config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing Qdrant URL: %v", ErrInvalidConfig, err)
	}

	opts := []qdrant.Option{
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(collection),
		qdrant.WithEmbedder(embedder),
	}
	if p.config.APIKey != "" {
		opts = append(opts, qdrant.WithAPIKey(p.config.APIKey))
	}

	store, err := qdrant.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating Qdrant store for %s: %v", ErrConnectionFailed, collection, err)
	}

	return &qdrantAccessor{
		name:     collection,
		store:    store,
		provider: p,
		logger:   p.logger.With(zap.String("collection", collection)),
	}, nil
}

// Close releases provider resources.
func (p *QdrantProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// qdrantAccessor is the Accessor over one Qdrant collection.
type qdrantAccessor struct {
	name     string
	store    qdrant.Store
	provider *QdrantProvider
	logger   *zap.Logger
}

// SimilaritySearch returns up to k documents most similar to query.
// Results carry the server-reported relevance under the "score" metadata
// key (higher is more similar).
func (a *qdrantAccessor) SimilaritySearch(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrantAccessor.SimilaritySearch")
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

	docs, err := a.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", a.name, err)
	}

	out := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		metadata := make(map[string]interface{}, len(doc.Metadata)+1)
		for key, v := range doc.Metadata {
			metadata[key] = v
		}
		metadata["score"] = float64(doc.Score)

		out = append(out, SearchResult{
			Content:  doc.PageContent,
			Metadata: metadata,
		})
	}

	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// Count returns the collection's point count via the Qdrant REST API.
func (a *qdrantAccessor) Count(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/collections/%s", a.provider.config.URL, a.name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if a.provider.config.APIKey != "" {
		req.Header.Set("api-key", a.provider.config.APIKey)
	}

	resp, err := a.provider.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, a.name)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d for collection %s", resp.StatusCode, a.name)
	}

	var body struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding collection info: %w", err)
	}

	return body.Result.PointsCount, nil
}
