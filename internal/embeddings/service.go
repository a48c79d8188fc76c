// Package embeddings provides embedding generation via a TEI-compatible
// HTTP service, plus the per-domain provider cache.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Config holds configuration for one embedding provider.
type Config struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// APIKey is the API key (optional for TEI).
	APIKey string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Service generates embeddings for one model via a TEI-compatible endpoint.
//
// A Service is safe for concurrent use and is shared across every domain
// that resolves to its model (see Cache).
type Service struct {
	config  Config
	client  *http.Client
	metrics *Metrics
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:  config,
		client:  &http.Client{},
		metrics: NewMetrics(logger),
	}, nil
}

// Model returns the model name this service embeds with.
func (s *Service) Model() string {
	return s.config.Model
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		genErr = err
		return nil, genErr
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors, err := s.embed(ctx, text)
	if err != nil {
		genErr = err
		return nil, genErr
	}
	if len(vectors) == 0 {
		genErr = fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
		return nil, genErr
	}
	return vectors[0], nil
}

// embed posts inputs to the TEI embed endpoint and decodes the vectors.
func (s *Service) embed(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return vectors, nil
}
