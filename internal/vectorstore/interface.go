// Package vectorstore provides collection accessors over vector storage
// backends.
//
// A Provider owns a backend connection (embedded chromem-go database or an
// external Qdrant server) and opens one Accessor per collection. Accessors
// are cheap handles; callers cache them per (collection, embedder) pair.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrConnectionFailed indicates the backend is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// Embedder generates vector embeddings from text.
//
// The method set matches langchaingo's embeddings.Embedder so provider
// implementations can hand an Embedder straight to langchaingo stores.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Accessor is a retrieval handle onto one collection.
//
// Accessors are safe for concurrent use. SimilaritySearch and Count may
// block on backend I/O and honor context cancellation.
type Accessor interface {
	// SimilaritySearch returns up to k documents most similar to query.
	// Each result's metadata carries the backend's ranking signal under
	// one of the keys "distance", "score" or "similarity".
	SimilaritySearch(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Count returns the current number of documents in the collection.
	Count(ctx context.Context) (int, error)
}

// Provider opens collection accessors against one storage backend.
type Provider interface {
	// Open returns an accessor for the named collection using the given
	// embedder for query vectorization. Opening the same collection twice
	// returns independent but equivalent accessors; callers that need
	// instance reuse cache the result.
	Open(ctx context.Context, collection string, embedder Embedder) (Accessor, error)

	// Close releases backend resources.
	Close() error
}
