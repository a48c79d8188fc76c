package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/embeddings"
	"github.com/fyrsmithlabs/answerd/internal/vectorstore"
	"go.uber.org/zap"
)

// CollectionState is the point-in-time view of one collection for a single
// response cycle. Document counts are snapshots, not continuously synced;
// seconds-scale staleness is acceptable.
type CollectionState struct {
	Name          string
	Domain        string
	Accessor      vectorstore.Accessor
	DocumentCount int
}

// accessorKey caches accessors per (collection, embedder identity) pair.
// The embedder is an interface holding a comparable *embeddings.Service
// pointer, so re-preparation with an unchanged provider reuses accessors.
type accessorKey struct {
	collection string
	embedder   vectorstore.Embedder
}

// Registry prepares collection state per response cycle, caching one
// accessor per (collection, embedder) pair.
type Registry struct {
	collections []config.CollectionSpec
	cache       *embeddings.Cache
	provider    vectorstore.Provider
	logger      *zap.Logger

	mu        sync.RWMutex
	accessors map[accessorKey]vectorstore.Accessor
}

// NewRegistry creates a collection registry.
func NewRegistry(collections []config.CollectionSpec, cache *embeddings.Cache, provider vectorstore.Provider, logger *zap.Logger) (*Registry, error) {
	if len(collections) == 0 {
		return nil, fmt.Errorf("at least one collection required")
	}
	if cache == nil {
		return nil, fmt.Errorf("embedding cache cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("vector store provider cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		collections: collections,
		cache:       cache,
		provider:    provider,
		logger:      logger,
		accessors:   make(map[accessorKey]vectorstore.Accessor),
	}, nil
}

// Prepare resolves an accessor and a fresh document count for every
// configured collection.
//
// An unresolvable embedding provider is a configuration error and aborts
// the cycle. A failing accessor open or count lookup is recovered locally:
// the collection is reported with zero documents so the rest of the cycle
// proceeds without it.
func (r *Registry) Prepare(ctx context.Context) ([]CollectionState, error) {
	states := make([]CollectionState, 0, len(r.collections))

	for _, col := range r.collections {
		embedder, err := r.cache.Get(col.Domain)
		if err != nil {
			return nil, fmt.Errorf("resolving embedder for domain %s: %w", col.Domain, err)
		}

		state := CollectionState{Name: col.Name, Domain: col.Domain}

		accessor, err := r.accessor(ctx, col.Name, embedder)
		if err != nil {
			r.logger.Warn("opening collection accessor failed, treating collection as empty",
				zap.String("collection", col.Name),
				zap.Error(err),
			)
			states = append(states, state)
			continue
		}
		state.Accessor = accessor

		// Count lookups block on backend I/O and run outside the
		// accessor cache lock.
		count, err := accessor.Count(ctx)
		if err != nil {
			r.logger.Warn("counting collection documents failed, treating collection as empty",
				zap.String("collection", col.Name),
				zap.Error(err),
			)
			count = 0
		}
		state.DocumentCount = count

		states = append(states, state)
	}

	return states, nil
}

// accessor returns the cached accessor for the pair, constructing it at
// most once. The fast path is a read-locked map lookup; on a miss the
// write lock is taken and the map re-checked before opening. The entry is
// published only after a successful open.
func (r *Registry) accessor(ctx context.Context, collection string, embedder vectorstore.Embedder) (vectorstore.Accessor, error) {
	key := accessorKey{collection: collection, embedder: embedder}

	r.mu.RLock()
	accessor, ok := r.accessors[key]
	r.mu.RUnlock()
	if ok {
		return accessor, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if accessor, ok := r.accessors[key]; ok {
		return accessor, nil
	}

	accessor, err := r.provider.Open(ctx, collection, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening accessor for collection %s: %w", collection, err)
	}

	r.accessors[key] = accessor
	r.logger.Debug("collection accessor created", zap.String("collection", collection))

	return accessor, nil
}
