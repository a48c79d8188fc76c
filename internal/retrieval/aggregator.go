package retrieval

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var aggregatorTracer = otel.Tracer("answerd.retrieval.aggregator")

// UnknownCollection labels documents whose provenance could not be
// established in the provenance breakdown.
const UnknownCollection = "unknown"

// Aggregator fans a query out to the selected collections, merges the
// results under one ranking policy and truncates to the context budget.
type Aggregator struct {
	// perCollectionK is the top-K passed to each collection's
	// similarity query.
	perCollectionK int

	// contextLimit is the overall context-size budget after merging.
	contextLimit int

	logger *zap.Logger
}

// NewAggregator creates a retrieval aggregator.
func NewAggregator(perCollectionK, contextLimit int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		perCollectionK: perCollectionK,
		contextLimit:   contextLimit,
		logger:         logger,
	}
}

// Collect queries every selected populated collection, tags provenance,
// merges and ranks the results, and truncates to the context budget.
//
// Per-collection queries run concurrently; a failing collection is logged
// and skipped so a single unreachable backend cannot fail the request.
// The merged order is deterministic: documents sort by ranking tier and
// value with the original insertion index as the final tie-break, where
// insertion order is collection order then per-collection result order.
//
// The second return value is the provenance breakdown: retained documents
// per collection, with unlabeled documents counted under "unknown".
func (a *Aggregator) Collect(ctx context.Context, query string, states []CollectionState) ([]Document, map[string]int) {
	ctx, span := aggregatorTracer.Start(ctx, "Aggregator.Collect")
	defer span.End()

	perState := make([][]Document, len(states))

	var wg sync.WaitGroup
	for i, state := range states {
		if state.DocumentCount == 0 || state.Accessor == nil {
			continue
		}

		wg.Add(1)
		go func(i int, state CollectionState) {
			defer wg.Done()

			results, err := state.Accessor.SimilaritySearch(ctx, query, a.perCollectionK)
			if err != nil {
				a.logger.Warn("collection query failed, skipping",
					zap.String("collection", state.Name),
					zap.Error(err),
				)
				return
			}

			docs := make([]Document, 0, len(results))
			for _, result := range results {
				doc := Document{
					Content:  result.Content,
					Metadata: MetadataFromMap(result.Metadata),
				}
				if doc.Metadata.Collection == "" {
					doc.Metadata.Collection = state.Name
				}
				docs = append(docs, doc)
			}
			perState[i] = docs
		}(i, state)
	}
	wg.Wait()

	// Flatten in collection order; the index into merged becomes the
	// stable insertion-order tie-break.
	var merged []Document
	for _, docs := range perState {
		merged = append(merged, docs...)
	}

	ranked := rank(merged)
	if len(ranked) > a.contextLimit {
		ranked = ranked[:a.contextLimit]
	}

	breakdown := make(map[string]int)
	for _, doc := range ranked {
		name := doc.Metadata.Collection
		if name == "" {
			name = UnknownCollection
		}
		breakdown[name]++
	}

	span.SetAttributes(
		attribute.Int("merged", len(merged)),
		attribute.Int("retained", len(ranked)),
	)
	a.logger.Debug("retrieval aggregated",
		zap.Int("collections", len(states)),
		zap.Int("merged", len(merged)),
		zap.Int("retained", len(ranked)),
	)

	return ranked, breakdown
}

// rankKey orders heterogeneous score semantics: distance-reporting
// backends sort first (ascending distance), then score/similarity
// backends (descending, approximated by negation), then documents with no
// ranking signal at all. Scales are not normalized across backends.
func rankKey(doc Document) (tier int, value float64) {
	switch {
	case doc.Metadata.Distance != nil:
		return 0, *doc.Metadata.Distance
	case doc.Metadata.Score != nil:
		return 1, -*doc.Metadata.Score
	case doc.Metadata.Similarity != nil:
		return 1, -*doc.Metadata.Similarity
	default:
		return 2, 0
	}
}

// rank sorts documents by (tier, value, insertion index). The explicit
// index comparison guarantees deterministic output for identical keys.
func rank(docs []Document) []Document {
	type rankedDoc struct {
		doc   Document
		tier  int
		value float64
		index int
	}

	ranked := make([]rankedDoc, len(docs))
	for i, doc := range docs {
		tier, value := rankKey(doc)
		ranked[i] = rankedDoc{doc: doc, tier: tier, value: value, index: i}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].tier != ranked[j].tier {
			return ranked[i].tier < ranked[j].tier
		}
		if ranked[i].value != ranked[j].value {
			return ranked[i].value < ranked[j].value
		}
		return ranked[i].index < ranked[j].index
	})

	out := make([]Document, len(ranked))
	for i, r := range ranked {
		out[i] = r.doc
	}
	return out
}
