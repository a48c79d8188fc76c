// Package responder assembles answers: it drives a retrieval cycle,
// enforces the compliance guardrail, invokes the generation backend and
// reports per-collection and per-domain counts.
package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/generation"
	"github.com/fyrsmithlabs/answerd/internal/retrieval"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the outcome of one response cycle.
type Status string

// Response statuses. Guardrail and empty outcomes are distinguishable
// from generic errors; callers branch on them.
const (
	StatusSuccess   Status = "success"
	StatusEmpty     Status = "empty"
	StatusGuardrail Status = "guardrail"
	StatusError     Status = "error"
)

// Localizable message keys for non-success outcomes.
const (
	MessageEmptyContext     = "responder.empty_context"
	MessageGenerationFailed = "responder.generation_failed"
	messageGuardrailPrefix  = "responder.guardrail."
)

// Request is one incoming question.
type Request struct {
	Query    string
	TaskType string
	Metadata map[string]interface{}
	Language string
}

// Response is the outcome handed back to the API surface.
type Response struct {
	// Text is the generated answer. Empty unless Status is success.
	Text string

	Status Status

	// MessageKey is a localizable key describing non-success outcomes.
	MessageKey string

	// Detail carries structured context for guardrail outcomes.
	Detail map[string]interface{}

	// ContextDocuments is the number of merged documents retained for
	// generation. Reported even when generation itself fails.
	ContextDocuments int

	// PerCollection and PerDomain break retained documents down by
	// provenance.
	PerCollection map[string]int
	PerDomain     map[string]int
}

// Service orchestrates one response cycle per request.
type Service struct {
	registry   *retrieval.Registry
	advisor    *retrieval.Advisor
	aggregator *retrieval.Aggregator
	guard      *retrieval.Guard
	generator  generation.Generator
	domainFor  map[string]string // collection name -> domain
	logger     *zap.Logger
}

// NewService creates a responder service.
func NewService(
	registry *retrieval.Registry,
	advisor *retrieval.Advisor,
	aggregator *retrieval.Aggregator,
	guard *retrieval.Guard,
	generator generation.Generator,
	collections []config.CollectionSpec,
	logger *zap.Logger,
) (*Service, error) {
	if registry == nil || advisor == nil || aggregator == nil || guard == nil {
		return nil, fmt.Errorf("retrieval components cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	domainFor := make(map[string]string, len(collections))
	for _, col := range collections {
		domainFor[col.Name] = col.Domain
	}

	return &Service{
		registry:   registry,
		advisor:    advisor,
		aggregator: aggregator,
		guard:      guard,
		generator:  generator,
		domainFor:  domainFor,
		logger:     logger,
	}, nil
}

// Respond answers one question.
//
// The returned error is non-nil only for configuration failures that
// abort the cycle before retrieval; every other outcome, including
// guardrail violations and generation failures, is encoded in the
// response status so callers handle it explicitly.
func (s *Service) Respond(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	cycleID := uuid.NewString()
	logger := s.logger.With(zap.String("cycle_id", cycleID))

	resp := Response{
		PerCollection: make(map[string]int),
		PerDomain:     make(map[string]int),
	}

	finish := func(status Status) Response {
		resp.Status = status
		responsesTotal.WithLabelValues(req.Language, string(status)).Inc()
		responseDuration.WithLabelValues(req.Language, string(status)).Observe(time.Since(start).Seconds())
		contextDocuments.Observe(float64(resp.ContextDocuments))
		return resp
	}

	states, err := s.registry.Prepare(ctx)
	if err != nil {
		logger.Error("registry preparation failed", zap.Error(err))
		resp.MessageKey = MessageGenerationFailed
		return finish(StatusError), fmt.Errorf("preparing registry: %w", err)
	}
	s.updateDomainGauges(states)

	directives := s.advisor.Analyse(req.TaskType, req.Metadata)
	selected := retrieval.SelectCollections(states, directives)

	docs, perCollection := s.aggregator.Collect(ctx, req.Query, selected)
	resp.ContextDocuments = len(docs)
	resp.PerCollection = perCollection
	resp.PerDomain = s.domainBreakdown(perCollection)

	if len(docs) == 0 {
		logger.Info("no context available, skipping generation",
			zap.String("variant", directives.Variant),
		)
		resp.MessageKey = MessageEmptyContext
		return finish(StatusEmpty), nil
	}

	if violation := s.guard.Enforce(docs); violation != nil {
		logger.Warn("guardrail blocked response",
			zap.String("reason", string(violation.Reason)),
			zap.Any("context", violation.Context),
		)
		resp.MessageKey = messageGuardrailPrefix + string(violation.Reason)
		resp.Detail = violation.Context
		return finish(StatusGuardrail), nil
	}

	text, err := s.generator.Generate(ctx, directives.Variant, formatContext(docs), req.Query, req.Language)
	if err != nil {
		// Context counts stay on the response for observability even
		// though generation failed.
		logger.Error("generation failed", zap.Error(err))
		resp.MessageKey = MessageGenerationFailed
		return finish(StatusError), nil
	}

	resp.Text = text
	logger.Info("response assembled",
		zap.String("variant", directives.Variant),
		zap.Int("context_documents", resp.ContextDocuments),
		zap.Duration("duration", time.Since(start)),
	)
	return finish(StatusSuccess), nil
}

// updateDomainGauges reports the live per-domain collection sizes from a
// fresh registry snapshot.
func (s *Service) updateDomainGauges(states []retrieval.CollectionState) {
	totals := make(map[string]int)
	for _, state := range states {
		totals[state.Domain] += state.DocumentCount
	}
	for domain, total := range totals {
		collectionSize.WithLabelValues(domain).Set(float64(total))
	}
}

// domainBreakdown folds a per-collection breakdown into per-domain counts.
// Collections missing from the static table count as unknown.
func (s *Service) domainBreakdown(perCollection map[string]int) map[string]int {
	perDomain := make(map[string]int, len(perCollection))
	for collection, count := range perCollection {
		domain, ok := s.domainFor[collection]
		if !ok {
			domain = retrieval.UnknownCollection
		}
		perDomain[domain] += count
	}
	return perDomain
}

// formatContext renders merged documents as numbered passages with their
// provenance for the generation prompt.
func formatContext(docs []retrieval.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (%s) %s", i+1, doc.Metadata.Collection, doc.Content)
	}
	return b.String()
}
