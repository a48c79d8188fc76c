package retrieval

import (
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"go.uber.org/zap"
)

// Directives is the routing outcome for one task: the prompt variant to
// answer with and the ordered candidate collections to query. Directives
// are recomputed per request and never cached; the same task type may
// legitimately produce different directives across calls as metadata
// varies.
type Directives struct {
	Variant    string
	Candidates []string
}

// Metadata keys the advisor understands.
const (
	hintCollections = "collections"
	hintCollection  = "collection"
	hintDomains     = "domains"
	hintDomain      = "domain"
	hintVariant     = "variant"
	hintPromptStyle = "prompt_variant"
)

// keywordRule maps task-type keywords to a business domain. Rules are
// evaluated in order; the first rule with a matching keyword wins.
type keywordRule struct {
	domain   string
	keywords []string
}

// defaultKeywordRules covers the built-in domains. New domains are
// additive: append a rule and map the domain to a variant in config.
var defaultKeywordRules = []keywordRule{
	{domain: "multimedia", keywords: []string{"video", "audio", "image", "photo", "media", "transcript"}},
	{domain: "legal", keywords: []string{"legal", "compliance", "policy", "regulation", "contract", "gdpr"}},
	{domain: "code", keywords: []string{"code", "bug", "stacktrace", "stack trace", "exception", "build", "compile", "refactor"}},
	{domain: "documents", keywords: []string{"document", "report", "summary", "paper", "manual"}},
}

// Advisor converts a task's declared type and free-form metadata into
// routing directives.
type Advisor struct {
	collections    []config.CollectionSpec
	defaultVariant string
	variants       map[string]string // domain -> variant
	rules          []keywordRule
	logger         *zap.Logger
}

// NewAdvisor creates a routing advisor from the routing configuration and
// the static collections table.
func NewAdvisor(routing config.RoutingConfig, collections []config.CollectionSpec, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	variants := make(map[string]string, len(routing.Variants))
	for domain, variant := range routing.Variants {
		variants[domain] = variant
	}
	return &Advisor{
		collections:    collections,
		defaultVariant: routing.DefaultVariant,
		variants:       variants,
		rules:          defaultKeywordRules,
		logger:         logger,
	}
}

// Analyse derives routing directives for a task.
//
// Candidates come from explicit collection or domain hints in metadata
// when present (unknown names silently dropped). The variant resolution
// ladder, first match wins:
//
//  1. an explicit variant hint naming a registered variant
//  2. the variant implied by the metadata's domains, when all implied
//     domains agree on one
//  3. keyword heuristics over the task type
//  4. the default variant
//
// When candidates were not explicit they are derived as all collections
// whose domain maps to the chosen variant; that may still be empty, in
// which case the selector's fallback ladder applies downstream.
func (a *Advisor) Analyse(taskType string, metadata map[string]interface{}) Directives {
	candidates, hintedDomains := a.explicitCandidates(metadata)

	variant := a.resolveVariant(taskType, metadata, hintedDomains)

	if len(candidates) == 0 {
		candidates = a.collectionsForVariant(variant)
	}

	a.logger.Debug("task analysed",
		zap.String("task_type", taskType),
		zap.String("variant", variant),
		zap.Strings("candidates", candidates),
	)

	return Directives{Variant: variant, Candidates: candidates}
}

// explicitCandidates extracts candidate collections from metadata hints.
// Collection hints are used directly; domain hints expand to every
// collection of that domain. Returns the candidates plus the set of
// domains they cover, for variant inference.
func (a *Advisor) explicitCandidates(metadata map[string]interface{}) ([]string, []string) {
	var names []string
	for _, key := range []string{hintCollections, hintCollection} {
		if v, ok := metadata[key]; ok {
			names = append(names, parseList(v)...)
		}
	}

	var domains []string
	for _, key := range []string{hintDomains, hintDomain} {
		if v, ok := metadata[key]; ok {
			domains = append(domains, parseList(v)...)
		}
	}

	var candidates []string
	var covered []string
	seen := make(map[string]bool)
	coveredSeen := make(map[string]bool)

	addCandidate := func(spec config.CollectionSpec) {
		if !seen[spec.Name] {
			seen[spec.Name] = true
			candidates = append(candidates, spec.Name)
		}
		if !coveredSeen[spec.Domain] {
			coveredSeen[spec.Domain] = true
			covered = append(covered, spec.Domain)
		}
	}

	// Unknown collection and domain names are dropped, not errored.
	for _, name := range names {
		for _, spec := range a.collections {
			if spec.Name == name {
				addCandidate(spec)
			}
		}
	}
	for _, domain := range domains {
		for _, spec := range a.collections {
			if spec.Domain == domain {
				addCandidate(spec)
			}
		}
	}

	return candidates, covered
}

// resolveVariant walks the variant resolution ladder.
func (a *Advisor) resolveVariant(taskType string, metadata map[string]interface{}, hintedDomains []string) string {
	// Explicit variant hint, if it names a registered variant.
	for _, key := range []string{hintPromptStyle, hintVariant} {
		if v, ok := metadata[key]; ok {
			if hint, ok := v.(string); ok && a.isRegisteredVariant(hint) {
				return hint
			}
		}
	}

	// Variant implied by the metadata's domains, only when unanimous.
	if variant, ok := a.unanimousVariant(hintedDomains); ok {
		return variant
	}

	// Keyword heuristics over the task type.
	lowered := strings.ToLower(taskType)
	for _, rule := range a.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return a.variantFor(rule.domain)
			}
		}
	}

	return a.defaultVariant
}

// unanimousVariant returns the single variant implied by the given
// domains, or false when the domains disagree or none were given.
func (a *Advisor) unanimousVariant(domains []string) (string, bool) {
	if len(domains) == 0 {
		return "", false
	}
	variant := a.variantFor(domains[0])
	for _, domain := range domains[1:] {
		if a.variantFor(domain) != variant {
			return "", false
		}
	}
	return variant, true
}

// variantFor maps a domain to its configured variant, defaulting when the
// domain is unmapped.
func (a *Advisor) variantFor(domain string) string {
	if variant, ok := a.variants[domain]; ok && variant != "" {
		return variant
	}
	return a.defaultVariant
}

// isRegisteredVariant reports whether the name is the default variant or
// any domain's configured variant.
func (a *Advisor) isRegisteredVariant(name string) bool {
	if name == "" {
		return false
	}
	if name == a.defaultVariant {
		return true
	}
	for _, variant := range a.variants {
		if variant == name {
			return true
		}
	}
	return false
}

// collectionsForVariant returns all collections whose domain maps to the
// given variant, in configuration order.
func (a *Advisor) collectionsForVariant(variant string) []string {
	var names []string
	for _, spec := range a.collections {
		if a.variantFor(spec.Domain) == variant {
			names = append(names, spec.Name)
		}
	}
	return names
}

// parseList coerces a metadata value into a list of trimmed names.
// Accepts comma or semicolon separated strings and list-like values.
func parseList(v interface{}) []string {
	var raw []string
	switch val := v.(type) {
	case string:
		raw = strings.FieldsFunc(val, func(r rune) bool {
			return r == ',' || r == ';'
		})
	case []string:
		raw = val
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
