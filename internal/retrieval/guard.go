package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"go.uber.org/zap"
)

// Reason is a machine-readable guardrail violation code.
type Reason string

// Violation reason codes, one per rule.
const (
	ReasonFieldsNotAllowed Reason = "fields_not_allowed"
	ReasonMissingMetadata  Reason = "missing_metadata"
	ReasonPolicyConflict   Reason = "policy_conflict"
)

// Violation is the fail-closed guardrail outcome. It is a distinguishable
// value the caller must branch on, not a generic error: a non-nil
// Violation blocks generation entirely.
type Violation struct {
	// Reason is the machine-readable violation code.
	Reason Reason

	// Context carries structured detail: offending field names under
	// "fields", conflicting policy identifiers under "policies".
	Context map[string]interface{}
}

// Error satisfies the error interface for logging and wrapping.
func (v *Violation) Error() string {
	var parts []string
	for _, key := range sortedKeys(v.Context) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, v.Context[key]))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("guardrail violation: %s", v.Reason)
	}
	return fmt.Sprintf("guardrail violation: %s (%s)", v.Reason, strings.Join(parts, ", "))
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// defaultAllowedFields is the metadata allow-list for regulated documents
// when none is configured.
var defaultAllowedFields = []string{
	KeyCollection,
	KeyDistance,
	KeyScore,
	KeySimilarity,
	KeyPolicyID,
	KeyPolicyVersion,
	KeySource,
}

// Guard validates regulated-collection documents before generation.
type Guard struct {
	regulated string
	allowed   map[string]bool
	logger    *zap.Logger
}

// NewGuard creates a compliance guard from configuration. An empty
// regulated collection name disables enforcement.
func NewGuard(cfg config.ComplianceConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}

	fields := cfg.AllowedFields
	if len(fields) == 0 {
		fields = defaultAllowedFields
	}
	allowed := make(map[string]bool, len(fields))
	for _, field := range fields {
		allowed[field] = true
	}

	return &Guard{
		regulated: cfg.RegulatedCollection,
		allowed:   allowed,
		logger:    logger,
	}
}

// Enforce inspects the regulated documents in the batch and returns a
// Violation when their metadata is malformed or inconsistent, nil when
// the batch passes. Documents from other collections pass untouched.
//
// Rules run in order; the first violated rule wins:
//
//  1. every metadata key must be allow-listed
//  2. policy_id and policy_version must be present and non-blank
//  3. all regulated documents must share exactly one policy_id
func (g *Guard) Enforce(docs []Document) *Violation {
	if g.regulated == "" {
		return nil
	}

	var regulated []Document
	for _, doc := range docs {
		if doc.Metadata.Collection == g.regulated {
			regulated = append(regulated, doc)
		}
	}
	if len(regulated) == 0 {
		return nil
	}

	if v := g.checkAllowedFields(regulated); v != nil {
		return v
	}
	if v := g.checkRequiredFields(regulated); v != nil {
		return v
	}
	return g.checkPolicyConsistency(regulated)
}

func (g *Guard) checkAllowedFields(docs []Document) *Violation {
	for _, doc := range docs {
		var offending []string
		for _, key := range doc.Metadata.Keys() {
			if !g.allowed[key] {
				offending = append(offending, key)
			}
		}
		if len(offending) > 0 {
			sort.Strings(offending)
			g.logger.Warn("regulated document carries disallowed metadata fields",
				zap.Strings("fields", offending),
			)
			return &Violation{
				Reason:  ReasonFieldsNotAllowed,
				Context: map[string]interface{}{"fields": offending},
			}
		}
	}
	return nil
}

func (g *Guard) checkRequiredFields(docs []Document) *Violation {
	for _, doc := range docs {
		var missing []string
		if strings.TrimSpace(doc.Metadata.PolicyID) == "" {
			missing = append(missing, KeyPolicyID)
		}
		if strings.TrimSpace(doc.Metadata.PolicyVersion) == "" {
			missing = append(missing, KeyPolicyVersion)
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			g.logger.Warn("regulated document missing required metadata",
				zap.Strings("fields", missing),
			)
			return &Violation{
				Reason:  ReasonMissingMetadata,
				Context: map[string]interface{}{"fields": missing},
			}
		}
	}
	return nil
}

func (g *Guard) checkPolicyConsistency(docs []Document) *Violation {
	seen := make(map[string]bool)
	var policies []string
	for _, doc := range docs {
		if !seen[doc.Metadata.PolicyID] {
			seen[doc.Metadata.PolicyID] = true
			policies = append(policies, doc.Metadata.PolicyID)
		}
	}
	if len(policies) > 1 {
		sort.Strings(policies)
		g.logger.Warn("regulated documents reference conflicting policies",
			zap.Strings("policies", policies),
		)
		return &Violation{
			Reason:  ReasonPolicyConflict,
			Context: map[string]interface{}{"policies": policies},
		}
	}
	return nil
}
