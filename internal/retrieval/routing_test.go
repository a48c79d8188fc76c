package retrieval

import (
	"testing"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/stretchr/testify/assert"
)

func testAdvisor() *Advisor {
	return NewAdvisor(
		config.RoutingConfig{
			DefaultVariant: "general",
			Variants: map[string]string{
				"code":       "technical",
				"legal":      "compliance",
				"multimedia": "multimedia",
			},
		},
		[]config.CollectionSpec{
			{Name: "docs_main", Domain: "documents"},
			{Name: "docs_archive", Domain: "documents"},
			{Name: "code_main", Domain: "code"},
			{Name: "legal_main", Domain: "legal"},
			{Name: "media_main", Domain: "multimedia"},
		},
		nil,
	)
}

func TestAnalyseExplicitCollections(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     []string
	}{
		{
			name:     "comma separated string",
			metadata: map[string]interface{}{"collections": "legal_main, code_main"},
			want:     []string{"legal_main", "code_main"},
		},
		{
			name:     "semicolon separated string",
			metadata: map[string]interface{}{"collections": "docs_main;docs_archive"},
			want:     []string{"docs_main", "docs_archive"},
		},
		{
			name:     "list value",
			metadata: map[string]interface{}{"collections": []interface{}{"media_main", "docs_main"}},
			want:     []string{"media_main", "docs_main"},
		},
		{
			name:     "unknown names silently dropped",
			metadata: map[string]interface{}{"collections": "legal_main, nonexistent"},
			want:     []string{"legal_main"},
		},
		{
			name:     "singular key",
			metadata: map[string]interface{}{"collection": "code_main"},
			want:     []string{"code_main"},
		},
	}

	advisor := testAdvisor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directives := advisor.Analyse("", tt.metadata)
			assert.Equal(t, tt.want, directives.Candidates)
		})
	}
}

func TestAnalyseDomainHintsExpandToCollections(t *testing.T) {
	advisor := testAdvisor()

	directives := advisor.Analyse("", map[string]interface{}{"domains": "documents"})
	assert.Equal(t, []string{"docs_main", "docs_archive"}, directives.Candidates)
	// A single domain implies its variant.
	assert.Equal(t, "general", directives.Variant)

	directives = advisor.Analyse("", map[string]interface{}{"domain": "legal"})
	assert.Equal(t, []string{"legal_main"}, directives.Candidates)
	assert.Equal(t, "compliance", directives.Variant)
}

func TestAnalyseVariantHint(t *testing.T) {
	advisor := testAdvisor()

	directives := advisor.Analyse("anything", map[string]interface{}{"prompt_variant": "compliance"})
	assert.Equal(t, "compliance", directives.Variant)
	assert.Equal(t, []string{"legal_main"}, directives.Candidates)

	// An unregistered variant hint is ignored and the ladder continues.
	directives = advisor.Analyse("anything", map[string]interface{}{"variant": "nonsense"})
	assert.Equal(t, "general", directives.Variant)
}

func TestAnalyseVariantHintBeatsDomainInference(t *testing.T) {
	advisor := testAdvisor()

	directives := advisor.Analyse("", map[string]interface{}{
		"variant": "technical",
		"domains": "legal",
	})
	assert.Equal(t, "technical", directives.Variant)
	// Explicit domain hints still fix the candidates.
	assert.Equal(t, []string{"legal_main"}, directives.Candidates)
}

func TestAnalyseDisagreeingDomainsFallThrough(t *testing.T) {
	advisor := testAdvisor()

	// code and legal imply different variants, so inference is skipped
	// and keyword matching on the task type decides.
	directives := advisor.Analyse("review the contract", map[string]interface{}{
		"domains": "code, legal",
	})
	assert.Equal(t, "compliance", directives.Variant)
}

func TestAnalyseKeywordHeuristics(t *testing.T) {
	tests := []struct {
		taskType string
		want     string
	}{
		{"Fix the login BUG", "technical"},
		{"summarize this video transcript", "multimedia"},
		{"GDPR compliance review", "compliance"},
		{"quarterly report summary", "general"},
		{"completely unrelated task", "general"},
	}

	advisor := testAdvisor()
	for _, tt := range tests {
		t.Run(tt.taskType, func(t *testing.T) {
			directives := advisor.Analyse(tt.taskType, nil)
			assert.Equal(t, tt.want, directives.Variant)
		})
	}
}

func TestAnalyseDerivesCandidatesFromVariant(t *testing.T) {
	advisor := testAdvisor()

	directives := advisor.Analyse("debug the build failure", nil)
	assert.Equal(t, "technical", directives.Variant)
	assert.Equal(t, []string{"code_main"}, directives.Candidates)

	// The default variant covers every domain without a dedicated
	// variant mapping.
	directives = advisor.Analyse("", nil)
	assert.Equal(t, "general", directives.Variant)
	assert.Equal(t, []string{"docs_main", "docs_archive"}, directives.Candidates)
}
