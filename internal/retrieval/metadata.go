package retrieval

import (
	"encoding/json"
	"sort"
)

// Metadata keys recognized across collections.
const (
	KeyCollection    = "collection"
	KeyDistance      = "distance"
	KeyScore         = "score"
	KeySimilarity    = "similarity"
	KeyPolicyID      = "policy_id"
	KeyPolicyVersion = "policy_version"
	KeySource        = "source"
)

// Metadata is the typed view of a retrieved document's metadata.
//
// Known fields cover provenance, the backend ranking signal, and the
// regulated-content policy fields. Everything else lands in Extra, which
// makes the compliance allow-list check a structural diff instead of
// free-form map inspection.
type Metadata struct {
	// Collection is the provenance tag. Set by the aggregator when the
	// backing store did not label the document.
	Collection string

	// Exactly one of Distance, Score or Similarity is normally set,
	// depending on what the backing store reports. Distance sorts
	// ascending; Score and Similarity sort descending.
	Distance   *float64
	Score      *float64
	Similarity *float64

	// PolicyID and PolicyVersion are required on regulated documents.
	// Non-string values are treated as absent.
	PolicyID      string
	PolicyVersion string

	// Source is an optional origin reference (file, URL).
	Source string

	// Extra holds metadata keys outside the known set.
	Extra map[string]interface{}
}

// Document is one retrieved passage with its typed metadata.
type Document struct {
	Content  string
	Metadata Metadata
}

// MetadataFromMap converts store-level metadata into the typed form.
func MetadataFromMap(m map[string]interface{}) Metadata {
	md := Metadata{}
	for key, value := range m {
		switch key {
		case KeyCollection:
			md.Collection, _ = value.(string)
		case KeyDistance:
			if f, ok := asFloat(value); ok {
				md.Distance = &f
			} else {
				md.putExtra(key, value)
			}
		case KeyScore:
			if f, ok := asFloat(value); ok {
				md.Score = &f
			} else {
				md.putExtra(key, value)
			}
		case KeySimilarity:
			if f, ok := asFloat(value); ok {
				md.Similarity = &f
			} else {
				md.putExtra(key, value)
			}
		case KeyPolicyID:
			md.PolicyID, _ = value.(string)
		case KeyPolicyVersion:
			md.PolicyVersion, _ = value.(string)
		case KeySource:
			md.Source, _ = value.(string)
		default:
			md.putExtra(key, value)
		}
	}
	return md
}

func (m *Metadata) putExtra(key string, value interface{}) {
	if m.Extra == nil {
		m.Extra = make(map[string]interface{})
	}
	m.Extra[key] = value
}

// Keys returns the sorted set of populated metadata keys, known and extra.
func (m Metadata) Keys() []string {
	var keys []string
	if m.Collection != "" {
		keys = append(keys, KeyCollection)
	}
	if m.Distance != nil {
		keys = append(keys, KeyDistance)
	}
	if m.Score != nil {
		keys = append(keys, KeyScore)
	}
	if m.Similarity != nil {
		keys = append(keys, KeySimilarity)
	}
	if m.PolicyID != "" {
		keys = append(keys, KeyPolicyID)
	}
	if m.PolicyVersion != "" {
		keys = append(keys, KeyPolicyVersion)
	}
	if m.Source != "" {
		keys = append(keys, KeySource)
	}
	for key := range m.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// asFloat coerces the numeric types stores actually report. Strings are
// not parsed; a stringly-typed score is malformed input.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
