package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ActivityScope is a coarse business-relevance bucket. Rules and score
// breakdowns are grouped by scope.
type ActivityScope string

const (
	ScopeSupply     ActivityScope = "supply"
	ScopeServices   ActivityScope = "services"
	ScopeWorks      ActivityScope = "works"
	ScopeConsulting ActivityScope = "consulting"
	ScopeIT         ActivityScope = "it"

	// ScopeExclusion is reserved for rules that only ever subtract score.
	ScopeExclusion ActivityScope = "exclusion"
)

// KnownScopes lists every accepted scope value.
var KnownScopes = []ActivityScope{
	ScopeSupply, ScopeServices, ScopeWorks, ScopeConsulting, ScopeIT, ScopeExclusion,
}

// ActivityRule is one tenant-scoped relevance rule: keywords plus a cached
// embedding, matched against record embeddings by cosine similarity.
type ActivityRule struct {
	ID               int64         `json:"id"`
	TenantID         uuid.UUID     `json:"tenant_id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Scope            ActivityScope `json:"scope"`
	Keywords         []string      `json:"keywords"`
	NegativeKeywords []string      `json:"negative_keywords"`
	Weight           float64       `json:"weight"` // default 1; 0 disables
	IsHighPriority   bool          `json:"is_high_priority"`
	IsActive         bool          `json:"is_active"`
	Embedding        []float32     `json:"-"`
}

// IsExclusionRule reports whether the rule only subtracts score: exclusion
// scope, no positive keywords, at least one negative keyword.
func (r *ActivityRule) IsExclusionRule() bool {
	return r.Scope == ScopeExclusion && len(r.Keywords) == 0 && len(r.NegativeKeywords) > 0
}

// EmbeddingInput builds the text the rule's embedding is derived from:
// name + description + negative keywords for exclusion rules, keywords
// otherwise. Returns "" when the rule has no derivable text; such rules are
// skipped by the embedding fill, not errored.
func (r *ActivityRule) EmbeddingInput() string {
	parts := make([]string, 0, 3)
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	keywords := r.Keywords
	if r.IsExclusionRule() {
		keywords = r.NegativeKeywords
	}
	if len(keywords) > 0 {
		parts = append(parts, strings.Join(keywords, ", "))
	}
	return strings.Join(parts, "\n")
}

// HasEmbedding reports whether the rule carries a cached vector.
func (r *ActivityRule) HasEmbedding() bool {
	return len(r.Embedding) > 0
}
