package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxClassificationReasons caps the human-readable reasons stored per result.
// Scoring continues past the cap; only reason recording stops.
const MaxClassificationReasons = 20

// HighPriorityBonus is the flat score added on top of a high-priority rule
// match, both to the rule's scope and to the total.
const HighPriorityBonus = 15

// GroupedScopeKey is the aggregate bucket the configured grouped scopes roll
// up under in the per-scope breakdown.
const GroupedScopeKey = "grouped"

// ClassificationResult is the relevance verdict for one canonical record at
// one taxonomy version. One row per record; reprocessing upserts in place,
// history is not retained.
type ClassificationResult struct {
	ID              int64          `json:"id"`
	TenantID        uuid.UUID      `json:"tenant_id"`
	RecordID        int64          `json:"record_id"`
	TaxonomyVersion int            `json:"taxonomy_version"`
	Score           int            `json:"score"` // clamped >= 0
	ScopeScores     map[string]int `json:"scope_scores"`
	IsNew           bool           `json:"is_new"`
	MatchedRuleIDs  []int64        `json:"matched_rule_ids"`
	MatchedScopes   []string       `json:"matched_scopes"`
	MatchedKeywords []string       `json:"matched_keywords"` // rule names
	Reasons         []string       `json:"reasons"`
	ClassifiedAt    time.Time      `json:"classified_at"`
}

// AddReason appends a reason unless the cap is reached.
func (c *ClassificationResult) AddReason(reason string) {
	if len(c.Reasons) < MaxClassificationReasons {
		c.Reasons = append(c.Reasons, reason)
	}
}

// Qualifies reports whether the result clears the recommendation threshold.
func (c *ClassificationResult) Qualifies(scoreThreshold int) bool {
	return c.Score >= scoreThreshold && c.IsNew
}
