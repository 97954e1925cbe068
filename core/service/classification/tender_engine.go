// Package classification scores canonical records against the activity
// taxonomy by embedding similarity.
package classification

import (
	"fmt"
	"math"
	"time"

	"tender_server/core/domain"
)

// Engine computes the relevance verdict for one record at a time. It is
// stateless; rules and config are passed per call so one loaded rule set
// serves a whole run.
type Engine struct{}

// NewEngine creates a classification engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Classify scores the record against the rule set. Rules without an
// embedding or with zero weight never match. The record must carry its
// embedding; the caller fills it beforehand.
func (e *Engine) Classify(record *domain.CanonicalRecord, rules []*domain.ActivityRule, cfg *domain.SmartFilterConfig, now time.Time) *domain.ClassificationResult {
	result := &domain.ClassificationResult{
		TenantID:        record.TenantID,
		RecordID:        record.ID,
		TaxonomyVersion: cfg.TaxonomyVersion,
		ScopeScores:     make(map[string]int),
		ClassifiedAt:    now,
	}

	total := 0
	for _, rule := range rules {
		if !rule.HasEmbedding() || rule.Weight <= 0 {
			continue
		}
		sim := CosineSimilarity(record.Embedding, rule.Embedding)
		if sim < cfg.SimilarityThreshold {
			continue
		}

		points := int(math.Round(sim * 100 * rule.Weight))
		scope := string(rule.Scope)

		if rule.IsExclusionRule() {
			total -= points
			result.ScopeScores[scope] -= points
			result.AddReason(fmt.Sprintf("Negative: %s (%.2f)", rule.Name, sim))
			continue
		}

		total += points
		result.ScopeScores[scope] += points
		result.MatchedRuleIDs = append(result.MatchedRuleIDs, rule.ID)
		result.MatchedScopes = appendUnique(result.MatchedScopes, scope)
		result.MatchedKeywords = append(result.MatchedKeywords, rule.Name)
		result.AddReason(fmt.Sprintf("Match: %s (%.2f)", rule.Name, sim))

		if rule.IsHighPriority {
			total += domain.HighPriorityBonus
			result.ScopeScores[scope] += domain.HighPriorityBonus
		}
	}

	// Grouped scopes roll up into one aggregate bucket on top of their own
	// entries.
	grouped := 0
	for _, scope := range cfg.GroupedScopes {
		grouped += result.ScopeScores[scope]
	}
	if grouped > 0 {
		result.ScopeScores[domain.GroupedScopeKey] = grouped
	}

	result.Score = clampScore(total)
	for scope, score := range result.ScopeScores {
		result.ScopeScores[scope] = clampScore(score)
	}

	result.IsNew = isNew(record, cfg.NewWindowHours, now)
	return result
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// isNew: first seen inside the window and not yet closed. Ingestion time is
// the reference, not the portal's publication date; a freshly scraped old
// listing is still new to the tenant.
func isNew(record *domain.CanonicalRecord, windowHours int, now time.Time) bool {
	if now.Sub(record.CreatedAt) > time.Duration(windowHours)*time.Hour {
		return false
	}
	return record.IsOpen(now)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	return score
}

func appendUnique(slice []string, value string) []string {
	for _, v := range slice {
		if v == value {
			return slice
		}
	}
	return append(slice, value)
}
