// Package taxonomy loads the tenant's active rule set and keeps rule
// embeddings filled.
package taxonomy

import (
	"context"

	"github.com/google/uuid"

	"tender_server/core/domain"
	"tender_server/core/port/out"
	"tender_server/pkg/logger"
)

// Service loads activity rules for classification.
type Service struct {
	ruleRepo out.RuleRepository
	embedder Embedder
	log      *logger.Logger
}

// Embedder is the slice of the embedding service the taxonomy needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NewService creates a taxonomy service.
func NewService(ruleRepo out.RuleRepository, embedder Embedder) *Service {
	return &Service{
		ruleRepo: ruleRepo,
		embedder: embedder,
		log:      logger.WithField("component", "taxonomy"),
	}
}

// ActiveRules loads the tenant's active rules and ensures each usable rule
// carries an embedding. Missing vectors are fetched in a single batched
// request. Rules with no derivable text are returned without a vector and
// never matched by similarity.
func (s *Service) ActiveRules(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error) {
	rules, err := s.ruleRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var pending []*domain.ActivityRule
	var inputs []string
	for _, rule := range rules {
		if rule.HasEmbedding() {
			continue
		}
		input := rule.EmbeddingInput()
		if input == "" {
			continue
		}
		pending = append(pending, rule)
		inputs = append(inputs, input)
	}
	if len(pending) == 0 {
		return rules, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, inputs)
	if err != nil || len(vectors) != len(pending) {
		// Rules stay vectorless for this pass; next load retries.
		s.log.WithError(err).WithField("rules", len(pending)).Warn("rule embedding batch failed")
		return rules, nil
	}

	for i, rule := range pending {
		rule.Embedding = vectors[i]
		if err := s.ruleRepo.SaveEmbedding(ctx, rule.ID, vectors[i]); err != nil {
			s.log.WithError(err).WithField("rule_id", rule.ID).Warn("rule embedding save failed")
		}
	}
	return rules, nil
}
