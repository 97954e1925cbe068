package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

type fakeRuleRepo struct {
	rules []*domain.ActivityRule
	saved map[int64][]float32
}

func (f *fakeRuleRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) SaveEmbedding(ctx context.Context, ruleID int64, embedding []float32) error {
	if f.saved == nil {
		f.saved = make(map[int64][]float32)
	}
	f.saved[ruleID] = embedding
	return nil
}

type fakeEmbedder struct {
	calls   int
	batches [][]string
	err     error
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, float32(i)}
	}
	return vectors, nil
}

func TestActiveRulesFillsMissingEmbeddings(t *testing.T) {
	repo := &fakeRuleRepo{rules: []*domain.ActivityRule{
		{ID: 1, Name: "road works", Scope: domain.ScopeWorks, Keywords: []string{"asphalt"}, IsActive: true},
		{ID: 2, Name: "cached", Scope: domain.ScopeSupply, IsActive: true, Embedding: []float32{0, 1}},
		{ID: 3, Scope: domain.ScopeExclusion, IsActive: true}, // no derivable text
	}}
	embedder := &fakeEmbedder{}
	svc := NewService(repo, embedder)

	rules, err := svc.ActiveRules(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ActiveRules() error = %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.calls)
	}
	if !rules[0].HasEmbedding() {
		t.Error("rule 1 should have been embedded")
	}
	if _, ok := repo.saved[1]; !ok {
		t.Error("rule 1 embedding should have been persisted")
	}
	if rules[2].HasEmbedding() {
		t.Error("textless rule should stay vectorless")
	}
}

func TestActiveRulesBatchesPendingEmbeddings(t *testing.T) {
	repo := &fakeRuleRepo{rules: []*domain.ActivityRule{
		{ID: 1, Name: "road works", Scope: domain.ScopeWorks, Keywords: []string{"asphalt"}, IsActive: true},
		{ID: 2, Name: "it services", Scope: domain.ScopeIT, Keywords: []string{"software"}, IsActive: true},
		{ID: 3, Name: "cleaning", Scope: domain.ScopeServices, Keywords: []string{"janitorial"}, IsActive: true},
	}}
	embedder := &fakeEmbedder{}
	svc := NewService(repo, embedder)

	rules, err := svc.ActiveRules(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ActiveRules() error = %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("embedder called %d times, want one batched call", embedder.calls)
	}
	if got := len(embedder.batches[0]); got != 3 {
		t.Errorf("batch carried %d inputs, want 3", got)
	}
	for i, rule := range rules {
		if !rule.HasEmbedding() {
			t.Errorf("rule %d missing embedding", rule.ID)
		}
		if _, ok := repo.saved[rule.ID]; !ok {
			t.Errorf("rule %d embedding not persisted", rule.ID)
		}
		if rule.Embedding[1] != float32(i) {
			t.Errorf("rule %d got vector %v, want position %d", rule.ID, rule.Embedding, i)
		}
	}
}

func TestActiveRulesSkipsBatchWhenAllCached(t *testing.T) {
	repo := &fakeRuleRepo{rules: []*domain.ActivityRule{
		{ID: 1, Name: "cached", Scope: domain.ScopeSupply, IsActive: true, Embedding: []float32{0, 1}},
	}}
	embedder := &fakeEmbedder{}
	svc := NewService(repo, embedder)

	if _, err := svc.ActiveRules(context.Background(), uuid.New()); err != nil {
		t.Fatalf("ActiveRules() error = %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times, want 0", embedder.calls)
	}
}

func TestActiveRulesSurvivesEmbedderFailure(t *testing.T) {
	repo := &fakeRuleRepo{rules: []*domain.ActivityRule{
		{ID: 1, Name: "it services", Scope: domain.ScopeIT, Keywords: []string{"software"}, IsActive: true},
	}}
	embedder := &fakeEmbedder{err: errors.New("backend down")}
	svc := NewService(repo, embedder)

	rules, err := svc.ActiveRules(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ActiveRules() error = %v", err)
	}
	if rules[0].HasEmbedding() {
		t.Error("failed embedding must leave the rule vectorless")
	}
}
