package classification

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

// vectorAt builds a unit vector at the given angle so tests can dial in
// exact cosine similarities.
func vectorAt(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

// vectorWithSimilarity returns a vector whose cosine similarity to
// vectorAt(0) is sim.
func vectorWithSimilarity(sim float64) []float32 {
	return vectorAt(math.Acos(sim))
}

func testConfig() *domain.SmartFilterConfig {
	return domain.DefaultSmartFilterConfig()
}

func testRecord(now time.Time) *domain.CanonicalRecord {
	published := now.Add(-1 * time.Hour)
	return &domain.CanonicalRecord{
		ID:          42,
		TenantID:    uuid.New(),
		Portal:      "eproc",
		Title:       "Supply of network switches",
		PublishedAt: &published,
		Embedding:   vectorAt(0),
		CreatedAt:   now,
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyScoring(t *testing.T) {
	now := time.Now()
	engine := NewEngine()

	tests := []struct {
		name      string
		rules     []*domain.ActivityRule
		wantScore int
		wantNew   bool
	}{
		{
			name: "weighted match rounds to nearest point",
			rules: []*domain.ActivityRule{{
				ID: 1, Name: "networking", Scope: domain.ScopeIT, Weight: 1.2,
				Keywords: []string{"switch"}, IsActive: true,
				Embedding: vectorWithSimilarity(0.75),
			}},
			wantScore: 90, // round(0.75 * 100 * 1.2)
			wantNew:   true,
		},
		{
			name: "unit weight match",
			rules: []*domain.ActivityRule{{
				ID: 2, Name: "it supply", Scope: domain.ScopeSupply, Weight: 1,
				Keywords: []string{"equipment"}, IsActive: true,
				Embedding: vectorWithSimilarity(0.40),
			}},
			wantScore: 40,
			wantNew:   true,
		},
		{
			name: "below similarity threshold contributes nothing",
			rules: []*domain.ActivityRule{{
				ID: 3, Name: "weak", Scope: domain.ScopeSupply, Weight: 1,
				Keywords: []string{"x"}, IsActive: true,
				Embedding: vectorWithSimilarity(0.20),
			}},
			wantScore: 0,
			wantNew:   true,
		},
		{
			name: "high priority adds flat bonus",
			rules: []*domain.ActivityRule{{
				ID: 4, Name: "strategic", Scope: domain.ScopeIT, Weight: 1,
				Keywords: []string{"core"}, IsActive: true, IsHighPriority: true,
				Embedding: vectorWithSimilarity(0.50),
			}},
			wantScore: 65, // 50 + 15
			wantNew:   true,
		},
		{
			name: "exclusion subtracts and total clamps at zero",
			rules: []*domain.ActivityRule{
				{
					ID: 5, Name: "match", Scope: domain.ScopeSupply, Weight: 1,
					Keywords: []string{"y"}, IsActive: true,
					Embedding: vectorWithSimilarity(0.40),
				},
				{
					ID: 6, Name: "blocklist", Scope: domain.ScopeExclusion, Weight: 1,
					NegativeKeywords: []string{"z"}, IsActive: true,
					Embedding: vectorWithSimilarity(0.80),
				},
			},
			wantScore: 0, // 40 - 80 clamped
			wantNew:   true,
		},
		{
			name: "vectorless and non-positive-weight rules are skipped",
			rules: []*domain.ActivityRule{
				{ID: 7, Name: "no vector", Scope: domain.ScopeSupply, Weight: 1, Keywords: []string{"a"}, IsActive: true},
				{
					ID: 8, Name: "disabled", Scope: domain.ScopeSupply, Weight: 0,
					Keywords: []string{"b"}, IsActive: true,
					Embedding: vectorWithSimilarity(0.90),
				},
				{
					ID: 9, Name: "negative weight", Scope: domain.ScopeSupply, Weight: -1,
					Keywords: []string{"c"}, IsActive: true,
					Embedding: vectorWithSimilarity(1.00),
				},
			},
			wantScore: 0,
			wantNew:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Classify(testRecord(now), tt.rules, testConfig(), now)
			if result.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", result.Score, tt.wantScore)
			}
			if result.IsNew != tt.wantNew {
				t.Errorf("IsNew = %v, want %v", result.IsNew, tt.wantNew)
			}
			if result.TaxonomyVersion != testConfig().TaxonomyVersion {
				t.Errorf("TaxonomyVersion = %d, want %d", result.TaxonomyVersion, testConfig().TaxonomyVersion)
			}
		})
	}
}

func TestClassifyNegativeWeightNeverMatches(t *testing.T) {
	now := time.Now()
	engine := NewEngine()
	rules := []*domain.ActivityRule{{
		ID: 7, Name: "bad", Scope: domain.ScopeSupply, Weight: -1,
		Keywords: []string{"k"}, IsActive: true,
		Embedding: vectorWithSimilarity(1.00),
	}}

	result := engine.Classify(testRecord(now), rules, testConfig(), now)
	if len(result.MatchedRuleIDs) != 0 {
		t.Errorf("matched ids = %v, want none", result.MatchedRuleIDs)
	}
	if len(result.Reasons) != 0 {
		t.Errorf("reasons = %v, want none", result.Reasons)
	}
	if result.Score != 0 {
		t.Errorf("Score = %d, want 0", result.Score)
	}
}

func TestClassifyGroupedScopeRollup(t *testing.T) {
	now := time.Now()
	engine := NewEngine()
	rules := []*domain.ActivityRule{
		{
			ID: 1, Name: "supplies", Scope: domain.ScopeSupply, Weight: 1,
			Keywords: []string{"a"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.50),
		},
		{
			ID: 2, Name: "maintenance", Scope: domain.ScopeServices, Weight: 1,
			Keywords: []string{"b"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.40),
		},
		{
			ID: 3, Name: "construction", Scope: domain.ScopeWorks, Weight: 1,
			Keywords: []string{"c"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.60),
		},
	}

	result := engine.Classify(testRecord(now), rules, testConfig(), now)
	if got := result.ScopeScores[domain.GroupedScopeKey]; got != 90 {
		t.Errorf("grouped score = %d, want 90", got)
	}
	if got := result.ScopeScores[string(domain.ScopeWorks)]; got != 60 {
		t.Errorf("works score = %d, want 60", got)
	}
}

func TestClassifyGroupedScopeOmittedWhenNothingMatched(t *testing.T) {
	now := time.Now()
	engine := NewEngine()
	rules := []*domain.ActivityRule{
		{
			ID: 1, Name: "construction", Scope: domain.ScopeWorks, Weight: 1,
			Keywords: []string{"a"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.50),
		},
		{
			ID: 2, Name: "blocklist", Scope: domain.ScopeExclusion, Weight: 1,
			NegativeKeywords: []string{"b"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.60),
		},
	}
	cfg := testConfig()
	cfg.GroupedScopes = []string{string(domain.ScopeSupply), string(domain.ScopeExclusion)}

	result := engine.Classify(testRecord(now), rules, cfg, now)
	if _, ok := result.ScopeScores[domain.GroupedScopeKey]; ok {
		t.Errorf("grouped bucket present with %d, want omitted", result.ScopeScores[domain.GroupedScopeKey])
	}
}

func TestClassifyReasonCap(t *testing.T) {
	now := time.Now()
	engine := NewEngine()

	var rules []*domain.ActivityRule
	for i := 0; i < domain.MaxClassificationReasons+10; i++ {
		rules = append(rules, &domain.ActivityRule{
			ID: int64(i + 1), Name: fmt.Sprintf("rule-%d", i), Scope: domain.ScopeSupply,
			Weight: 1, Keywords: []string{"k"}, IsActive: true,
			Embedding: vectorWithSimilarity(0.50),
		})
	}

	result := engine.Classify(testRecord(now), rules, testConfig(), now)
	if len(result.Reasons) != domain.MaxClassificationReasons {
		t.Errorf("got %d reasons, want %d", len(result.Reasons), domain.MaxClassificationReasons)
	}
	// Scoring keeps going past the reason cap.
	if len(result.MatchedRuleIDs) != domain.MaxClassificationReasons+10 {
		t.Errorf("got %d matched rules, want %d", len(result.MatchedRuleIDs), domain.MaxClassificationReasons+10)
	}
}

func TestClassifyIsNewWindow(t *testing.T) {
	now := time.Now()
	engine := NewEngine()
	cfg := testConfig()

	closed := now.Add(-1 * time.Hour)
	staleCreated := now.Add(-time.Duration(cfg.NewWindowHours+1) * time.Hour)
	oldPublished := now.Add(-48 * time.Hour)

	tests := []struct {
		name        string
		createdAt   time.Time
		publishedAt *time.Time
		closesAt    *time.Time
		want        bool
	}{
		{"fresh and open", now, nil, nil, true},
		{"created outside window", staleCreated, nil, nil, false},
		{"fresh but closed", now, nil, &closed, false},
		// Ingestion time governs, not the portal's publication date.
		{"old publication scraped now", now, &oldPublished, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := testRecord(now)
			record.CreatedAt = tt.createdAt
			record.PublishedAt = tt.publishedAt
			record.ClosesAt = tt.closesAt
			result := engine.Classify(record, nil, cfg, now)
			if result.IsNew != tt.want {
				t.Errorf("IsNew = %v, want %v", result.IsNew, tt.want)
			}
		})
	}
}
