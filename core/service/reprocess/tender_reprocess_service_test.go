package reprocess

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
	portin "tender_server/core/port/in"
	"tender_server/core/service/ingest"
	"tender_server/pkg/apperr"
)

type fakeSettings struct {
	version int
	bumps   int
}

func (f *fakeSettings) Load(ctx context.Context, tenantID uuid.UUID) (*domain.SmartFilterConfig, error) {
	cfg := domain.DefaultSmartFilterConfig()
	cfg.TaxonomyVersion = f.version
	return cfg, nil
}

func (f *fakeSettings) BumpTaxonomyVersion(ctx context.Context, tenantID uuid.UUID) (int, error) {
	f.version++
	f.bumps++
	return f.version, nil
}

type fakeRecordRepo struct {
	records  []*domain.CanonicalRecord
	vectors  map[int64][]float32
	embedded int
}

func (f *fakeRecordRepo) Replace(ctx context.Context, record *domain.CanonicalRecord) (*domain.CanonicalRecord, error) {
	return record, nil
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.CanonicalRecord, error) {
	return nil, apperr.NotFound("record")
}

func (f *fakeRecordRepo) List(ctx context.Context, filter *domain.RecordFilter) ([]*domain.CanonicalRecord, error) {
	return f.records, nil
}

func (f *fakeRecordRepo) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if f.vectors == nil {
		f.vectors = make(map[int64][]float32)
	}
	f.vectors[id] = embedding
	return nil
}

func (f *fakeRecordRepo) CleanupDuplicates(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRecordRepo) UpsertBuyer(ctx context.Context, tenantID uuid.UUID, name string) (*domain.BuyerRef, error) {
	return &domain.BuyerRef{Name: name}, nil
}

type fakeResultRepo struct {
	upserts []*domain.ClassificationResult
	failID  int64
}

func (f *fakeResultRepo) Upsert(ctx context.Context, result *domain.ClassificationResult) error {
	if f.failID != 0 && result.RecordID == f.failID {
		return apperr.DatabaseError("upsert", errors.New("boom"))
	}
	f.upserts = append(f.upserts, result)
	return nil
}

func (f *fakeResultRepo) GetByRecord(ctx context.Context, tenantID uuid.UUID, recordID int64) (*domain.ClassificationResult, error) {
	return nil, nil
}

func (f *fakeResultRepo) ListQualifying(ctx context.Context, tenantID uuid.UUID, scoreThreshold, limit int) ([]*domain.ClassificationResult, error) {
	return nil, nil
}

type fakeRunRepo struct {
	created   *domain.ReprocessingRun
	finalized bool
	processed int
	errors    int
}

func (f *fakeRunRepo) Create(ctx context.Context, run *domain.ReprocessingRun) (int64, error) {
	f.created = run
	return 7, nil
}

func (f *fakeRunRepo) Finalize(ctx context.Context, id int64, processed, errors int, finishedAt time.Time) error {
	f.finalized = true
	f.processed = processed
	f.errors = errors
	return nil
}

type fakeRuleLoader struct{}

func (fakeRuleLoader) ActiveRules(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error) {
	return []*domain.ActivityRule{{
		ID: 1, Name: "supply", Scope: domain.ScopeSupply, Weight: 1,
		Keywords: []string{"k"}, IsActive: true, Embedding: []float32{1, 0},
	}}, nil
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{1, 0}, nil
}

func storedRecords(n int) []*domain.CanonicalRecord {
	records := make([]*domain.CanonicalRecord, n)
	for i := range records {
		records[i] = &domain.CanonicalRecord{
			ID:        int64(i + 1),
			Portal:    "eproc",
			Title:     "record " + strconv.Itoa(i+1),
			Embedding: []float32{1, 0},
			CreatedAt: time.Now(),
		}
	}
	return records
}

func newTestService(records *fakeRecordRepo, results *fakeResultRepo, runs *fakeRunRepo, settings *fakeSettings, embedder *fakeEmbedder) *Service {
	return NewService(&ServiceDeps{
		Guard:    ingest.NewRunGuard(),
		Records:  records,
		Results:  results,
		Runs:     runs,
		Settings: settings,
		Rules:    fakeRuleLoader{},
		Embedder: embedder,
	})
}

func TestReprocessBumpsVersionOnce(t *testing.T) {
	settings := &fakeSettings{version: 3}
	records := &fakeRecordRepo{records: storedRecords(4)}
	results := &fakeResultRepo{}
	runs := &fakeRunRepo{}
	svc := newTestService(records, results, runs, settings, &fakeEmbedder{})

	got, err := svc.Reprocess(context.Background(), &portin.ReprocessRequest{TenantID: uuid.New()})
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if settings.bumps != 1 {
		t.Errorf("version bumped %d times, want exactly 1", settings.bumps)
	}
	if got.Version != 4 {
		t.Errorf("Version = %d, want 4", got.Version)
	}
	if got.Processed != 4 || got.Errors != 0 {
		t.Errorf("result = processed %d errors %d, want 4/0", got.Processed, got.Errors)
	}
	for _, result := range results.upserts {
		if result.TaxonomyVersion != 4 {
			t.Errorf("result at version %d, want 4", result.TaxonomyVersion)
		}
	}
}

func TestReprocessReusesStoredEmbeddings(t *testing.T) {
	records := &fakeRecordRepo{records: storedRecords(3)}
	records.records[1].Embedding = nil // only this one needs a vector
	embedder := &fakeEmbedder{}
	svc := newTestService(records, &fakeResultRepo{}, &fakeRunRepo{}, &fakeSettings{version: 1}, embedder)

	if _, err := svc.Reprocess(context.Background(), &portin.ReprocessRequest{TenantID: uuid.New()}); err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.calls)
	}
	if _, ok := records.vectors[2]; !ok {
		t.Error("freshly computed embedding should be persisted")
	}
}

func TestReprocessFinalizesRunDespiteErrors(t *testing.T) {
	records := &fakeRecordRepo{records: storedRecords(3)}
	results := &fakeResultRepo{failID: 2}
	runs := &fakeRunRepo{}
	svc := newTestService(records, results, runs, &fakeSettings{version: 1}, &fakeEmbedder{})

	got, err := svc.Reprocess(context.Background(), &portin.ReprocessRequest{TenantID: uuid.New()})
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if got.Processed != 2 || got.Errors != 1 {
		t.Errorf("result = processed %d errors %d, want 2/1", got.Processed, got.Errors)
	}
	if !runs.finalized {
		t.Fatal("run must be finalized")
	}
	if runs.processed != 2 || runs.errors != 1 {
		t.Errorf("finalized with %d/%d, want 2/1", runs.processed, runs.errors)
	}
}

func TestReprocessRejectsConcurrentRun(t *testing.T) {
	svc := newTestService(&fakeRecordRepo{}, &fakeResultRepo{}, &fakeRunRepo{}, &fakeSettings{version: 1}, &fakeEmbedder{})
	if err := svc.guard.TryAcquire("ingest"); err != nil {
		t.Fatalf("setup acquire failed: %v", err)
	}

	_, err := svc.Reprocess(context.Background(), &portin.ReprocessRequest{TenantID: uuid.New()})
	if !apperr.IsCode(err, apperr.CodeAlreadyRunning) {
		t.Errorf("got %v, want ALREADY_RUNNING", err)
	}
}
