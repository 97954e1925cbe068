package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
	portin "tender_server/core/port/in"
	"tender_server/pkg/apperr"
)

type fakeRecordRepo struct {
	byID map[int64]*domain.CanonicalRecord
}

func (f *fakeRecordRepo) Replace(ctx context.Context, record *domain.CanonicalRecord) (*domain.CanonicalRecord, error) {
	return record, nil
}

func (f *fakeRecordRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.CanonicalRecord, error) {
	if record, ok := f.byID[id]; ok {
		return record, nil
	}
	return nil, apperr.NotFound("record")
}

func (f *fakeRecordRepo) List(ctx context.Context, filter *domain.RecordFilter) ([]*domain.CanonicalRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return nil
}

func (f *fakeRecordRepo) CleanupDuplicates(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRecordRepo) UpsertBuyer(ctx context.Context, tenantID uuid.UUID, name string) (*domain.BuyerRef, error) {
	return &domain.BuyerRef{Name: name}, nil
}

type fakeResultRepo struct {
	qualifying []*domain.ClassificationResult
}

func (f *fakeResultRepo) Upsert(ctx context.Context, result *domain.ClassificationResult) error {
	return nil
}

func (f *fakeResultRepo) GetByRecord(ctx context.Context, tenantID uuid.UUID, recordID int64) (*domain.ClassificationResult, error) {
	return nil, nil
}

func (f *fakeResultRepo) ListQualifying(ctx context.Context, tenantID uuid.UUID, scoreThreshold, limit int) ([]*domain.ClassificationResult, error) {
	return f.qualifying, nil
}

type fakeNotificationRepo struct {
	created     []*domain.NotificationMessage
	preferences []*domain.RecipientPreference
	route       *domain.NotificationRoute
	roleMembers []uuid.UUID
}

func (f *fakeNotificationRepo) CreateMany(ctx context.Context, messages []*domain.NotificationMessage) error {
	f.created = append(f.created, messages...)
	return nil
}

func (f *fakeNotificationRepo) ListPreferences(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, activity string) ([]*domain.RecipientPreference, error) {
	return f.preferences, nil
}

func (f *fakeNotificationRepo) GetRoute(ctx context.Context, tenantID uuid.UUID, activity string) (*domain.NotificationRoute, error) {
	return f.route, nil
}

func (f *fakeNotificationRepo) ResolveRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]uuid.UUID, error) {
	return f.roleMembers, nil
}

type fakeConfigLoader struct{}

func (fakeConfigLoader) Load(ctx context.Context, tenantID uuid.UUID) (*domain.SmartFilterConfig, error) {
	return domain.DefaultSmartFilterConfig(), nil
}

func testRecords(ids ...int64) map[int64]*domain.CanonicalRecord {
	byID := make(map[int64]*domain.CanonicalRecord, len(ids))
	for _, id := range ids {
		byID[id] = &domain.CanonicalRecord{
			ID:        id,
			Portal:    "eproc",
			Title:     "Tender",
			SourceURL: "https://eproc.example/t/1",
			CreatedAt: time.Now(),
		}
	}
	return byID
}

func newTestService(records *fakeRecordRepo, results *fakeResultRepo, notifications *fakeNotificationRepo) *Service {
	return NewService(&ServiceDeps{
		Records:       records,
		Results:       results,
		Notifications: notifications,
		Config:        fakeConfigLoader{},
	})
}

func TestDispatchExplicitRecipients(t *testing.T) {
	tenantID := uuid.New()
	userA, userB := uuid.New(), uuid.New()
	notifications := &fakeNotificationRepo{}
	svc := newTestService(&fakeRecordRepo{byID: testRecords(1, 2)}, &fakeResultRepo{}, notifications)

	result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{
		TenantID:  tenantID,
		RecordIDs: []int64{1, 2},
		UserIDs:   []uuid.UUID{userA, userB, userA}, // duplicate collapses
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	// 2 records x 2 users x 2 default channels
	if result.Created != 8 {
		t.Errorf("Created = %d, want 8", result.Created)
	}
	if len(notifications.created) != 8 {
		t.Errorf("queued %d messages, want 8", len(notifications.created))
	}
}

func TestDispatchResolvesRoute(t *testing.T) {
	tenantID := uuid.New()
	routeUser, roleUser := uuid.New(), uuid.New()
	notifications := &fakeNotificationRepo{
		route:       &domain.NotificationRoute{UserIDs: []uuid.UUID{routeUser}, Roles: []string{"procurement"}},
		roleMembers: []uuid.UUID{roleUser, routeUser}, // overlap collapses
	}
	svc := newTestService(&fakeRecordRepo{byID: testRecords(1)}, &fakeResultRepo{}, notifications)

	result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{
		TenantID:  tenantID,
		RecordIDs: []int64{1},
		Channels:  []domain.NotificationChannel{domain.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2 (route user + role user, once each)", result.Created)
	}
}

func TestDispatchPreferenceGating(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	tests := []struct {
		name        string
		preferences []*domain.RecipientPreference
		wantCreated int
		wantSkipped string
	}{
		{
			name:        "no stored preference defaults to enabled",
			wantCreated: 2,
		},
		{
			name: "disabled channel drops its messages",
			preferences: []*domain.RecipientPreference{
				{UserID: userID, Channel: domain.ChannelEmail, Enabled: false, Digest: domain.DigestInstant},
			},
			wantCreated: 1, // in-app survives
		},
		{
			name: "digest off suppresses delivery",
			preferences: []*domain.RecipientPreference{
				{UserID: userID, Channel: domain.ChannelEmail, Enabled: true, Digest: domain.DigestOff},
				{UserID: userID, Channel: domain.ChannelInApp, Enabled: true, Digest: domain.DigestOff},
			},
			wantSkipped: domain.SkipNoChannels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifications := &fakeNotificationRepo{preferences: tt.preferences}
			svc := newTestService(&fakeRecordRepo{byID: testRecords(1)}, &fakeResultRepo{}, notifications)

			result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{
				TenantID:  tenantID,
				RecordIDs: []int64{1},
				UserIDs:   []uuid.UUID{userID},
			})
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if result.Created != tt.wantCreated {
				t.Errorf("Created = %d, want %d", result.Created, tt.wantCreated)
			}
			if result.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %q, want %q", result.Skipped, tt.wantSkipped)
			}
		})
	}
}

func TestDispatchSkips(t *testing.T) {
	tenantID := uuid.New()

	t.Run("no qualifying records", func(t *testing.T) {
		svc := newTestService(&fakeRecordRepo{}, &fakeResultRepo{}, &fakeNotificationRepo{})
		result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{TenantID: tenantID})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if result.Skipped != domain.SkipNoRecords {
			t.Errorf("Skipped = %q, want %q", result.Skipped, domain.SkipNoRecords)
		}
	})

	t.Run("no route configured", func(t *testing.T) {
		svc := newTestService(&fakeRecordRepo{byID: testRecords(1)}, &fakeResultRepo{}, &fakeNotificationRepo{})
		result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{
			TenantID:  tenantID,
			RecordIDs: []int64{1},
		})
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if result.Skipped != domain.SkipNoRecipients {
			t.Errorf("Skipped = %q, want %q", result.Skipped, domain.SkipNoRecipients)
		}
	})
}

func TestDispatchSelectsQualifyingResults(t *testing.T) {
	tenantID := uuid.New()
	results := &fakeResultRepo{qualifying: []*domain.ClassificationResult{
		{RecordID: 1, Score: 80, IsNew: true},
		{RecordID: 99, Score: 50, IsNew: true}, // record missing, skipped
	}}
	notifications := &fakeNotificationRepo{
		route: &domain.NotificationRoute{UserIDs: []uuid.UUID{uuid.New()}},
	}
	svc := newTestService(&fakeRecordRepo{byID: testRecords(1)}, results, notifications)

	result, err := svc.Dispatch(context.Background(), &portin.DispatchRequest{
		TenantID: tenantID,
		Channels: []domain.NotificationChannel{domain.ChannelInApp},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
}
