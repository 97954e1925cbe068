// Package recommend fans qualifying records out to recipients as queued
// notifications.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
	portin "tender_server/core/port/in"
	"tender_server/core/port/out"
	"tender_server/core/service/ingest"
	"tender_server/pkg/logger"
)

// DefaultLimit caps record selection when none is configured.
const DefaultLimit = 20

// Service resolves recipients and enqueues recommendation messages.
type Service struct {
	records       out.RecordRepository
	results       out.ClassificationRepository
	notifications out.NotificationRepository
	config        ingest.ConfigLoader
	events        out.EventPublisher
	limit         int
	log           *logger.Logger
}

// ServiceDeps holds dependencies for creating a recommend Service.
type ServiceDeps struct {
	Records       out.RecordRepository
	Results       out.ClassificationRepository
	Notifications out.NotificationRepository
	Config        ingest.ConfigLoader
	Events        out.EventPublisher
	Limit         int
}

// NewService creates a recommend service.
func NewService(deps *ServiceDeps) *Service {
	limit := deps.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		records:       deps.Records,
		results:       deps.Results,
		notifications: deps.Notifications,
		config:        deps.Config,
		events:        deps.Events,
		limit:         limit,
		log:           logger.WithField("component", "recommend"),
	}
}

var _ portin.RecommendService = (*Service)(nil)

// Dispatch selects records, resolves recipients and enqueues one message per
// (record, user, channel) that survives preference gating. Empty selections
// and empty recipient sets are skips, not errors.
func (s *Service) Dispatch(ctx context.Context, req *portin.DispatchRequest) (*domain.DispatchResult, error) {
	records, err := s.selectRecords(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &domain.DispatchResult{Skipped: domain.SkipNoRecords}, nil
	}

	userIDs, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return &domain.DispatchResult{Skipped: domain.SkipNoRecipients}, nil
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = domain.DefaultChannels
	}

	preferences, err := s.notifications.ListPreferences(ctx, req.TenantID, userIDs, domain.ActivityRecommendation)
	if err != nil {
		return nil, err
	}
	gate := buildGate(preferences)

	now := time.Now()
	var messages []*domain.NotificationMessage
	for _, record := range records {
		for _, userID := range userIDs {
			for _, channel := range channels {
				if !gate.allows(userID, channel) {
					continue
				}
				messages = append(messages, s.buildMessage(req.TenantID, userID, channel, record, now))
			}
		}
	}
	if len(messages) == 0 {
		return &domain.DispatchResult{Skipped: domain.SkipNoChannels}, nil
	}

	if err := s.notifications.CreateMany(ctx, messages); err != nil {
		return nil, err
	}

	result := &domain.DispatchResult{Created: len(messages)}
	s.publishDispatched(ctx, req.TenantID, len(records), result)
	s.log.WithField("tenant_id", req.TenantID.String()).
		Info("recommendations dispatched: records=%d messages=%d", len(records), len(messages))
	return result, nil
}

// selectRecords honors explicit IDs, otherwise picks recent qualifying
// results at the configured threshold.
func (s *Service) selectRecords(ctx context.Context, req *portin.DispatchRequest) ([]*domain.CanonicalRecord, error) {
	if len(req.RecordIDs) > 0 {
		records := make([]*domain.CanonicalRecord, 0, len(req.RecordIDs))
		for _, id := range req.RecordIDs {
			record, err := s.records.GetByID(ctx, req.TenantID, id)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		return records, nil
	}

	cfg, err := s.config.Load(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListQualifying(ctx, req.TenantID, cfg.ScoreThreshold, s.limit)
	if err != nil {
		return nil, err
	}
	records := make([]*domain.CanonicalRecord, 0, len(results))
	for _, result := range results {
		record, err := s.records.GetByID(ctx, req.TenantID, result.RecordID)
		if err != nil {
			s.log.WithError(err).WithField("record_id", result.RecordID).Warn("qualifying record load failed")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// resolveRecipients: explicit users win, else the default route's users plus
// its expanded roles.
func (s *Service) resolveRecipients(ctx context.Context, req *portin.DispatchRequest) ([]uuid.UUID, error) {
	if len(req.UserIDs) > 0 {
		return dedupeIDs(req.UserIDs), nil
	}

	route, err := s.notifications.GetRoute(ctx, req.TenantID, domain.ActivityRecommendation)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, nil
	}

	ids := append([]uuid.UUID(nil), route.UserIDs...)
	if len(route.Roles) > 0 {
		members, err := s.notifications.ResolveRoles(ctx, req.TenantID, route.Roles)
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
	}
	return dedupeIDs(ids), nil
}

func (s *Service) buildMessage(tenantID, userID uuid.UUID, channel domain.NotificationChannel, record *domain.CanonicalRecord, now time.Time) *domain.NotificationMessage {
	return &domain.NotificationMessage{
		TenantID: tenantID,
		UserID:   userID,
		Activity: domain.ActivityRecommendation,
		Channel:  channel,
		Title:    fmt.Sprintf("Recommended tender: %s", record.Title),
		Body:     record.SourceURL,
		Data: map[string]any{
			"portal":       record.Portal,
			"external_ref": record.ExternalRef,
		},
		RecordID:  record.ID,
		CreatedAt: now,
	}
}

func (s *Service) publishDispatched(ctx context.Context, tenantID uuid.UUID, records int, result *domain.DispatchResult) {
	if s.events == nil {
		return
	}
	event := &out.RecommendationDispatchedEvent{
		TenantID:   tenantID.String(),
		Records:    records,
		Created:    result.Created,
		Skipped:    result.Skipped,
		DispatchAt: time.Now(),
	}
	if err := s.events.PublishRecommendationDispatched(ctx, event); err != nil {
		s.log.WithError(err).Warn("dispatch event publish failed")
	}
}

// preferenceGate indexes stored preferences. Users without a stored
// preference for a channel are enabled by default.
type preferenceGate struct {
	byKey map[string]*domain.RecipientPreference
}

func buildGate(preferences []*domain.RecipientPreference) *preferenceGate {
	gate := &preferenceGate{byKey: make(map[string]*domain.RecipientPreference, len(preferences))}
	for _, p := range preferences {
		gate.byKey[gateKey(p.UserID, p.Channel)] = p
	}
	return gate
}

func (g *preferenceGate) allows(userID uuid.UUID, channel domain.NotificationChannel) bool {
	if p, ok := g.byKey[gateKey(userID, channel)]; ok {
		return p.ShouldDeliver()
	}
	return true
}

func gateKey(userID uuid.UUID, channel domain.NotificationChannel) string {
	return userID.String() + "/" + string(channel)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
