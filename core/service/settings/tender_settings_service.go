// Package settings loads and mutates the tenant's smart filter
// configuration.
package settings

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"tender_server/core/domain"
	"tender_server/core/port/out"
	"tender_server/pkg/logger"
)

// Service is the defaulting loader around the settings rows.
type Service struct {
	repo out.SettingsRepository
	log  *logger.Logger
}

// NewService creates a settings service.
func NewService(repo out.SettingsRepository) *Service {
	return &Service{
		repo: repo,
		log:  logger.WithField("component", "settings"),
	}
}

// Load builds the tenant's config. Missing or malformed values fall back to
// documented defaults; malformed keys are logged as config errors but never
// fail the load.
func (s *Service) Load(ctx context.Context, tenantID uuid.UUID) (*domain.SmartFilterConfig, error) {
	values, err := s.repo.GetAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	cfg, badKeys := domain.ParseSmartFilterConfig(values)
	for _, key := range badKeys {
		s.log.WithField("tenant_id", tenantID.String()).WithField("key", key).
			Warn("malformed setting, using default")
	}
	return cfg, nil
}

// BumpTaxonomyVersion increments the persisted version once and returns the
// new value. Called exactly once per reprocessing run, before any record is
// re-scored.
func (s *Service) BumpTaxonomyVersion(ctx context.Context, tenantID uuid.UUID) (int, error) {
	cfg, err := s.Load(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	next := cfg.TaxonomyVersion + 1
	if err := s.repo.Set(ctx, tenantID, domain.SettingTaxonomyVersion, strconv.Itoa(next)); err != nil {
		return 0, err
	}
	return next, nil
}
