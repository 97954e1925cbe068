package domain

import (
	"strconv"
	"strings"
)

// Settings keys for the tenant-scoped smart filter configuration. Values are
// persisted as plain key/value string rows and parsed on load.
const (
	SettingSimilarityThreshold = "smartfilter.similarity_threshold"
	SettingScoreThreshold      = "smartfilter.score_threshold"
	SettingNewWindowHours      = "smartfilter.new_window_hours"
	SettingTaxonomyVersion     = "smartfilter.taxonomy_version"
	SettingGroupedScopes       = "smartfilter.grouped_scopes"
)

// Defaults documented at the settings-store boundary.
const (
	DefaultSimilarityThreshold = 0.35
	DefaultScoreThreshold      = 30
	DefaultNewWindowHours      = 24
	DefaultTaxonomyVersion     = 1
)

// DefaultGroupedScopes is the fixed two-scope alias list used when the
// setting is absent or malformed.
var DefaultGroupedScopes = []string{string(ScopeSupply), string(ScopeServices)}

// SmartFilterConfig holds the tenant-tunable pipeline parameters, populated
// once per run by the defaulting loader.
type SmartFilterConfig struct {
	SimilarityThreshold float64  `json:"similarity_threshold"`
	ScoreThreshold      int      `json:"score_threshold"`
	NewWindowHours      int      `json:"new_window_hours"`
	TaxonomyVersion     int      `json:"taxonomy_version"` // monotonic, bumped only by reprocessing
	GroupedScopes       []string `json:"grouped_scopes"`
}

// DefaultSmartFilterConfig returns the documented defaults.
func DefaultSmartFilterConfig() *SmartFilterConfig {
	return &SmartFilterConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		ScoreThreshold:      DefaultScoreThreshold,
		NewWindowHours:      DefaultNewWindowHours,
		TaxonomyVersion:     DefaultTaxonomyVersion,
		GroupedScopes:       append([]string(nil), DefaultGroupedScopes...),
	}
}

// ParseSmartFilterConfig builds a config from raw settings rows. Malformed
// values fall back to defaults; the keys that failed to parse are returned so
// the caller can log them as config errors.
func ParseSmartFilterConfig(values map[string]string) (*SmartFilterConfig, []string) {
	cfg := DefaultSmartFilterConfig()
	var badKeys []string

	if raw, ok := values[SettingSimilarityThreshold]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			cfg.SimilarityThreshold = v
		} else {
			badKeys = append(badKeys, SettingSimilarityThreshold)
		}
	}
	if raw, ok := values[SettingScoreThreshold]; ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			cfg.ScoreThreshold = v
		} else {
			badKeys = append(badKeys, SettingScoreThreshold)
		}
	}
	if raw, ok := values[SettingNewWindowHours]; ok {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.NewWindowHours = v
		} else {
			badKeys = append(badKeys, SettingNewWindowHours)
		}
	}
	if raw, ok := values[SettingTaxonomyVersion]; ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 1 {
			cfg.TaxonomyVersion = v
		} else {
			badKeys = append(badKeys, SettingTaxonomyVersion)
		}
	}
	if raw, ok := values[SettingGroupedScopes]; ok {
		scopes := splitScopes(raw)
		if len(scopes) > 0 {
			cfg.GroupedScopes = scopes
		} else {
			badKeys = append(badKeys, SettingGroupedScopes)
		}
	}

	return cfg, badKeys
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// IsGroupedScope reports whether the scope participates in the grouped
// aggregate bucket.
func (c *SmartFilterConfig) IsGroupedScope(scope string) bool {
	for _, s := range c.GroupedScopes {
		if s == scope {
			return true
		}
	}
	return false
}
