package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	// Embedding backend
	OpenAIAPIKey       string
	EmbeddingModel     string
	EmbeddingBatchSize int
	EmbeddingTimeout   time.Duration

	// Portal adapters
	PortalRequestDelay time.Duration
	PortalMaxPages     int

	// Recommendation
	RecommendLimit int

	// Scheduler
	SchedulerEnabled bool
	IngestCronSpec   string
	CleanupCronSpec  string
	RecommendCron    string

	// Default tenant for scheduled runs (single-tenant deployments)
	DefaultTenantID string

	// Scraped portal
	ScrapePortalID      string
	ScrapePortalBaseURL string
	ScrapePortalEnabled bool

	// API portal
	APIPortalID           string
	APIPortalBaseURL      string
	APIPortalTokenURL     string
	APIPortalClientID     string
	APIPortalClientSecret string
	APIPortalEnabled      bool
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "tenderwatch"),

		// Embedding backend
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 50),
		EmbeddingTimeout:   time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SEC", 60)) * time.Second,

		// Portal adapters
		PortalRequestDelay: time.Duration(getEnvInt("PORTAL_REQUEST_DELAY_MS", 1500)) * time.Millisecond,
		PortalMaxPages:     getEnvInt("PORTAL_MAX_PAGES", 20),

		// Recommendation
		RecommendLimit: getEnvInt("RECOMMEND_LIMIT", 20),

		// Scheduler
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		IngestCronSpec:   getEnv("INGEST_CRON", "0 0 */6 * * *"),
		CleanupCronSpec:  getEnv("CLEANUP_CRON", "0 30 3 * * *"),
		RecommendCron:    getEnv("RECOMMEND_CRON", "0 15 * * * *"),

		DefaultTenantID: getEnv("DEFAULT_TENANT_ID", ""),

		// Scraped portal
		ScrapePortalID:      getEnv("SCRAPE_PORTAL_ID", "eproc"),
		ScrapePortalBaseURL: getEnv("SCRAPE_PORTAL_BASE_URL", ""),
		ScrapePortalEnabled: getEnvBool("SCRAPE_PORTAL_ENABLED", false),

		// API portal
		APIPortalID:           getEnv("API_PORTAL_ID", "gazette"),
		APIPortalBaseURL:      getEnv("API_PORTAL_BASE_URL", ""),
		APIPortalTokenURL:     getEnv("API_PORTAL_TOKEN_URL", ""),
		APIPortalClientID:     getEnv("API_PORTAL_CLIENT_ID", ""),
		APIPortalClientSecret: getEnv("API_PORTAL_CLIENT_SECRET", ""),
		APIPortalEnabled:      getEnvBool("API_PORTAL_ENABLED", false),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
