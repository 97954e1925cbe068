package bootstrap

import (
	"context"

	"tender_server/adapter/out/embedding"
	"tender_server/adapter/out/messaging"
	"tender_server/adapter/out/mongodb"
	"tender_server/adapter/out/persistence"
	"tender_server/adapter/out/portal"
	"tender_server/config"
	"tender_server/core/port/out"
	embeddingservice "tender_server/core/service/embedding"
	"tender_server/core/service/ingest"
	"tender_server/core/service/recommend"
	"tender_server/core/service/reprocess"
	"tender_server/core/service/settings"
	"tender_server/core/service/taxonomy"
	"tender_server/infra/database"
	"tender_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	RecordRepo       *persistence.RecordAdapter
	RuleRepo         *persistence.RuleAdapter
	ResultRepo       *persistence.ClassificationAdapter
	SettingsRepo     *persistence.SettingsAdapter
	RunRepo          *persistence.RunAdapter
	NotificationRepo *persistence.NotificationAdapter

	// Outbound adapters
	EmbeddingBackend *embedding.OpenAIAdapter
	PortalAdapters   []out.PortalAdapter
	EventPublisher   out.EventPublisher
	SnapshotArchive  out.SnapshotArchive

	// Services
	Guard            *ingest.RunGuard
	EmbeddingService *embeddingservice.Service
	TaxonomyService  *taxonomy.Service
	SettingsService  *settings.Service
	IngestRunner     *ingest.Runner
	ReprocessService *reprocess.Service
	RecommendService *recommend.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool, health checks and raw queries)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the persistence adapters)
	sqlDB, err := database.NewSqlx(cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
		deps.EventPublisher = messaging.NewRedisProducer(redisClient)
	}

	// MongoDB (raw snapshot archive)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			archive, err := mongodb.NewSnapshotAdapter(mongoClient, cfg.MongoDBName)
			if err != nil {
				logger.Warn("snapshot archive init failed: %v", err)
			} else {
				deps.SnapshotArchive = archive
			}
		}
	}

	// Repositories
	deps.RecordRepo = persistence.NewRecordAdapter(sqlDB)
	deps.RuleRepo = persistence.NewRuleAdapter(sqlDB)
	deps.ResultRepo = persistence.NewClassificationAdapter(sqlDB)
	deps.SettingsRepo = persistence.NewSettingsAdapter(sqlDB)
	deps.RunRepo = persistence.NewRunAdapter(sqlDB)
	deps.NotificationRepo = persistence.NewNotificationAdapter(sqlDB)

	// Embedding backend
	deps.EmbeddingBackend = embedding.NewOpenAIAdapter(&embedding.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.EmbeddingModel,
		Timeout: cfg.EmbeddingTimeout,
	})
	deps.EmbeddingService = embeddingservice.NewService(deps.EmbeddingBackend, cfg.EmbeddingBatchSize)

	// Portal adapters
	deps.PortalAdapters = buildPortals(cfg)

	// Core services share one run guard so ingest and reprocess never overlap.
	deps.Guard = ingest.NewRunGuard()
	deps.TaxonomyService = taxonomy.NewService(deps.RuleRepo, deps.EmbeddingService)
	deps.SettingsService = settings.NewService(deps.SettingsRepo)

	deps.IngestRunner = ingest.NewRunner(&ingest.RunnerDeps{
		Guard:     deps.Guard,
		Adapters:  deps.PortalAdapters,
		Records:   deps.RecordRepo,
		Results:   deps.ResultRepo,
		Config:    deps.SettingsService,
		Rules:     deps.TaxonomyService,
		Embedder:  deps.EmbeddingService,
		Snapshots: deps.SnapshotArchive,
		Events:    deps.EventPublisher,
	})

	deps.ReprocessService = reprocess.NewService(&reprocess.ServiceDeps{
		Guard:    deps.Guard,
		Records:  deps.RecordRepo,
		Results:  deps.ResultRepo,
		Runs:     deps.RunRepo,
		Settings: deps.SettingsService,
		Rules:    deps.TaxonomyService,
		Embedder: deps.EmbeddingService,
		Events:   deps.EventPublisher,
	})

	deps.RecommendService = recommend.NewService(&recommend.ServiceDeps{
		Records:       deps.RecordRepo,
		Results:       deps.ResultRepo,
		Notifications: deps.NotificationRepo,
		Config:        deps.SettingsService,
		Events:        deps.EventPublisher,
		Limit:         cfg.RecommendLimit,
	})

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// buildPortals assembles the configured portal adapters. Disabled portals are
// still registered; the runner skips them, so /runs/status can list them.
func buildPortals(cfg *config.Config) []out.PortalAdapter {
	var adapters []out.PortalAdapter

	if cfg.ScrapePortalBaseURL != "" {
		adapters = append(adapters, portal.NewHTMLAdapter(&portal.HTMLPortalConfig{
			ID:       cfg.ScrapePortalID,
			BaseURL:  cfg.ScrapePortalBaseURL,
			PagePath: "/notices?page=%d",
			Selectors: portal.HTMLSelectors{
				Row:         "table.listing tbody tr",
				Title:       "td.title a",
				Link:        "td.title a",
				ExternalRef: "td.ref",
				Buyer:       "td.buyer",
				Published:   "td.published",
				Closes:      "td.closes",
			},
			MaxPages:     cfg.PortalMaxPages,
			RequestDelay: cfg.PortalRequestDelay,
			Enabled:      cfg.ScrapePortalEnabled,
		}))
	}

	if cfg.APIPortalBaseURL != "" {
		adapters = append(adapters, portal.NewAPIAdapter(&portal.APIPortalConfig{
			ID:           cfg.APIPortalID,
			BaseURL:      cfg.APIPortalBaseURL,
			TokenURL:     cfg.APIPortalTokenURL,
			ClientID:     cfg.APIPortalClientID,
			ClientSecret: cfg.APIPortalClientSecret,
			MaxPages:     cfg.PortalMaxPages,
			RequestDelay: cfg.PortalRequestDelay,
			Enabled:      cfg.APIPortalEnabled,
		}))
	}

	return adapters
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if err := d.DB.Ping(ctx); err != nil {
		return err
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
