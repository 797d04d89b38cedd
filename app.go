package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenilmodi00/ipo-catalog/config"
	"github.com/fenilmodi00/ipo-catalog/database"
	"github.com/fenilmodi00/ipo-catalog/jobs"
	"github.com/fenilmodi00/ipo-catalog/scraper"
	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
)

// app holds the wired components shared by the serve and sync commands
type app struct {
	cfg     *config.Config
	db      *sql.DB
	source  *scraper.Source
	cache   *services.CacheService
	queries *services.ListingQueryService
	syncJob *jobs.ListingSyncJob
}

func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	shared.ConfigureLogging(cfg.App.Logging)
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) (services.ListingStore, *sql.DB, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logrus.Warn("Using the in-memory store, the catalog will not survive a restart")
		return database.NewMemoryStore(), nil, nil
	case config.StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "MISSING_DATABASE_URL",
				"DATABASE_URL is required for the "+config.StoreDriverPostgres+" store", "ipo-catalog", "openStore", false, nil)
		}
		db, err := database.Open(cfg.DatabaseURL, &cfg.App.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return database.NewListingRepository(db), db, nil
	default:
		return nil, nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "UNKNOWN_STORE_DRIVER",
			fmt.Sprintf("unknown STORE_DRIVER %q", cfg.StoreDriver), "ipo-catalog", "openStore", false, nil)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	assets, err := services.NewFileAssetStore(cfg.App.Sync.AssetDir, cfg.App.Source.HTTPRequestTimeout)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	source := scraper.NewSource(cfg.App.Source, nil)
	engine := services.NewSyncEngine(source, store, assets, services.SyncEngineConfig{
		ActiveWindow: cfg.App.Sync.ActiveWindow,
		Workers:      cfg.App.Sync.Workers,
	})

	cache := services.NewCacheService(cfg.App.Cache.DefaultTTL, cfg.App.Cache.MaxSize)
	queries := services.NewListingQueryService(store, cache)
	syncJob := jobs.NewListingSyncJob(engine, queries, jobs.NewSyncLease(cfg.App.Sync.LeaseTTL), cfg.App.Sync.PassTimeout)

	logrus.WithFields(logrus.Fields{
		"store":          cfg.StoreDriver,
		"source":         cfg.App.Source.BaseURL,
		"render_mode":    cfg.App.Source.RenderMode,
		"active_window":  cfg.App.Sync.ActiveWindow,
		"workers":        cfg.App.Sync.Workers,
		"cache_ttl":      cfg.App.Cache.DefaultTTL,
		"cache_max_size": cfg.App.Cache.MaxSize,
	}).Info("Catalog services initialized")

	return &app{
		cfg:     cfg,
		db:      db,
		source:  source,
		cache:   cache,
		queries: queries,
		syncJob: syncJob,
	}, nil
}

func (a *app) Close() {
	a.syncJob.Stop()
	a.source.Close()
	if a.db != nil {
		a.db.Close()
		logrus.Info("Database connection closed")
	}
}
