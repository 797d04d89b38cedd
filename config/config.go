package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	StoreDriver string
	AdminToken  string

	// Typed settings shared by the scraper, the sync engine and the cache
	App *shared.UnifiedConfiguration
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	app := shared.NewDefaultUnifiedConfiguration()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if data, err := os.ReadFile(path); err != nil {
			logrus.WithError(err).Warnf("Could not read CONFIG_FILE %s, using defaults", path)
		} else if err := app.LoadFromJSON(data); err != nil {
			logrus.WithError(err).Warnf("Invalid CONFIG_FILE %s, using defaults", path)
			app = shared.NewDefaultUnifiedConfiguration()
		}
	}

	app.Source.BaseURL = getEnv("SOURCE_BASE_URL", app.Source.BaseURL)
	app.Source.ListingsPath = getEnv("SOURCE_LISTINGS_PATH", app.Source.ListingsPath)
	app.Source.DraftsPath = getEnv("SOURCE_DRAFTS_PATH", app.Source.DraftsPath)
	app.Source.RenderMode = getEnv("SOURCE_RENDER_MODE", app.Source.RenderMode)
	app.Source.RequestsPerSecond = getEnvFloat("SOURCE_REQUESTS_PER_SECOND", app.Source.RequestsPerSecond)

	app.Sync.ActiveWindow = getEnvInt("SYNC_ACTIVE_WINDOW", app.Sync.ActiveWindow)
	app.Sync.Workers = getEnvInt("SYNC_WORKERS", app.Sync.Workers)
	app.Sync.Interval = getEnvMinutes("SYNC_INTERVAL_MINUTES", app.Sync.Interval)
	app.Sync.LeaseTTL = getEnvMinutes("SYNC_LEASE_TTL_MINUTES", app.Sync.LeaseTTL)
	app.Sync.AssetDir = getEnv("ASSET_DIR", app.Sync.AssetDir)

	app.Cache.DefaultTTL = getEnvMinutes("CACHE_TTL_MINUTES", app.Cache.DefaultTTL)

	app.Logging.Level = getEnv("LOG_LEVEL", app.Logging.Level)
	app.Logging.Format = getEnv("LOG_FORMAT", app.Logging.Format)

	app.ValidateAndApplyDefaults()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		App:         app,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}
	return value
}

// getEnvMinutes reads a whole number of minutes
func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	minutes := getEnvInt(key, -1)
	if minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
