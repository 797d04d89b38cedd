package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Source   SourceConfig   `json:"source"`
	Database DatabaseConfig `json:"database"`
	Sync     SyncConfig     `json:"sync"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
}

// SourceConfig holds configuration of the scraping collaborator
type SourceConfig struct {
	BaseURL            string        `json:"base_url"`
	ListingsPath       string        `json:"listings_path"`
	DraftsPath         string        `json:"drafts_path"`
	RenderMode         string        `json:"render_mode"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestsPerSecond  float64       `json:"requests_per_second"`
	MaxRetryAttempts   int           `json:"max_retries"`
	MaxPages           int           `json:"max_pages"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// SyncConfig holds reconciliation engine configuration
type SyncConfig struct {
	// Number of leading active entries refreshed per incremental pass
	ActiveWindow int           `json:"active_window"`
	Workers      int           `json:"workers"`
	Interval     time.Duration `json:"interval"`
	LeaseTTL     time.Duration `json:"lease_ttl"`
	PassTimeout  time.Duration `json:"pass_timeout"`
	AssetDir     string        `json:"asset_dir"`
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

const (
	RenderModeHTTP    = "http"
	RenderModeBrowser = "browser"
)

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Source: SourceConfig{
			BaseURL:            "https://halkarz.com",
			ListingsPath:       "/",
			DraftsPath:         "/taslak-ipolar/",
			RenderMode:         RenderModeHTTP,
			HTTPRequestTimeout: 30 * time.Second,
			RequestsPerSecond:  0.5,
			MaxRetryAttempts:   3,
			MaxPages:           40,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Sync: SyncConfig{
			ActiveWindow: 50,
			Workers:      4,
			Interval:     30 * time.Minute,
			LeaseTTL:     45 * time.Minute,
			PassTimeout:  40 * time.Minute,
			AssetDir:     "assets/logos",
		},
		Cache: CacheConfig{
			DefaultTTL: 5 * time.Minute,
			MaxSize:    1000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "ipo-catalog",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaults.Source.BaseURL
		logger.Debug("Applied default Source.BaseURL")
	}
	if c.Source.ListingsPath == "" {
		c.Source.ListingsPath = defaults.Source.ListingsPath
		logger.Debug("Applied default Source.ListingsPath")
	}
	if c.Source.RenderMode != RenderModeHTTP && c.Source.RenderMode != RenderModeBrowser {
		c.Source.RenderMode = defaults.Source.RenderMode
		logger.Debug("Applied default Source.RenderMode")
	}
	if c.Source.HTTPRequestTimeout <= 0 {
		c.Source.HTTPRequestTimeout = defaults.Source.HTTPRequestTimeout
		logger.Debug("Applied default Source.HTTPRequestTimeout")
	}
	if c.Source.RequestsPerSecond <= 0 {
		c.Source.RequestsPerSecond = defaults.Source.RequestsPerSecond
		logger.Debug("Applied default Source.RequestsPerSecond")
	}
	if c.Source.MaxRetryAttempts < 0 {
		c.Source.MaxRetryAttempts = defaults.Source.MaxRetryAttempts
		logger.Debug("Applied default Source.MaxRetryAttempts")
	}
	if c.Source.MaxPages <= 0 {
		c.Source.MaxPages = defaults.Source.MaxPages
		logger.Debug("Applied default Source.MaxPages")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}
	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Sync.ActiveWindow <= 0 {
		c.Sync.ActiveWindow = defaults.Sync.ActiveWindow
		logger.Debug("Applied default Sync.ActiveWindow")
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = defaults.Sync.Workers
		logger.Debug("Applied default Sync.Workers")
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = defaults.Sync.Interval
		logger.Debug("Applied default Sync.Interval")
	}
	if c.Sync.LeaseTTL <= 0 {
		c.Sync.LeaseTTL = defaults.Sync.LeaseTTL
		logger.Debug("Applied default Sync.LeaseTTL")
	}
	if c.Sync.PassTimeout <= 0 {
		c.Sync.PassTimeout = defaults.Sync.PassTimeout
		logger.Debug("Applied default Sync.PassTimeout")
	}
	if c.Sync.AssetDir == "" {
		c.Sync.AssetDir = defaults.Sync.AssetDir
		logger.Debug("Applied default Sync.AssetDir")
	}

	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = defaults.Cache.DefaultTTL
		logger.Debug("Applied default Cache.DefaultTTL")
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = defaults.Cache.MaxSize
		logger.Debug("Applied default Cache.MaxSize")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}
