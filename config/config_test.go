package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SYNC_ACTIVE_WINDOW", "")

	cfg := LoadConfig()
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "https://halkarz.com", cfg.App.Source.BaseURL)
	assert.Equal(t, 50, cfg.App.Sync.ActiveWindow)
	assert.Equal(t, shared.RenderModeHTTP, cfg.App.Source.RenderMode)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"source": {"base_url": "https://mirror.test", "render_mode": "browser"},
		"sync": {"active_window": 20, "workers": 8}
	}`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SYNC_WORKERS", "2")
	t.Setenv("SYNC_INTERVAL_MINUTES", "15")
	t.Setenv("SOURCE_RENDER_MODE", "carrier-pigeon")

	cfg := LoadConfig()
	assert.Equal(t, "https://mirror.test", cfg.App.Source.BaseURL)
	assert.Equal(t, 20, cfg.App.Sync.ActiveWindow)
	assert.Equal(t, 2, cfg.App.Sync.Workers, "env wins over the file")
	assert.Equal(t, 15*time.Minute, cfg.App.Sync.Interval)
	assert.Equal(t, shared.RenderModeHTTP, cfg.App.Source.RenderMode, "unknown render mode falls back")
	assert.Equal(t, 1000, cfg.App.Cache.MaxSize, "missing sections keep defaults")
}

func TestLoadConfigIgnoresBadNumbers(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SYNC_ACTIVE_WINDOW", "fifty")

	assert.Equal(t, 50, LoadConfig().App.Sync.ActiveWindow)
}
