package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAssetStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := NewFileAssetStore(dir, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "TEMP-alfa.png", server.URL+"/logo.png"))
	assert.True(t, store.Exists("TEMP-alfa.png"))
	content, err := os.ReadFile(filepath.Join(dir, "TEMP-alfa.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Rename("TEMP-alfa.png", "ALFA.png"))
	assert.False(t, store.Exists("TEMP-alfa.png"))
	assert.True(t, store.Exists("ALFA.png"))

	require.NoError(t, store.Save(ctx, "BETA.png", server.URL+"/logo.png"))
	assert.Error(t, store.Rename("ALFA.png", "BETA.png"), "rename never overwrites")

	assert.Error(t, store.Save(ctx, "GONE.png", server.URL+"/missing.png"))
	assert.False(t, store.Exists("GONE.png"))
}
