package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fenilmodi00/ipo-catalog/database"
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// fakeSource serves a fixed snapshot and per-URL detail pages
type fakeSource struct {
	mu          sync.Mutex
	entries     []models.ListingEntry
	snapshotErr error
	details     map[string]*models.DetailSnapshot
	detailErrs  map[string]error
	detailCalls map[string]int
}

func newFakeSource(entries ...models.ListingEntry) *fakeSource {
	src := &fakeSource{
		details:     make(map[string]*models.DetailSnapshot),
		detailErrs:  make(map[string]error),
		detailCalls: make(map[string]int),
	}
	src.setEntries(entries...)
	return src
}

func (f *fakeSource) setEntries(entries ...models.ListingEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]models.ListingEntry{}, entries...)
	for _, e := range entries {
		if _, ok := f.details[e.SourceURL]; !ok {
			f.details[e.SourceURL] = &models.DetailSnapshot{
				RevisionMarker: strPtr("r1"),
				DetailFields:   models.DetailFields{Price: strPtr("10,00 TL")},
			}
		}
	}
}

func (f *fakeSource) setDetail(sourceURL string, detail *models.DetailSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[sourceURL] = detail
}

func (f *fakeSource) setDetailErr(sourceURL string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.detailErrs, sourceURL)
		return
	}
	f.detailErrs[sourceURL] = err
}

func (f *fakeSource) calls(sourceURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[sourceURL]
}

func (f *fakeSource) FetchListingsSnapshot(ctx context.Context) ([]models.ListingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return append([]models.ListingEntry{}, f.entries...), nil
}

func (f *fakeSource) FetchDetailSnapshot(ctx context.Context, sourceURL string) (*models.DetailSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[sourceURL]++
	if err := f.detailErrs[sourceURL]; err != nil {
		return nil, err
	}
	d, ok := f.details[sourceURL]
	if !ok {
		return nil, errors.New("detail page not found")
	}
	copied := *d
	return &copied, nil
}

// memoryAssets is an AssetStore kept in a map
type memoryAssets struct {
	mu         sync.Mutex
	files      map[string]string
	failSave   bool
	failRename bool
}

func newMemoryAssets() *memoryAssets {
	return &memoryAssets{files: make(map[string]string)}
}

func (m *memoryAssets) Save(ctx context.Context, name, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("download failed")
	}
	m.files[name] = sourceURL
	return nil
}

func (m *memoryAssets) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *memoryAssets) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRename {
		return errors.New("rename failed")
	}
	src, ok := m.files[oldName]
	if !ok {
		return fmt.Errorf("asset %s missing", oldName)
	}
	delete(m.files, oldName)
	m.files[newName] = src
	return nil
}

func activeEntry(i int) models.ListingEntry {
	return models.ListingEntry{
		Code:           fmt.Sprintf("C%03d", i),
		CompanyName:    fmt.Sprintf("Company %03d", i),
		NoticeDateText: "1-2 Ocak 2025",
		SourceURL:      fmt.Sprintf("https://source.test/ipo/c%03d", i),
		IsNew:          true,
	}
}

func draftEntry(i int) models.ListingEntry {
	return models.ListingEntry{
		CompanyName: fmt.Sprintf("Draft Company %03d", i),
		SourceURL:   fmt.Sprintf("https://source.test/draft/d%03d", i),
		IsNew:       true,
		IsDraft:     true,
	}
}

func newTestEngine(src *fakeSource, window int) (*SyncEngine, *database.MemoryStore, *memoryAssets) {
	store := database.NewMemoryStore()
	assets := newMemoryAssets()
	engine := NewSyncEngine(src, store, assets, SyncEngineConfig{ActiveWindow: window, Workers: 4})
	return engine, store, assets
}

func mustListing(t *testing.T, store ListingStore, code string) *models.Listing {
	t.Helper()
	l, err := store.GetListingByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, l, "listing %s missing", code)
	return l
}
