package services

import (
	"context"
	"sync"
	"testing"

	"github.com/fenilmodi00/ipo-catalog/database"
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPlaceholder(t *testing.T, store ListingStore, name string, logoRef *string) *models.Listing {
	t.Helper()
	l := &models.Listing{
		Code:        PlaceholderCode(name),
		CompanyName: name,
		SourceURL:   "https://source.test/" + GenerateSlug(name),
		LogoRef:     logoRef,
		Status:      models.StatusUpcoming,
		IsNew:       true,
	}
	require.NoError(t, store.CreateListing(context.Background(), l, nil))
	return l
}

func TestPromoteRenamesCachedAsset(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	assets := newMemoryAssets()
	promoter := NewIdentifierPromoter(store, assets)

	ref := AssetName(PlaceholderCode("Logo Sirket"), ".png")
	require.NoError(t, assets.Save(ctx, ref, "https://cdn.test/logo.png"))
	listing := createPlaceholder(t, store, "Logo Sirket", &ref)

	outcome, err := promoter.Promote(ctx, listing, "LOGO")
	require.NoError(t, err)
	assert.Equal(t, PromotionApplied, outcome)
	assert.Equal(t, "LOGO", listing.Code)
	require.NotNil(t, listing.LogoRef)
	assert.Equal(t, "LOGO.png", *listing.LogoRef)
	assert.True(t, assets.Exists("LOGO.png"))
	assert.False(t, assets.Exists(ref))

	persisted := mustListing(t, store, "LOGO")
	assert.Equal(t, "LOGO.png", *persisted.LogoRef)
}

func TestPromoteKeepsReferenceWhenRenameFails(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	assets := newMemoryAssets()
	promoter := NewIdentifierPromoter(store, assets)

	ref := AssetName(PlaceholderCode("Inat Sirket"), ".png")
	require.NoError(t, assets.Save(ctx, ref, "https://cdn.test/logo.png"))
	assets.failRename = true
	listing := createPlaceholder(t, store, "Inat Sirket", &ref)

	outcome, err := promoter.Promote(ctx, listing, "INAT")
	require.NoError(t, err)
	assert.Equal(t, PromotionApplied, outcome)

	persisted := mustListing(t, store, "INAT")
	require.NotNil(t, persisted.LogoRef)
	assert.Equal(t, ref, *persisted.LogoRef, "old reference retained")
}

func TestPromoteConflictKeepsPlaceholder(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	promoter := NewIdentifierPromoter(store, nil)

	require.NoError(t, store.CreateListing(ctx, &models.Listing{Code: "TAKEN", CompanyName: "Owner", Status: models.StatusUpcoming}, nil))
	listing := createPlaceholder(t, store, "Latecomer", nil)
	placeholder := listing.Code

	outcome, err := promoter.Promote(ctx, listing, "TAKEN")
	require.NoError(t, err)
	assert.Equal(t, PromotionConflict, outcome)
	assert.Equal(t, placeholder, listing.Code)
	mustListing(t, store, placeholder)
}

func TestPromoteSkipsGenuineCodes(t *testing.T) {
	store := database.NewMemoryStore()
	promoter := NewIdentifierPromoter(store, nil)

	listing := &models.Listing{Code: "REAL"}
	outcome, err := promoter.Promote(context.Background(), listing, "OTHER")
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, outcome)

	placeholder := &models.Listing{Code: "TEMP-x"}
	outcome, err = promoter.Promote(context.Background(), placeholder, "TEMP-y")
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, outcome)
}

func TestConcurrentPromotionToSameCode(t *testing.T) {
	for round := 0; round < 20; round++ {
		ctx := context.Background()
		store := database.NewMemoryStore()
		promoter := NewIdentifierPromoter(store, nil)

		first := createPlaceholder(t, store, "Birinci Sirket", nil)
		second := createPlaceholder(t, store, "Ikinci Sirket", nil)

		var wg sync.WaitGroup
		start := make(chan struct{})
		outcomes := make([]PromotionOutcome, 2)
		for i, l := range []*models.Listing{first, second} {
			wg.Add(1)
			go func(i int, l *models.Listing) {
				defer wg.Done()
				<-start
				outcome, err := promoter.Promote(ctx, l, "REAL")
				assert.NoError(t, err)
				outcomes[i] = outcome
			}(i, l)
		}
		close(start)
		wg.Wait()

		applied, conflicts := 0, 0
		for _, o := range outcomes {
			switch o {
			case PromotionApplied:
				applied++
			case PromotionConflict:
				conflicts++
			}
		}
		require.Equal(t, 1, applied, "exactly one promotion wins")
		require.Equal(t, 1, conflicts, "the loser is surfaced as a conflict")

		all, err := store.ListAllListings(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2, "the loser is not dropped")
	}
}

// staleReadStore never sees existing codes, as if another process wrote after the check
type staleReadStore struct {
	*database.MemoryStore
}

func (s staleReadStore) GetListingByCode(ctx context.Context, code string) (*models.Listing, error) {
	return nil, nil
}

func TestPromotionRollsBackAssetOnUniqueViolation(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemoryStore()
	assets := newMemoryAssets()
	promoter := NewIdentifierPromoter(staleReadStore{mem}, assets)

	require.NoError(t, mem.CreateListing(ctx, &models.Listing{Code: "SAME", CompanyName: "Owner", Status: models.StatusUpcoming}, nil))
	ref := AssetName(PlaceholderCode("Alfa"), ".png")
	require.NoError(t, assets.Save(ctx, ref, "https://cdn.test/a.png"))
	listing := createPlaceholder(t, mem, "Alfa", &ref)

	outcome, err := promoter.Promote(ctx, listing, "SAME")
	require.NoError(t, err)
	assert.Equal(t, PromotionConflict, outcome)
	assert.Equal(t, PlaceholderCode("Alfa"), listing.Code)
	assert.True(t, assets.Exists(ref), "asset rename rolled back")
	assert.False(t, assets.Exists("SAME.png"))
}
