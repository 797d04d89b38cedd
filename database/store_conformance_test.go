package database

import (
	"context"
	"errors"
	"testing"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogStore is the method set both stores share
type catalogStore interface {
	ListAllListings(ctx context.Context) ([]models.Listing, error)
	ListingIDsWithDetail(ctx context.Context) (map[uuid.UUID]bool, error)
	GetListingByCode(ctx context.Context, code string) (*models.Listing, error)
	GetDetail(ctx context.Context, listingID uuid.UUID) (*models.Detail, error)
	CreateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error
	UpdateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error
	UpdateListingCode(ctx context.Context, listingID uuid.UUID, code string, logoRef *string) error
	UpdateListingStatus(ctx context.Context, listingID uuid.UUID, status models.ListingStatus) error
	DeleteListing(ctx context.Context, listingID uuid.UUID) error
	DeleteAllListings(ctx context.Context) (int, error)
	QueryListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error)
	GetListingView(ctx context.Context, code string) (*models.ListingView, error)
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func sampleBundle(marker string) *models.DetailBundle {
	return &models.DetailBundle{
		Detail: models.Detail{
			DetailFields: models.DetailFields{
				Price:         strPtr("21,50 TL"),
				MarketSegment: strPtr("Yildiz Pazar"),
				SummaryBlocks: []models.SummaryBlock{{Title: "Fon Kullanim Yeri", Items: []string{"%60 yatirim", "%40 isletme sermayesi"}}},
				Attachments:   []models.Attachment{{Title: "Izahname", URL: "https://example.com/izahname.pdf"}},
			},
			RevisionMarker: strPtr(marker),
		},
		Result: &models.Result{
			Summary: []models.ResultSummaryRow{{Segment: "Yurt Ici Bireysel", ApplicantCount: int64Ptr(120000), AllottedUnits: int64Ptr(5000000), AllotmentRatio: "%50"}},
			Notes:   []string{"Kesinlesmis sonuclardir."},
		},
		Places: []models.ApplicationPlace{
			{Name: "Ziraat Yatirim", IsConsortiumMember: true},
			{Name: "Enpara", IsUnlistedVenue: true},
		},
	}
}

func runStoreConformance(t *testing.T, store catalogStore) {
	ctx := context.Background()

	t.Run("create and look up", func(t *testing.T) {
		_, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)

		listing := &models.Listing{Code: "ABCD", CompanyName: "Abcd Enerji A.S.", SourceURL: "https://src/abcd", Status: models.StatusUpcoming, IsNew: true}
		require.NoError(t, store.CreateListing(ctx, listing, sampleBundle("r1")))
		assert.NotEqual(t, uuid.Nil, listing.ID)

		got, err := store.GetListingByCode(ctx, "ABCD")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, listing.ID, got.ID)

		missing, err := store.GetListingByCode(ctx, "abcd")
		require.NoError(t, err)
		assert.Nil(t, missing, "exact lookup is case-sensitive")

		view, err := store.GetListingView(ctx, "abcd")
		require.NoError(t, err)
		require.NotNil(t, view)
		require.NotNil(t, view.Detail)
		assert.Equal(t, "r1", *view.Detail.RevisionMarker)
		require.NotNil(t, view.Result)
		assert.Equal(t, int64(120000), *view.Result.Summary[0].ApplicantCount)
		require.Len(t, view.ApplicationPlaces, 2)
		assert.Equal(t, "Ziraat Yatirim", view.ApplicationPlaces[0].Name)

		ids, err := store.ListingIDsWithDetail(ctx)
		require.NoError(t, err)
		assert.True(t, ids[listing.ID])
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		_, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)

		require.NoError(t, store.CreateListing(ctx, &models.Listing{Code: "DUPE", CompanyName: "One", Status: models.StatusUpcoming}, nil))
		err = store.CreateListing(ctx, &models.Listing{Code: "DUPE", CompanyName: "Two", Status: models.StatusUpcoming}, nil)
		assert.True(t, errors.Is(err, shared.ErrDuplicateCode), "got %v", err)

		other := &models.Listing{Code: "TEMP-two", CompanyName: "Two", Status: models.StatusUpcoming}
		require.NoError(t, store.CreateListing(ctx, other, nil))
		err = store.UpdateListingCode(ctx, other.ID, "DUPE", nil)
		assert.True(t, errors.Is(err, shared.ErrDuplicateCode), "got %v", err)

		require.NoError(t, store.UpdateListingCode(ctx, other.ID, "TWO", strPtr("TWO.png")))
		promoted, err := store.GetListingByCode(ctx, "TWO")
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, "TWO.png", *promoted.LogoRef)
	})

	t.Run("update without bundle keeps detail and places", func(t *testing.T) {
		_, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)

		listing := &models.Listing{Code: "KEEP", CompanyName: "Keep", Status: models.StatusUpcoming, IsNew: true}
		require.NoError(t, store.CreateListing(ctx, listing, sampleBundle("r1")))

		listing.Status = models.StatusCompleted
		listing.HasResultsFlag = true
		require.NoError(t, store.UpdateListing(ctx, listing, nil))

		view, err := store.GetListingView(ctx, "KEEP")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, view.Status)
		require.NotNil(t, view.Detail)
		assert.Len(t, view.ApplicationPlaces, 2)

		bundle := sampleBundle("r2")
		bundle.Places = bundle.Places[:1]
		require.NoError(t, store.UpdateListing(ctx, listing, bundle))
		view, err = store.GetListingView(ctx, "KEEP")
		require.NoError(t, err)
		assert.Equal(t, "r2", *view.Detail.RevisionMarker)
		assert.Len(t, view.ApplicationPlaces, 1, "places are replaced, not appended")
	})

	t.Run("delete cascades", func(t *testing.T) {
		_, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)

		listing := &models.Listing{Code: "GONE", CompanyName: "Gone", Status: models.StatusUpcoming}
		require.NoError(t, store.CreateListing(ctx, listing, sampleBundle("r1")))
		require.NoError(t, store.DeleteListing(ctx, listing.ID))

		detail, err := store.GetDetail(ctx, listing.ID)
		require.NoError(t, err)
		assert.Nil(t, detail)

		err = store.UpdateListingStatus(ctx, listing.ID, models.StatusCancelled)
		assert.True(t, errors.Is(err, shared.ErrListingNotFound), "got %v", err)
	})

	t.Run("query filters and paginates", func(t *testing.T) {
		_, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)

		for _, l := range []models.Listing{
			{Code: "AAA", CompanyName: "Alfa Gida", Status: models.StatusUpcoming, IsNew: true},
			{Code: "BBB", CompanyName: "Beta Enerji", Status: models.StatusCompleted, HasResultsFlag: true},
			{Code: "CCC", CompanyName: "Gamma Enerji", Status: models.StatusCompleted, HasResultsFlag: true},
			{Code: "TEMP-delta", CompanyName: "Delta Holding", Status: models.StatusDraft, IsNew: true},
		} {
			l := l
			require.NoError(t, store.CreateListing(ctx, &l, nil))
		}

		completed := models.StatusCompleted
		items, total, err := store.QueryListings(ctx, models.ListingFilter{Status: &completed})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 2)

		items, total, err = store.QueryListings(ctx, models.ListingFilter{Search: "enerji", PageSize: 1, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 1)

		isNew := true
		_, total, err = store.QueryListings(ctx, models.ListingFilter{IsNew: &isNew, Search: "delta"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		n, err := store.DeleteAllListings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}
