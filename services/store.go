package services

import (
	"context"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/google/uuid"
)

// ListingStore is the persistence surface the sync engine and the query service rely on.
// Every write is its own atomic unit; no transaction spans a pass.
type ListingStore interface {
	ListAllListings(ctx context.Context) ([]models.Listing, error)
	ListingIDsWithDetail(ctx context.Context) (map[uuid.UUID]bool, error)

	// GetListingByCode matches the code exactly and returns nil when no row holds it
	GetListingByCode(ctx context.Context, code string) (*models.Listing, error)
	// GetDetail returns nil when the listing has no stored detail
	GetDetail(ctx context.Context, listingID uuid.UUID) (*models.Detail, error)

	// CreateListing inserts the listing and, when bundle is not nil, its detail rows.
	// Returns shared.ErrDuplicateCode when the code is taken.
	CreateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error
	// UpdateListing rewrites every listing column except the code. A nil bundle leaves
	// detail, result and application places untouched.
	UpdateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error
	UpdateListingCode(ctx context.Context, listingID uuid.UUID, code string, logoRef *string) error
	UpdateListingStatus(ctx context.Context, listingID uuid.UUID, status models.ListingStatus) error

	DeleteListing(ctx context.Context, listingID uuid.UUID) error
	DeleteAllListings(ctx context.Context) (int, error)

	QueryListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error)
	// GetListingView matches the code case-insensitively, preferring an exact match
	GetListingView(ctx context.Context, code string) (*models.ListingView, error)
}
