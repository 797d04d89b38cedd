package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
)

// ListingQueryService serves the read side of the catalog through a TTL cache
type ListingQueryService struct {
	store  ListingStore
	cache  *CacheService
	logger *logrus.Entry
}

// NewListingQueryService creates a query service. cache may be nil to disable caching.
func NewListingQueryService(store ListingStore, cache *CacheService) *ListingQueryService {
	return &ListingQueryService{
		store:  store,
		cache:  cache,
		logger: logrus.WithField("component", "ListingQueryService"),
	}
}

func listCacheKey(filter models.ListingFilter) string {
	status, isNew, hasResults := "*", "*", "*"
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.IsNew != nil {
		isNew = fmt.Sprint(*filter.IsNew)
	}
	if filter.HasResultsFlag != nil {
		hasResults = fmt.Sprint(*filter.HasResultsFlag)
	}
	return fmt.Sprintf("listings:%s:%s:%s:%s:%d:%d", status, isNew, hasResults,
		strings.ToLower(strings.TrimSpace(filter.Search)), filter.Page, filter.PageSize)
}

// ListListings returns one page of listings matching the filter
func (s *ListingQueryService) ListListings(ctx context.Context, filter models.ListingFilter) (*models.ListingPage, error) {
	filter.Normalize()
	key := listCacheKey(filter)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if page, ok := cached.(*models.ListingPage); ok {
				return page, nil
			}
		}
	}

	items, total, err := s.store.QueryListings(ctx, filter)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "QUERY_LISTINGS_FAILED", "ListingQueryService", "ListListings", true)
	}
	if items == nil {
		items = []models.Listing{}
	}

	page := &models.ListingPage{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}
	if s.cache != nil {
		s.cache.Set(key, page)
	}
	return page, nil
}

// GetListingByCode returns the listing joined with its detail, result and application places.
// The code match is case-insensitive. Returns shared.ErrListingNotFound when nothing matches.
func (s *ListingQueryService) GetListingByCode(ctx context.Context, code string) (*models.ListingView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.ErrListingNotFound
	}
	key := "listing:" + strings.ToLower(code)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if view, ok := cached.(*models.ListingView); ok {
				return view, nil
			}
		}
	}

	view, err := s.store.GetListingView(ctx, code)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "GET_LISTING_FAILED", "ListingQueryService", "GetListingByCode", true)
	}
	if view == nil {
		return nil, shared.ErrListingNotFound
	}

	if s.cache != nil {
		s.cache.Set(key, view)
	}
	return view, nil
}

// InvalidateCache drops every cached query result, called after each sync pass
func (s *ListingQueryService) InvalidateCache() {
	if s.cache == nil {
		return
	}
	size := s.cache.Size()
	s.cache.Clear()
	s.logger.WithField("entries", size).Debug("Invalidated query cache")
}
