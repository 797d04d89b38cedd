package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
)

// MemoryStore keeps the catalog in process memory. It enforces the same code
// uniqueness and cascade rules as the Postgres schema.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]models.Listing
	byCode   map[string]uuid.UUID
	details  map[uuid.UUID]models.Detail
	results  map[uuid.UUID]models.Result
	places   map[uuid.UUID][]models.ApplicationPlace
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[uuid.UUID]models.Listing),
		byCode:   make(map[string]uuid.UUID),
		details:  make(map[uuid.UUID]models.Detail),
		results:  make(map[uuid.UUID]models.Result),
		places:   make(map[uuid.UUID][]models.ApplicationPlace),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source, mainly so tests can order creation times
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) sortedListings() []models.Listing {
	out := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *MemoryStore) ListAllListings(ctx context.Context) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedListings(), nil
}

func (s *MemoryStore) ListingIDsWithDetail(ctx context.Context) (map[uuid.UUID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[uuid.UUID]bool, len(s.details))
	for id := range s.details {
		ids[id] = true
	}
	return ids, nil
}

func (s *MemoryStore) GetListingByCode(ctx context.Context, code string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	l := s.listings[id]
	return &l, nil
}

func (s *MemoryStore) GetDetail(ctx context.Context, listingID uuid.UUID) (*models.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.details[listingID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *MemoryStore) CreateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[listing.Code]; taken {
		return fmt.Errorf("failed to create listing %s: %w", listing.Code, shared.ErrDuplicateCode)
	}
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	now := s.now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	s.listings[listing.ID] = *listing
	s.byCode[listing.Code] = listing.ID
	s.writeBundle(listing.ID, bundle, now)
	return nil
}

func (s *MemoryStore) UpdateListing(ctx context.Context, listing *models.Listing, bundle *models.DetailBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[listing.ID]
	if !ok {
		return fmt.Errorf("failed to update listing %s: %w", listing.Code, shared.ErrListingNotFound)
	}
	now := s.now()
	listing.UpdatedAt = now

	stored.CompanyName = listing.CompanyName
	stored.NoticeDateText = listing.NoticeDateText
	stored.SourceURL = listing.SourceURL
	stored.LogoRef = listing.LogoRef
	stored.IsNew = listing.IsNew
	stored.HasResultsFlag = listing.HasResultsFlag
	stored.Status = listing.Status
	stored.UpdatedAt = now
	s.listings[listing.ID] = stored

	s.writeBundle(listing.ID, bundle, now)
	return nil
}

func (s *MemoryStore) writeBundle(id uuid.UUID, bundle *models.DetailBundle, now time.Time) {
	if bundle == nil {
		return
	}

	detail := bundle.Detail
	detail.ListingID = id
	detail.UpdatedAt = now
	s.details[id] = detail

	if bundle.Result != nil {
		result := *bundle.Result
		result.ListingID = id
		result.UpdatedAt = now
		s.results[id] = result
	}

	places := make([]models.ApplicationPlace, len(bundle.Places))
	for i, p := range bundle.Places {
		p.ListingID = id
		places[i] = p
	}
	s.places[id] = places
}

func (s *MemoryStore) UpdateListingCode(ctx context.Context, listingID uuid.UUID, code string, logoRef *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("failed to update listing code to %s: %w", code, shared.ErrListingNotFound)
	}
	if owner, taken := s.byCode[code]; taken && owner != listingID {
		return fmt.Errorf("failed to update listing code to %s: %w", code, shared.ErrDuplicateCode)
	}

	delete(s.byCode, stored.Code)
	stored.Code = code
	stored.LogoRef = logoRef
	stored.UpdatedAt = s.now()
	s.listings[listingID] = stored
	s.byCode[code] = listingID
	return nil
}

func (s *MemoryStore) UpdateListingStatus(ctx context.Context, listingID uuid.UUID, status models.ListingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("failed to update listing status: %w", shared.ErrListingNotFound)
	}
	stored.Status = status
	stored.UpdatedAt = s.now()
	s.listings[listingID] = stored
	return nil
}

func (s *MemoryStore) DeleteListing(ctx context.Context, listingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("failed to delete listing: %w", shared.ErrListingNotFound)
	}
	s.deleteLocked(stored)
	return nil
}

func (s *MemoryStore) deleteLocked(l models.Listing) {
	delete(s.listings, l.ID)
	delete(s.byCode, l.Code)
	delete(s.details, l.ID)
	delete(s.results, l.ID)
	delete(s.places, l.ID)
}

func (s *MemoryStore) DeleteAllListings(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.listings)
	for _, l := range s.listings {
		s.deleteLocked(l)
	}
	return n, nil
}

func (s *MemoryStore) QueryListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	all := s.sortedListings()
	s.mu.RUnlock()

	var matched []models.Listing
	for i := len(all) - 1; i >= 0; i-- {
		l := all[i]
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		if filter.IsNew != nil && l.IsNew != *filter.IsNew {
			continue
		}
		if filter.HasResultsFlag != nil && l.HasResultsFlag != *filter.HasResultsFlag {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(l.CompanyName), search) &&
			!strings.Contains(strings.ToLower(l.Code), search) {
			continue
		}
		matched = append(matched, l)
	}

	total := len(matched)
	start := filter.Offset()
	if start < 0 || start >= total {
		return []models.Listing{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) GetListingView(ctx context.Context, code string) (*models.ListingView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		for storedCode, storedID := range s.byCode {
			if strings.EqualFold(storedCode, code) {
				id, ok = storedID, true
				break
			}
		}
	}
	if !ok {
		return nil, nil
	}

	view := &models.ListingView{Listing: s.listings[id]}
	if d, ok := s.details[id]; ok {
		view.Detail = &d
	}
	if r, ok := s.results[id]; ok {
		view.Result = &r
	}
	view.ApplicationPlaces = append([]models.ApplicationPlace{}, s.places[id]...)
	return view, nil
}
