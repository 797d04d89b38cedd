package services

import (
	"context"
	"fmt"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DuplicateConsolidator removes listings that share a normalized company name,
// keeping one survivor per group
type DuplicateConsolidator struct {
	store  ListingStore
	logger *logrus.Entry
}

func NewDuplicateConsolidator(store ListingStore) *DuplicateConsolidator {
	return &DuplicateConsolidator{
		store:  store,
		logger: logrus.WithField("component", "DuplicateConsolidator"),
	}
}

// SelectSurvivor prefers a listing with a stored detail, then the most recently created,
// then the greatest row id
func SelectSurvivor(group []models.Listing, withDetail map[uuid.UUID]bool) models.Listing {
	survivor := group[0]
	for _, candidate := range group[1:] {
		if betterSurvivor(candidate, survivor, withDetail) {
			survivor = candidate
		}
	}
	return survivor
}

func betterSurvivor(a, b models.Listing, withDetail map[uuid.UUID]bool) bool {
	if withDetail[a.ID] != withDetail[b.ID] {
		return withDetail[a.ID]
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// Consolidate deletes duplicates and returns how many listings were removed
func (c *DuplicateConsolidator) Consolidate(ctx context.Context) (int, error) {
	listings, err := c.store.ListAllListings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load listings for consolidation: %w", err)
	}
	withDetail, err := c.store.ListingIDsWithDetail(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load detail ids for consolidation: %w", err)
	}

	groups := make(map[string][]models.Listing)
	var order []string
	for _, l := range listings {
		key := NormalizeCompanyName(l.CompanyName)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], l)
	}

	removed := 0
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		survivor := SelectSurvivor(group, withDetail)
		for _, l := range group {
			if l.ID == survivor.ID {
				continue
			}
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if err := c.store.DeleteListing(ctx, l.ID); err != nil {
				return removed, fmt.Errorf("failed to delete duplicate %s: %w", l.Code, err)
			}
			removed++
			c.logger.WithFields(logrus.Fields{
				"company_name":        l.CompanyName,
				"removed_code":        l.Code,
				"removed_id":          l.ID,
				"survivor_code":       survivor.Code,
				"survivor_id":         survivor.ID,
				"survivor_has_detail": withDetail[survivor.ID],
			}).Info("Removed duplicate listing")
		}
	}

	return removed, nil
}
