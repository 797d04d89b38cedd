package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
)

type PromotionOutcome int

const (
	PromotionSkipped PromotionOutcome = iota
	PromotionApplied
	PromotionConflict
)

// keyedMutex hands out one mutex per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// IdentifierPromoter upgrades placeholder codes to the genuine code once the source publishes one
type IdentifierPromoter struct {
	store  ListingStore
	assets AssetStore
	locks  *keyedMutex
	logger *logrus.Entry
}

// NewIdentifierPromoter creates a promoter. assets may be nil when no asset cache is configured.
func NewIdentifierPromoter(store ListingStore, assets AssetStore) *IdentifierPromoter {
	return &IdentifierPromoter{
		store:  store,
		assets: assets,
		locks:  newKeyedMutex(),
		logger: logrus.WithField("component", "IdentifierPromoter"),
	}
}

// Promote moves listing from its placeholder code to genuineCode. On success the listing's
// Code and LogoRef are updated in place. A code already held by another listing is a
// conflict: the placeholder stays and nothing is written.
func (p *IdentifierPromoter) Promote(ctx context.Context, listing *models.Listing, genuineCode string) (PromotionOutcome, error) {
	if !IsPlaceholderCode(listing.Code) || !IsGenuineCode(genuineCode) || listing.Code == genuineCode {
		return PromotionSkipped, nil
	}

	unlock := p.locks.Lock(genuineCode)
	defer unlock()

	logger := p.logger.WithFields(logrus.Fields{
		"listing_id":       listing.ID,
		"placeholder_code": listing.Code,
		"genuine_code":     genuineCode,
	})

	holder, err := p.store.GetListingByCode(ctx, genuineCode)
	if err != nil {
		return PromotionSkipped, fmt.Errorf("failed to check code %s: %w", genuineCode, err)
	}
	if holder != nil && holder.ID != listing.ID {
		logger.WithField("holder_id", holder.ID).Warn("Genuine code already taken, keeping placeholder")
		return PromotionConflict, nil
	}

	logoRef := listing.LogoRef
	renamedFrom, renamedTo := "", ""
	if oldName, newName, ok := p.placeholderAsset(listing, genuineCode); ok {
		if err := p.assets.Rename(oldName, newName); err != nil {
			logger.WithError(err).Warn("Failed to rename cached asset, keeping old reference")
		} else {
			renamedFrom, renamedTo = oldName, newName
			logoRef = &newName
		}
	}

	err = p.store.UpdateListingCode(ctx, listing.ID, genuineCode, logoRef)
	if err != nil {
		if renamedTo != "" {
			if rbErr := p.assets.Rename(renamedTo, renamedFrom); rbErr != nil {
				logger.WithError(rbErr).Error("Failed to roll back asset rename")
			}
		}
		if errors.Is(err, shared.ErrDuplicateCode) {
			logger.Warn("Genuine code taken concurrently, keeping placeholder")
			return PromotionConflict, nil
		}
		return PromotionSkipped, err
	}

	logger.Info("Promoted placeholder code")
	listing.Code = genuineCode
	listing.LogoRef = logoRef
	return PromotionApplied, nil
}

// placeholderAsset returns the cached asset stored under the placeholder-derived name
// and the name it should move to
func (p *IdentifierPromoter) placeholderAsset(listing *models.Listing, genuineCode string) (string, string, bool) {
	if p.assets == nil || listing.LogoRef == nil {
		return "", "", false
	}
	ext := filepath.Ext(*listing.LogoRef)
	oldName := AssetName(listing.Code, ext)
	if *listing.LogoRef != oldName || !p.assets.Exists(oldName) {
		return "", "", false
	}
	return oldName, AssetName(genuineCode, ext), true
}
