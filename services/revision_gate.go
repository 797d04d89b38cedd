package services

import "github.com/fenilmodi00/ipo-catalog/models"

// NeedsDetailRefresh decides whether a listing's detail, result and application places
// must be rewritten. Markers are opaque and compared for plain equality; two absent
// markers are equal. A forced refresh covers new and revived listings.
func NeedsDetailRefresh(stored *models.Detail, incomingMarker *string, force bool) bool {
	if force || stored == nil {
		return true
	}
	return !sameMarker(stored.RevisionMarker, incomingMarker)
}

func sameMarker(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
