package services

import "github.com/fenilmodi00/ipo-catalog/models"

// Classification is the derived status together with the effective results flag
type Classification struct {
	Status         models.ListingStatus
	HasResultsFlag bool
}

// ClassifyListing derives a listing's status from the three source flags.
// A listing that is no longer new is treated as having results.
func ClassifyListing(isDraft, isNew, hasResultsFlag bool) Classification {
	if isDraft {
		return Classification{Status: models.StatusDraft, HasResultsFlag: hasResultsFlag}
	}
	if !isNew {
		return Classification{Status: models.StatusCompleted, HasResultsFlag: true}
	}
	if hasResultsFlag {
		return Classification{Status: models.StatusCompleted, HasResultsFlag: true}
	}
	return Classification{Status: models.StatusUpcoming, HasResultsFlag: false}
}
