package services

import (
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type PlanAction string

const (
	ActionCreate PlanAction = "CREATE"
	ActionUpdate PlanAction = "UPDATE"
	ActionCancel PlanAction = "CANCEL"
)

// PlannedAction is one decision of a pass. Entry is zero for cancels and
// Listing is nil for creates.
type PlannedAction struct {
	Action  PlanAction
	Entry   models.ListingEntry
	Listing *models.Listing
	// Revived marks an update of a CANCELLED listing that reappeared in the snapshot
	Revived bool
}

// ReconciliationPlan is the full set of decisions computed before any write
type ReconciliationPlan struct {
	Creates []PlannedAction
	Updates []PlannedAction
	Cancels []PlannedAction
	// Entries ignored because an earlier entry of the same pass claimed the same listing or key
	Skipped []models.ListingEntry
}

// Upserts returns creates followed by updates
func (p *ReconciliationPlan) Upserts() []PlannedAction {
	out := make([]PlannedAction, 0, len(p.Creates)+len(p.Updates))
	out = append(out, p.Creates...)
	return append(out, p.Updates...)
}

// listingMatcher resolves snapshot entries to stored listings by code, then by source URL
type listingMatcher struct {
	byCode map[string]*models.Listing
	byURL  map[string]*models.Listing
}

func newListingMatcher(existing []models.Listing) *listingMatcher {
	m := &listingMatcher{
		byCode: make(map[string]*models.Listing, len(existing)),
		byURL:  make(map[string]*models.Listing, len(existing)),
	}
	for i := range existing {
		l := &existing[i]
		if _, ok := m.byCode[codeKey(l.Code)]; !ok {
			m.byCode[codeKey(l.Code)] = l
		}
		if l.SourceURL != "" {
			if _, ok := m.byURL[l.SourceURL]; !ok {
				m.byURL[l.SourceURL] = l
			}
		}
	}
	return m
}

func (m *listingMatcher) match(entry models.ListingEntry) *models.Listing {
	if l, ok := m.byCode[codeKey(entry.Code)]; ok {
		return l
	}
	if entry.SourceURL != "" {
		if l, ok := m.byURL[entry.SourceURL]; ok {
			return l
		}
	}
	return nil
}

// PlanReconciliation diffs the indexed snapshot against the complete stored state.
// Only the first activeWindow active entries (all of them when activeWindow <= 0) and every
// draft entry produce creates or updates; absence is always judged against the whole snapshot.
func PlanReconciliation(idx *SnapshotIndex, existing []models.Listing, activeWindow int) *ReconciliationPlan {
	logger := logrus.WithField("component", "ReconciliationPlanner")
	plan := &ReconciliationPlan{}
	matcher := newListingMatcher(existing)

	claimed := make(map[uuid.UUID]bool)
	createCodes := make(map[string]bool)
	createURLs := make(map[string]bool)

	for _, entry := range idx.RefreshCandidates(activeWindow) {
		if listing := matcher.match(entry); listing != nil {
			if claimed[listing.ID] {
				logger.WithFields(logrus.Fields{
					"code":       entry.Code,
					"source_url": entry.SourceURL,
					"listing_id": listing.ID,
				}).Warn("Snapshot entry matches a listing already claimed this pass, skipping")
				plan.Skipped = append(plan.Skipped, entry)
				continue
			}
			claimed[listing.ID] = true
			copied := *listing
			plan.Updates = append(plan.Updates, PlannedAction{
				Action:  ActionUpdate,
				Entry:   entry,
				Listing: &copied,
				Revived: listing.Status == models.StatusCancelled,
			})
			continue
		}

		key := codeKey(entry.Code)
		if createCodes[key] || (entry.SourceURL != "" && createURLs[entry.SourceURL]) {
			logger.WithFields(logrus.Fields{
				"code":       entry.Code,
				"source_url": entry.SourceURL,
			}).Warn("Snapshot entry repeats a planned create, skipping")
			plan.Skipped = append(plan.Skipped, entry)
			continue
		}
		createCodes[key] = true
		if entry.SourceURL != "" {
			createURLs[entry.SourceURL] = true
		}
		plan.Creates = append(plan.Creates, PlannedAction{Action: ActionCreate, Entry: entry})
	}

	for i := range existing {
		listing := existing[i]
		if claimed[listing.ID] {
			continue
		}

		cancel := false
		switch listing.Status {
		case models.StatusCancelled:
		case models.StatusDraft:
			// A draft present only on the non-draft side graduates through its active-side update
			cancel = !idx.InDraftSide(listing) && !idx.InActiveSide(listing)
		default:
			cancel = !idx.InSnapshot(listing)
		}

		if cancel {
			plan.Cancels = append(plan.Cancels, PlannedAction{Action: ActionCancel, Listing: &listing})
		}
	}

	logger.WithFields(logrus.Fields{
		"snapshot_entries": idx.Size(),
		"stored_listings":  len(existing),
		"creates":          len(plan.Creates),
		"updates":          len(plan.Updates),
		"cancels":          len(plan.Cancels),
		"skipped":          len(plan.Skipped),
	}).Info("Reconciliation plan computed")

	return plan
}
