package services

import (
	"strings"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/sirupsen/logrus"
)

// SnapshotIndex holds lookup sets built from one complete listings snapshot
type SnapshotIndex struct {
	// Every draft entry, processed each pass
	DraftEntries []models.ListingEntry
	// Non-draft entries in source order; only a leading window is refreshed per pass
	ActiveEntries []models.ListingEntry

	draftCodes  map[string]struct{}
	draftURLs   map[string]struct{}
	activeCodes map[string]struct{}
	activeURLs  map[string]struct{}
}

func codeKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// BuildSnapshotIndex partitions the snapshot and builds its lookup sets. Entries without
// a code receive the placeholder derived from the company name; entries with neither are
// dropped. A draft entry also present on the non-draft side is superseded by it.
func BuildSnapshotIndex(entries []models.ListingEntry) *SnapshotIndex {
	idx := &SnapshotIndex{
		draftCodes:  make(map[string]struct{}),
		draftURLs:   make(map[string]struct{}),
		activeCodes: make(map[string]struct{}),
		activeURLs:  make(map[string]struct{}),
	}

	var drafts []models.ListingEntry
	for _, entry := range entries {
		entry.Code = strings.TrimSpace(entry.Code)
		entry.CompanyName = NormalizeTextContent(entry.CompanyName)
		if entry.Code == "" {
			if entry.CompanyName == "" {
				logrus.WithFields(logrus.Fields{
					"component":  "SnapshotIndex",
					"source_url": entry.SourceURL,
				}).Warn("Dropping snapshot entry with neither code nor company name")
				continue
			}
			entry.Code = PlaceholderCodeFor(entry.CompanyName, entry.SourceURL)
		}

		if entry.IsDraft {
			drafts = append(drafts, entry)
			addKeys(idx.draftCodes, idx.draftURLs, entry)
		} else {
			idx.ActiveEntries = append(idx.ActiveEntries, entry)
			addKeys(idx.activeCodes, idx.activeURLs, entry)
		}
	}

	for _, entry := range drafts {
		if containsEntry(idx.activeCodes, idx.activeURLs, entry.Code, entry.SourceURL) {
			continue
		}
		idx.DraftEntries = append(idx.DraftEntries, entry)
	}

	return idx
}

func addKeys(codes, urls map[string]struct{}, entry models.ListingEntry) {
	codes[codeKey(entry.Code)] = struct{}{}
	if entry.SourceURL != "" {
		urls[entry.SourceURL] = struct{}{}
	}
}

func containsEntry(codes, urls map[string]struct{}, code, sourceURL string) bool {
	if _, ok := codes[codeKey(code)]; ok {
		return true
	}
	if sourceURL != "" {
		if _, ok := urls[sourceURL]; ok {
			return true
		}
	}
	return false
}

// RefreshCandidates returns the first window active entries followed by every draft entry.
// A window of zero or less means no cap.
func (idx *SnapshotIndex) RefreshCandidates(window int) []models.ListingEntry {
	active := idx.ActiveEntries
	if window > 0 && len(active) > window {
		active = active[:window]
	}
	candidates := make([]models.ListingEntry, 0, len(idx.DraftEntries)+len(active))
	candidates = append(candidates, active...)
	candidates = append(candidates, idx.DraftEntries...)
	return candidates
}

// InDraftSide reports whether the listing's code or source URL is on the draft side
func (idx *SnapshotIndex) InDraftSide(listing models.Listing) bool {
	return containsEntry(idx.draftCodes, idx.draftURLs, listing.Code, listing.SourceURL)
}

// InActiveSide reports whether the listing's code or source URL is on the non-draft side
func (idx *SnapshotIndex) InActiveSide(listing models.Listing) bool {
	return containsEntry(idx.activeCodes, idx.activeURLs, listing.Code, listing.SourceURL)
}

// InSnapshot reports whether the listing appears anywhere in the complete snapshot
func (idx *SnapshotIndex) InSnapshot(listing models.Listing) bool {
	return idx.InDraftSide(listing) || idx.InActiveSide(listing)
}

// Size is the number of indexed entries
func (idx *SnapshotIndex) Size() int {
	return len(idx.ActiveEntries) + len(idx.DraftEntries)
}
