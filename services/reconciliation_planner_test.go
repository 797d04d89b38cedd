package services

import (
	"sort"
	"testing"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func stored(code, name, url string, status models.ListingStatus) models.Listing {
	return models.Listing{ID: uuid.New(), Code: code, CompanyName: name, SourceURL: url, Status: status}
}

// planOutline reduces a plan to sorted code lists per action
type planOutline struct {
	Creates []string
	Updates []string
	Revived []string
	Cancels []string
	Skipped []string
}

func outline(plan *ReconciliationPlan) planOutline {
	var o planOutline
	for _, a := range plan.Creates {
		o.Creates = append(o.Creates, a.Entry.Code)
	}
	for _, a := range plan.Updates {
		o.Updates = append(o.Updates, a.Listing.Code)
		if a.Revived {
			o.Revived = append(o.Revived, a.Listing.Code)
		}
	}
	for _, a := range plan.Cancels {
		o.Cancels = append(o.Cancels, a.Listing.Code)
	}
	for _, e := range plan.Skipped {
		o.Skipped = append(o.Skipped, e.Code)
	}
	for _, s := range [][]string{o.Creates, o.Updates, o.Revived, o.Cancels, o.Skipped} {
		sort.Strings(s)
	}
	return o
}

func TestPlanReconciliation(t *testing.T) {
	tests := []struct {
		name     string
		entries  []models.ListingEntry
		existing []models.Listing
		window   int
		want     planOutline
	}{
		{
			name:    "unmatched entries are created",
			entries: []models.ListingEntry{activeEntry(1), activeEntry(2)},
			window:  50,
			want:    planOutline{Creates: []string{"C001", "C002"}},
		},
		{
			name:    "code match is case-insensitive",
			entries: []models.ListingEntry{{Code: "abcd", CompanyName: "Abcd", SourceURL: "https://source.test/new-url", IsNew: true}},
			existing: []models.Listing{
				stored("ABCD", "Abcd", "https://source.test/old-url", models.StatusUpcoming),
			},
			window: 50,
			want:   planOutline{Updates: []string{"ABCD"}},
		},
		{
			name:    "placeholder listing matched by source url",
			entries: []models.ListingEntry{{Code: "REAL", CompanyName: "Yeni", SourceURL: "https://source.test/yeni", IsNew: true}},
			existing: []models.Listing{
				stored("TEMP-yeni", "Yeni", "https://source.test/yeni", models.StatusUpcoming),
			},
			window: 50,
			want:   planOutline{Updates: []string{"TEMP-yeni"}},
		},
		{
			name:    "listing absent from the full snapshot is cancelled",
			entries: []models.ListingEntry{activeEntry(1)},
			existing: []models.Listing{
				stored("C001", "Company 001", activeEntry(1).SourceURL, models.StatusUpcoming),
				stored("GONE", "Gone", "https://source.test/gone", models.StatusCompleted),
				stored("OLD", "Old", "https://source.test/old", models.StatusCancelled),
			},
			window: 50,
			want:   planOutline{Updates: []string{"C001"}, Cancels: []string{"GONE"}},
		},
		{
			name:    "draft absent from both sides is cancelled, graduated draft is updated",
			entries: []models.ListingEntry{draftEntry(1), {Code: "GRAD", CompanyName: "Grad", SourceURL: "https://source.test/grad", IsNew: true}},
			existing: []models.Listing{
				stored(PlaceholderCode("Draft Company 001"), "Draft Company 001", draftEntry(1).SourceURL, models.StatusDraft),
				stored("TEMP-grad", "Grad", "https://source.test/grad", models.StatusDraft),
				stored("TEMP-vanished", "Vanished", "https://source.test/draft/vanished", models.StatusDraft),
			},
			window: 50,
			want: planOutline{
				Updates: []string{"TEMP-draft-company-001", "TEMP-grad"},
				Cancels: []string{"TEMP-vanished"},
			},
		},
		{
			name:    "cancelled listing that reappears is revived",
			entries: []models.ListingEntry{activeEntry(7)},
			existing: []models.Listing{
				stored("C007", "Company 007", activeEntry(7).SourceURL, models.StatusCancelled),
			},
			window: 50,
			want:   planOutline{Updates: []string{"C007"}, Revived: []string{"C007"}},
		},
		{
			name: "second entry claiming the same listing is skipped",
			entries: []models.ListingEntry{
				{Code: "DUP", CompanyName: "Dup", SourceURL: "https://source.test/a", IsNew: true},
				{Code: "OTHER", CompanyName: "Dup", SourceURL: "https://source.test/dup", IsNew: true},
			},
			existing: []models.Listing{
				stored("DUP", "Dup", "https://source.test/dup", models.StatusUpcoming),
			},
			window: 50,
			want:   planOutline{Updates: []string{"DUP"}, Skipped: []string{"OTHER"}},
		},
		{
			name: "repeated create key is skipped",
			entries: []models.ListingEntry{
				{Code: "NEW", CompanyName: "New", SourceURL: "https://source.test/new", IsNew: true},
				{Code: "new", CompanyName: "New", SourceURL: "https://source.test/new-2", IsNew: true},
			},
			window: 50,
			want:   planOutline{Creates: []string{"NEW"}, Skipped: []string{"new"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanReconciliation(BuildSnapshotIndex(tt.entries), tt.existing, tt.window)
			if diff := cmp.Diff(tt.want, outline(plan)); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanReconciliationTopWindow(t *testing.T) {
	var entries []models.ListingEntry
	var existing []models.Listing
	for i := 1; i <= 80; i++ {
		e := activeEntry(i)
		entries = append(entries, e)
		if i > 50 {
			existing = append(existing, stored(e.Code, e.CompanyName, e.SourceURL, models.StatusUpcoming))
		}
	}

	plan := PlanReconciliation(BuildSnapshotIndex(entries), existing, 50)

	assert.Len(t, plan.Creates, 50)
	assert.Empty(t, plan.Updates, "entries beyond the window are not refreshed")
	assert.Empty(t, plan.Cancels, "entries beyond the window are still in the snapshot")
	for _, a := range plan.Creates {
		assert.LessOrEqual(t, a.Entry.Code, "C050")
	}
}

func TestPlanReconciliationNeverCancelsListedEntries(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a stored listing present anywhere in the snapshot is never cancelled", prop.ForAll(
		func(total, window, storedCount int) bool {
			var entries []models.ListingEntry
			var existing []models.Listing
			for i := 1; i <= total; i++ {
				e := activeEntry(i)
				entries = append(entries, e)
				if i <= storedCount {
					existing = append(existing, stored(e.Code, e.CompanyName, e.SourceURL, models.StatusCompleted))
				}
			}
			plan := PlanReconciliation(BuildSnapshotIndex(entries), existing, window)

			if len(plan.Cancels) != 0 {
				return false
			}
			refreshed := total
			if window < total {
				refreshed = window
			}
			return len(plan.Creates)+len(plan.Updates) == refreshed
		},
		gen.IntRange(1, 120), gen.IntRange(1, 60), gen.IntRange(0, 120),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSnapshotIndexAssignsPlaceholders(t *testing.T) {
	idx := BuildSnapshotIndex([]models.ListingEntry{
		{CompanyName: "Kodsuz Sirket", SourceURL: "https://source.test/kodsuz", IsNew: true},
		{SourceURL: "https://source.test/empty"},
		draftEntry(3),
		{Code: "BOTH", CompanyName: "Both", SourceURL: "https://source.test/both-draft", IsDraft: true},
		{Code: "BOTH", CompanyName: "Both", SourceURL: "https://source.test/both", IsNew: true},
	})

	assert.Equal(t, 3, idx.Size(), "entries with neither code nor name are dropped")
	assert.Len(t, idx.ActiveEntries, 2)
	assert.Len(t, idx.DraftEntries, 1, "a draft also listed as active is superseded")
	assert.Equal(t, "TEMP-kodsuz-sirket", idx.ActiveEntries[0].Code)
	assert.True(t, idx.InActiveSide(models.Listing{Code: "temp-KODSUZ-sirket"}))
	assert.True(t, idx.InDraftSide(models.Listing{Code: "x", SourceURL: "https://source.test/both-draft"}))
	assert.False(t, idx.InSnapshot(models.Listing{Code: "nope", SourceURL: ""}))
}
