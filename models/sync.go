package models

import "time"

// SyncMode distinguishes a cold-start rebuild from steady-state reconciliation
type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// SyncSummary is the outcome of one pass
type SyncSummary struct {
	Mode              SyncMode `json:"mode"`
	Created           int      `json:"created"`
	Updated           int      `json:"updated"`
	Cancelled         int      `json:"cancelled"`
	DuplicatesRemoved int      `json:"duplicates_removed"`

	Unchanged int `json:"unchanged"`
	Promoted  int `json:"promoted"`
	Failed    int `json:"failed"`
	Purged    int `json:"purged,omitempty"`

	// Placeholder codes that could not be promoted because the genuine code was taken
	PromotionConflicts []string `json:"promotion_conflicts,omitempty"`
	ErrorSummary       string   `json:"error_summary,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// ListingFilter drives the paginated listing query
type ListingFilter struct {
	Status         *ListingStatus
	IsNew          *bool
	HasResultsFlag *bool
	Search         string
	Page           int
	PageSize       int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps Offset far from integer overflow
	MaxPage = 100000
)

// Normalize clamps pagination to sane bounds
func (f *ListingFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// Offset returns the row offset of the current page
func (f ListingFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type ListingPage struct {
	Items    []Listing `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
