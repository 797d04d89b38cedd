package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus is the lifecycle state of a listing in the local catalog
type ListingStatus string

const (
	StatusUpcoming  ListingStatus = "UPCOMING"
	StatusCompleted ListingStatus = "COMPLETED"
	StatusDraft     ListingStatus = "DRAFT"
	StatusCancelled ListingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusDraft, StatusCancelled:
		return true
	}
	return false
}

type Listing struct {
	// Row identity. Stays stable when the public code is promoted.
	ID uuid.UUID `json:"id"`

	// Public identifier, possibly a TEMP-<slug> placeholder
	Code           string  `json:"code"`
	CompanyName    string  `json:"company_name"`
	NoticeDateText string  `json:"notice_date_text"`
	SourceURL      string  `json:"source_url"`
	LogoRef        *string `json:"logo_ref"`

	IsNew          bool          `json:"is_new"`
	HasResultsFlag bool          `json:"has_results_flag"`
	Status         ListingStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryBlock is one titled block of the structured summary on a detail page
type SummaryBlock struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type Attachment struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DetailFields holds the free-text attributes extracted from a detail page.
// Every field is optional because the source labels them inconsistently.
type DetailFields struct {
	Price               *string `json:"price"`
	DistributionMethod  *string `json:"distribution_method"`
	ShareAmount         *string `json:"share_amount"`
	FreeFloatAmount     *string `json:"free_float_amount"`
	FreeFloatPercentage *string `json:"free_float_percentage"`
	Intermediary        *string `json:"intermediary"`
	ConsortiumMembers   *string `json:"consortium_members"`
	FirstTradeDate      *string `json:"first_trade_date"`
	MarketSegment       *string `json:"market_segment"`

	SummaryBlocks []SummaryBlock `json:"summary_blocks"`

	CompanyDescription *string `json:"company_description"`
	CompanyCity        *string `json:"company_city"`
	CompanyFoundedDate *string `json:"company_founded_date"`

	Attachments []Attachment `json:"attachments"`
}

type Detail struct {
	ListingID uuid.UUID `json:"listing_id"`
	DetailFields
	RevisionMarker *string   `json:"revision_marker"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ResultSummaryRow struct {
	Segment        string `json:"segment"`
	ApplicantCount *int64 `json:"applicant_count"`
	AllottedUnits  *int64 `json:"allotted_units"`
	AllotmentRatio string `json:"allotment_ratio"`
}

type Result struct {
	ListingID uuid.UUID          `json:"listing_id"`
	Summary   []ResultSummaryRow `json:"summary"`
	Notes     []string           `json:"notes"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type ApplicationPlace struct {
	ListingID          uuid.UUID `json:"listing_id"`
	Name               string    `json:"name"`
	IsConsortiumMember bool      `json:"is_consortium_member"`
	IsUnlistedVenue    bool      `json:"is_unlisted_venue"`
}

// ListingView is a listing joined with everything hanging off it
type ListingView struct {
	Listing
	Detail            *Detail            `json:"detail"`
	Result            *Result            `json:"result"`
	ApplicationPlaces []ApplicationPlace `json:"application_places"`
}

// DetailBundle is the set of rows written together by a full detail refresh
type DetailBundle struct {
	Detail Detail
	Result *Result
	Places []ApplicationPlace
}
