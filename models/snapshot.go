package models

// ListingEntry is one row of the listings snapshot as reported by the source
type ListingEntry struct {
	Code           string  `json:"code"`
	CompanyName    string  `json:"company_name"`
	NoticeDateText string  `json:"notice_date_text"`
	SourceURL      string  `json:"source_url"`
	LogoURL        *string `json:"logo_url,omitempty"`
	IsNew          bool    `json:"is_new"`
	HasResultsFlag bool    `json:"has_results_flag"`
	IsDraft        bool    `json:"is_draft"`
}

// RawApplicationPlace is an application venue as listed on a detail page
type RawApplicationPlace struct {
	Name               string `json:"name"`
	IsConsortiumMember bool   `json:"is_consortium_member"`
	IsUnlistedVenue    bool   `json:"is_unlisted_venue"`
}

// DetailSnapshot is what the source returns for one detail page
type DetailSnapshot struct {
	// Genuine code when the detail page publishes one
	Code           *string `json:"code,omitempty"`
	RevisionMarker *string `json:"revision_marker,omitempty"`
	DetailFields

	// HTML markup of the allotment results table, parsed downstream
	ResultsRawTable      *string               `json:"results_raw_table,omitempty"`
	ApplicationPlacesRaw []RawApplicationPlace `json:"application_places_raw,omitempty"`
}
