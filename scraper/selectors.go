package scraper

// Selectors locate listing and detail fields in the source markup
type Selectors struct {
	// ListingList is the container every listings page renders, even when it holds no items
	ListingList  string
	ListingItem  string
	ListingName  string
	ListingCode  string
	ListingDate  string
	ListingLogo  string
	NewBadge     string
	ResultsBadge string
	NextPage     string

	DetailCode        string
	DetailRows        string
	SummaryBlock      string
	SummaryTitle      string
	SummaryItem       string
	CompanyInfo       string
	Attachments       string
	ResultsContainer  string
	ApplicationPlaces string
	RevisionMeta      []string
}

// DefaultSelectors matches the current halka arz site layout
func DefaultSelectors() Selectors {
	return Selectors{
		ListingList:  "ul.halka-arz-list",
		ListingItem:  "article.index-list",
		ListingName:  ".il-halka-arz-sirket a, h3 a",
		ListingCode:  ".il-bist-kod",
		ListingDate:  ".il-halka-arz-tarihi",
		ListingLogo:  "img",
		NewBadge:     ".il-new, .badge-new",
		ResultsBadge: ".il-tamamlandi, .badge-results",
		NextPage:     "a.next, a[rel='next']",

		DetailCode:        ".sp-bist-kod, [data-bist-kod]",
		DetailRows:        "table.sp-table tr",
		SummaryBlock:      ".sp-ozet .ozet-block",
		SummaryTitle:      "h3, h4, h5",
		SummaryItem:       "li",
		CompanyInfo:       ".sp-sirket-hakkinda p",
		Attachments:       ".sp-ekler a[href]",
		ResultsContainer:  ".sp-sonuclar",
		ApplicationPlaces: ".sp-basvuru-yerleri li",
		RevisionMeta: []string{
			"meta[property='article:modified_time']",
			"meta[itemprop='dateModified']",
		},
	}
}

// detailLabel names the detail field a table row feeds
type detailLabel int

const (
	labelUnknown detailLabel = iota
	labelCode
	labelPrice
	labelDistributionMethod
	labelShareAmount
	labelFreeFloatAmount
	labelFreeFloatPercentage
	labelIntermediary
	labelConsortiumMembers
	labelFirstTradeDate
	labelMarketSegment
	labelCompanyCity
	labelCompanyFounded
)

// labelAliases maps slugged row labels to fields. The source relabels rows often, so
// several spellings point at the same field.
var labelAliases = map[string]detailLabel{
	"bist-kodu":                     labelCode,
	"borsa-kodu":                    labelCode,
	"halka-arz-fiyati":              labelPrice,
	"halka-arz-fiyati-araligi":      labelPrice,
	"fiyat":                         labelPrice,
	"dagitim-yontemi":               labelDistributionMethod,
	"pay":                           labelShareAmount,
	"pay-miktari":                   labelShareAmount,
	"halka-arz-edilecek-pay":        labelShareAmount,
	"fiili-dolasimdaki-pay":         labelFreeFloatAmount,
	"fiili-dolasimdaki-pay-miktari": labelFreeFloatAmount,
	"fiili-dolasimdaki-pay-orani":   labelFreeFloatPercentage,
	"araci-kurum":                   labelIntermediary,
	"konsorsiyum":                   labelConsortiumMembers,
	"konsorsiyum-uyeleri":           labelConsortiumMembers,
	"bist-ilk-islem-tarihi":         labelFirstTradeDate,
	"ilk-islem-tarihi":              labelFirstTradeDate,
	"pazar":                         labelMarketSegment,
	"islem-gorecegi-pazar":          labelMarketSegment,
	"sehir":                         labelCompanyCity,
	"kurulus-tarihi":                labelCompanyFounded,
	"sirket-kurulus-tarihi":         labelCompanyFounded,
}
