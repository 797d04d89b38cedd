package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/services"
)

// ErrNotAListingsPage means the page lacks the listings container, as an anti-bot
// interstitial, a maintenance page or a changed layout would
var ErrNotAListingsPage = errors.New("page has no listings container")

// ParseListingsPage extracts the listing entries of one page and the absolute URL of the
// next page, empty when this is the last one
func ParseListingsPage(body []byte, pageURL string, sel Selectors, isDraft bool) ([]models.ListingEntry, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse listings page %s: %w", pageURL, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}
	if sel.ListingList != "" && doc.Find(sel.ListingList).Length() == 0 {
		return nil, "", fmt.Errorf("listings page %s: %w", pageURL, ErrNotAListingsPage)
	}

	var entries []models.ListingEntry
	doc.Find(sel.ListingItem).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(sel.ListingName).First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		entry := models.ListingEntry{
			Code:           strings.ToUpper(services.NormalizeTextContent(item.Find(sel.ListingCode).First().Text())),
			CompanyName:    services.NormalizeTextContent(link.Text()),
			NoticeDateText: services.NormalizeTextContent(item.Find(sel.ListingDate).First().Text()),
			SourceURL:      resolveURL(base, href),
			IsNew:          item.Find(sel.NewBadge).Length() > 0,
			HasResultsFlag: item.Find(sel.ResultsBadge).Length() > 0,
			IsDraft:        isDraft,
		}
		if logo := imageSource(item.Find(sel.ListingLogo).First()); logo != "" {
			resolved := resolveURL(base, logo)
			entry.LogoURL = &resolved
		}
		entries = append(entries, entry)
	})

	next := ""
	if href, ok := doc.Find(sel.NextPage).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		next = resolveURL(base, href)
	}
	return entries, next, nil
}

// ParseDetailPage extracts a detail snapshot from one listing page
func ParseDetailPage(body []byte, pageURL string, sel Selectors) (*models.DetailSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page %s: %w", pageURL, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	snapshot := &models.DetailSnapshot{}

	if code := services.NormalizeTextContent(doc.Find(sel.DetailCode).First().Text()); code != "" {
		snapshot.Code = stringPtr(strings.ToUpper(code))
	}
	for _, selector := range sel.RevisionMeta {
		if marker, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(marker) != "" {
			snapshot.RevisionMarker = stringPtr(strings.TrimSpace(marker))
			break
		}
	}

	doc.Find(sel.DetailRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		label := labelAliases[services.GenerateSlug(cells.First().Text())]
		value := services.NormalizeTextContent(cells.Eq(1).Text())
		if label == labelUnknown || value == "" {
			return
		}
		applyDetailRow(snapshot, label, value)
	})

	doc.Find(sel.SummaryBlock).Each(func(_ int, block *goquery.Selection) {
		summary := models.SummaryBlock{
			Title: services.NormalizeTextContent(block.Find(sel.SummaryTitle).First().Text()),
		}
		block.Find(sel.SummaryItem).Each(func(_ int, li *goquery.Selection) {
			if text := services.NormalizeTextContent(li.Text()); text != "" {
				summary.Items = append(summary.Items, text)
			}
		})
		if summary.Title != "" || len(summary.Items) > 0 {
			snapshot.SummaryBlocks = append(snapshot.SummaryBlocks, summary)
		}
	})

	var paragraphs []string
	doc.Find(sel.CompanyInfo).Each(func(_ int, p *goquery.Selection) {
		if text := services.NormalizeTextContent(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		snapshot.CompanyDescription = stringPtr(strings.Join(paragraphs, "\n\n"))
	}

	doc.Find(sel.Attachments).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := services.NormalizeTextContent(a.Text())
		if title == "" {
			title = href
		}
		snapshot.Attachments = append(snapshot.Attachments, models.Attachment{
			Title: title,
			URL:   resolveURL(base, href),
		})
	})

	if results := doc.Find(sel.ResultsContainer).First(); results.Length() > 0 && results.Find("table").Length() > 0 {
		if markup, err := goquery.OuterHtml(results); err == nil {
			snapshot.ResultsRawTable = &markup
		}
	}

	doc.Find(sel.ApplicationPlaces).Each(func(_ int, li *goquery.Selection) {
		name := services.NormalizeTextContent(li.Text())
		if name == "" {
			return
		}
		snapshot.ApplicationPlacesRaw = append(snapshot.ApplicationPlacesRaw, models.RawApplicationPlace{
			Name:               name,
			IsConsortiumMember: li.HasClass("konsorsiyum"),
			IsUnlistedVenue:    li.HasClass("listelenmemis"),
		})
	})

	return snapshot, nil
}

func applyDetailRow(snapshot *models.DetailSnapshot, label detailLabel, value string) {
	switch label {
	case labelCode:
		if snapshot.Code == nil {
			snapshot.Code = stringPtr(strings.ToUpper(value))
		}
	case labelPrice:
		snapshot.Price = stringPtr(value)
	case labelDistributionMethod:
		snapshot.DistributionMethod = stringPtr(value)
	case labelShareAmount:
		snapshot.ShareAmount = stringPtr(value)
	case labelFreeFloatAmount:
		snapshot.FreeFloatAmount = stringPtr(value)
	case labelFreeFloatPercentage:
		snapshot.FreeFloatPercentage = stringPtr(value)
	case labelIntermediary:
		snapshot.Intermediary = stringPtr(value)
	case labelConsortiumMembers:
		snapshot.ConsortiumMembers = stringPtr(value)
	case labelFirstTradeDate:
		snapshot.FirstTradeDate = stringPtr(value)
	case labelMarketSegment:
		snapshot.MarketSegment = stringPtr(value)
	case labelCompanyCity:
		snapshot.CompanyCity = stringPtr(value)
	case labelCompanyFounded:
		snapshot.CompanyFoundedDate = stringPtr(value)
	}
}

// imageSource prefers lazy-load attributes over src, which often holds a placeholder
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimSpace(href)
	}
	return base.ResolveReference(ref).String()
}

func stringPtr(s string) *string { return &s }
