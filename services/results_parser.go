package services

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-catalog/models"
)

// ParseResultsTable turns the raw allotment results markup into summary rows and notes.
// Expected columns: segment, applicant count, allotted units, allotment ratio.
// Single-cell rows, footer rows and paragraphs or list items around the table become notes.
func ParseResultsTable(raw string) (*models.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results markup: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("results markup has no table")
	}

	result := &models.Result{Summary: []models.ResultSummaryRow{}, Notes: []string{}}

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		if row.Closest("tfoot").Length() > 0 || cells.Length() < 2 {
			if note := joinCellText(cells); note != "" {
				result.Notes = append(result.Notes, note)
			}
			return
		}

		if row.ChildrenFiltered("td").Length() == 0 {
			return
		}

		cellText := func(n int) string {
			if n >= cells.Length() {
				return ""
			}
			return NormalizeTextContent(cells.Eq(n).Text())
		}

		applicants := ParseCount(cellText(1))
		if i == 0 && applicants == nil {
			// header row written with td cells
			return
		}

		result.Summary = append(result.Summary, models.ResultSummaryRow{
			Segment:        cellText(0),
			ApplicantCount: applicants,
			AllottedUnits:  ParseCount(cellText(2)),
			AllotmentRatio: cellText(3),
		})
	})

	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if s.Closest("table").Length() > 0 {
			return
		}
		if note := NormalizeTextContent(s.Text()); note != "" {
			result.Notes = append(result.Notes, note)
		}
	})

	return result, nil
}

func joinCellText(cells *goquery.Selection) string {
	var parts []string
	cells.Each(func(_ int, cell *goquery.Selection) {
		if text := NormalizeTextContent(cell.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
