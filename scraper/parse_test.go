package scraper

import (
	"testing"

	"github.com/fenilmodi00/ipo-catalog/models"
	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetailPage(t *testing.T) {
	snapshot, err := ParseDetailPage([]byte(detailPage), "https://source.test/alfa-enerji/", DefaultSelectors())
	require.NoError(t, err)

	require.NotNil(t, snapshot.Price)
	assert.Equal(t, "21,50 TL", *snapshot.Price)
	require.NotNil(t, snapshot.DistributionMethod)
	assert.Equal(t, "Eşit Dağıtım", *snapshot.DistributionMethod)
	require.NotNil(t, snapshot.ShareAmount)
	assert.Equal(t, "52.000.000 Lot", *snapshot.ShareAmount)
	require.NotNil(t, snapshot.Intermediary)
	assert.Equal(t, "Garanti BBVA Yatırım", *snapshot.Intermediary)
	require.NotNil(t, snapshot.FreeFloatPercentage)
	assert.Equal(t, "%25,4", *snapshot.FreeFloatPercentage)
	require.NotNil(t, snapshot.MarketSegment)
	assert.Equal(t, "Yıldız Pazar", *snapshot.MarketSegment)
	assert.Nil(t, snapshot.FirstTradeDate)

	assert.Equal(t, []models.SummaryBlock{
		{Title: "Fonun Kullanım Yeri", Items: []string{"%60 Yatırım", "%40 İşletme Sermayesi"}},
	}, snapshot.SummaryBlocks)

	require.NotNil(t, snapshot.CompanyDescription)
	assert.Equal(t, "Alfa Enerji güneş santralleri işletir.\n\nMerkez İzmir.", *snapshot.CompanyDescription)
	assert.Equal(t, []models.Attachment{
		{Title: "İzahname", URL: "https://source.test/docs/izahname.pdf"},
	}, snapshot.Attachments)

	assert.Equal(t, []models.RawApplicationPlace{
		{Name: "Garanti BBVA Yatırım", IsConsortiumMember: true},
		{Name: "Ziraat Bankası", IsUnlistedVenue: true},
	}, snapshot.ApplicationPlacesRaw)

	require.NotNil(t, snapshot.ResultsRawTable)
	result, err := services.ParseResultsTable(*snapshot.ResultsRawTable)
	require.NoError(t, err)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, "Bireysel", result.Summary[0].Segment)
	assert.Equal(t, []string{"Eşit dağıtım."}, result.Notes)
}

func TestParseDetailPageWithoutMarker(t *testing.T) {
	snapshot, err := ParseDetailPage([]byte(`<html><body><p>Taslak</p></body></html>`), "https://source.test/x/", DefaultSelectors())
	require.NoError(t, err)
	assert.Nil(t, snapshot.RevisionMarker)
	assert.Nil(t, snapshot.Code)
	assert.Nil(t, snapshot.ResultsRawTable)
}

func TestParseListingsPageLastPage(t *testing.T) {
	entries, next, err := ParseListingsPage([]byte(listingsPageTwo), "https://source.test/page/2/", DefaultSelectors(), false)
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://source.test/gama-holding/", entries[0].SourceURL)
	assert.Equal(t, "", entries[1].Code)
}

func TestParseListingsPageWithoutContainer(t *testing.T) {
	_, _, err := ParseListingsPage([]byte(`<html><body><p>Bakımdayız</p></body></html>`), "https://source.test/", DefaultSelectors(), true)
	assert.ErrorIs(t, err, ErrNotAListingsPage)
}
