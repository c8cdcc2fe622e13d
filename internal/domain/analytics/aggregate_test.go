package analytics

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
}

func TestSummarizeUser(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{Range: "7d"}, testNow, time.Time{})
	require.NoError(t, err)

	views := []ViewEvent{
		{Timestamp: at(15, 9), Source: "qr", VisitorID: "v1", Referrer: "https://www.linkedin.com/feed"},
		{Timestamp: at(15, 10), Source: "QR", VisitorID: "v1", Referrer: "https://linkedin.com/in/x"},
		{Timestamp: at(14, 10), Source: "nfc", VisitorID: "v2"},
		{Timestamp: at(13, 10), Source: "bogus"},
		{Timestamp: at(9, 10), Source: "link", Referrer: "https://mail.example.com/"},
		// previous window
		{Timestamp: at(5, 10), Source: "link"},
		{Timestamp: at(2, 0), Source: "link"},
		// before the previous window, still this month
		{Timestamp: at(1, 0), Source: "link"},
	}
	saves := []ContactSaveEvent{
		{Timestamp: at(15, 11), Source: "qr"},
		{Timestamp: at(10, 11), Source: "qr"},
		{Timestamp: at(3, 11), Source: "qr"},
	}

	out := SummarizeUser("u1", w, testNow, views, saves)

	assert.Equal(t, 5, out.Totals.Views)
	assert.Equal(t, 4, out.Totals.UniqueVisitors)
	assert.Equal(t, 2, out.Totals.ContactSaves)
	assert.Equal(t, 40.0, out.Totals.ConversionRate)

	assert.Equal(t, 2, out.Change.PreviousViews)
	assert.Equal(t, 1, out.Change.PreviousContactSaves)
	assert.Equal(t, 150.0, out.Change.ViewsPercent)
	assert.Equal(t, 100.0, out.Change.ContactSavesPercent)

	assert.Equal(t, Counts{Views: 2, ContactSaves: 1}, out.Today)
	assert.Equal(t, Counts{Views: 4, ContactSaves: 1}, out.ThisWeek)
	assert.Equal(t, Counts{Views: 8, ContactSaves: 3}, out.ThisMonth)

	assert.Equal(t, map[string]int{"qr": 2, "nfc": 1, "link": 1, "share": 0, "direct": 1}, out.Sources)
	assert.Equal(t, []ReferrerCount{{"linkedin.com", 2}, {"mail.example.com", 1}}, out.Referrers)

	require.Len(t, out.Daily, 7)
	assert.Equal(t, DailyPoint{Date: "2024-05-09", Views: 1}, out.Daily[0])
	assert.Equal(t, DailyPoint{Date: "2024-05-11"}, out.Daily[2])
	assert.Equal(t, DailyPoint{Date: "2024-05-15", Views: 2, ContactSaves: 1}, out.Daily[6])
}

func TestSummarizeUserEmpty(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{Range: "30d"}, testNow, time.Time{})
	require.NoError(t, err)

	out := SummarizeUser("u1", w, testNow, nil, nil)
	assert.Zero(t, out.Totals)
	assert.Len(t, out.Daily, 30)
	assert.Empty(t, out.Referrers)
	assert.NotNil(t, out.Referrers)
	assert.Len(t, out.Sources, len(Sources))
}

func TestSummarizeCompany(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{Range: "7d"}, testNow, time.Time{})
	require.NoError(t, err)

	rollups := []DailyViews{
		{UserID: "a", Date: "2024-05-15", Views: 10, ContactSaves: 1},
		{UserID: "a", Date: "2024-05-14", Views: 5},
		{UserID: "b", Date: "2024-05-15", Views: 15, ContactSaves: 3},
		{UserID: "c", Date: "2024-05-12", Views: 0, ContactSaves: 2},
		{UserID: "d", Date: "2024-05-01", Views: 99},
	}

	out := SummarizeCompany("c1", w, rollups)
	assert.Equal(t, CompanyTotals{Views: 30, ContactSaves: 6, ConversionRate: 20}, out.Totals)
	assert.Equal(t, 2, out.ActiveCardholders)
	require.Len(t, out.TopCardholders, 3)
	// a and b tie on views, saves break it
	assert.Equal(t, "b", out.TopCardholders[0].UserID)
	assert.Equal(t, 20.0, out.TopCardholders[0].ConversionRate)
	assert.Equal(t, "a", out.TopCardholders[1].UserID)
	assert.Equal(t, 6.7, out.TopCardholders[1].ConversionRate)
	assert.Equal(t, "c", out.TopCardholders[2].UserID)

	require.Len(t, out.Daily, 7)
	assert.Equal(t, DailyPoint{Date: "2024-05-15", Views: 25, ContactSaves: 4}, out.Daily[6])
}

func TestSummarizeCompanyTopTen(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{Range: "7d"}, testNow, time.Time{})
	require.NoError(t, err)

	var rollups []DailyViews
	for i := 0; i < 12; i++ {
		rollups = append(rollups, DailyViews{UserID: fmt.Sprintf("u%02d", i), Date: "2024-05-15", Views: int64(i)})
	}
	out := SummarizeCompany("c1", w, rollups)
	require.Len(t, out.TopCardholders, 10)
	assert.Equal(t, "u11", out.TopCardholders[0].UserID)
	assert.Equal(t, 11, out.ActiveCardholders)
}

func TestRateAndPercentChange(t *testing.T) {
	assert.Equal(t, 0.0, Rate(5, 0))
	assert.Equal(t, 33.3, Rate(1, 3))
	assert.Equal(t, 66.7, Rate(2, 3))

	assert.Equal(t, 0.0, PercentChange(0, 0))
	assert.Equal(t, 100.0, PercentChange(3, 0))
	assert.Equal(t, -50.0, PercentChange(1, 2))
	assert.Equal(t, 33.3, PercentChange(4, 3))
}

func TestChunk(t *testing.T) {
	items := make([]int, 1201)
	chunks := Chunk(items, batchLimit)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[2], 201)

	assert.Empty(t, Chunk([]int{}, 10))
	assert.Len(t, Chunk([]int{1, 2}, 0), 1)
}

func TestTrackInputTrim(t *testing.T) {
	in := TrackInput{
		Source:    " NFC ",
		Referrer:  string(make([]byte, 600)),
		VisitorID: "  v1  ",
	}
	in.Trim()
	assert.Equal(t, SourceNFC, in.Source)
	assert.Len(t, in.Referrer, 500)
	assert.Equal(t, "v1", in.VisitorID)

	// never split a rune
	in = TrackInput{UserAgent: strings.Repeat("€", 200)}
	in.Trim()
	assert.Len(t, in.UserAgent, 498)
	assert.True(t, utf8.ValidString(in.UserAgent))
}
