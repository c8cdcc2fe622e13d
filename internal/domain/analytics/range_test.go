package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday
var testNow = time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

func TestResolveWindowPresets(t *testing.T) {
	cases := []struct {
		key   string
		from  string
		days  int
		label string
	}{
		{"", "2024-04-16", 30, "30d"},
		{"7d", "2024-05-09", 7, "7d"},
		{"30D", "2024-04-16", 30, "30d"},
		{"90d", "2024-02-16", 90, "90d"},
		{"365d", "2023-05-17", 365, "365d"},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			w, err := ResolveWindow(RangeQuery{Range: tc.key}, testNow, time.Time{})
			require.NoError(t, err)
			assert.Equal(t, tc.label, w.Key)
			assert.Equal(t, tc.from, w.StartDate)
			assert.Equal(t, "2024-05-15", w.EndDate)
			assert.Equal(t, tc.days, w.Days)
			assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), w.To)
		})
	}
}

func TestResolveWindowAll(t *testing.T) {
	since := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	w, err := ResolveWindow(RangeQuery{Range: "all"}, testNow, since)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", w.StartDate)
	assert.Equal(t, 15, w.Days)

	w, err = ResolveWindow(RangeQuery{Range: "all"}, testNow, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", w.StartDate)
	assert.Equal(t, 1, w.Days)

	w, err = ResolveWindow(RangeQuery{Range: "all"}, testNow, testNow.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, w.Days)
}

func TestResolveWindowCustom(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{From: "2024-01-01", To: "2024-01-31"}, testNow, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, RangeCustom, w.Key)
	assert.Equal(t, 31, w.Days)
	assert.Equal(t, "2024-01-31", w.EndDate)

	// a full leap year is the longest allowed span
	w, err = ResolveWindow(RangeQuery{From: "2024-01-01", To: "2024-12-31"}, testNow, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, MaxRangeDays, w.Days)

	bad := []RangeQuery{
		{From: "2024-01-01"},
		{To: "2024-01-01"},
		{From: "01/01/2024", To: "2024-01-31"},
		{From: "2024-01-01", To: "yesterday"},
		{From: "2024-02-01", To: "2024-01-01"},
		{From: "2023-01-01", To: "2024-01-02"},
		{Range: "14d"},
	}
	for _, q := range bad {
		_, err := ResolveWindow(q, testNow, time.Time{})
		assert.True(t, IsErrBadRequest(err), "%+v", q)
	}
}

func TestWindowPrevious(t *testing.T) {
	w, err := ResolveWindow(RangeQuery{Range: "7d"}, testNow, time.Time{})
	require.NoError(t, err)

	prev := w.Previous()
	assert.Equal(t, "2024-05-02", prev.StartDate)
	assert.Equal(t, "2024-05-08", prev.EndDate)
	assert.Equal(t, w.From, prev.To)
	assert.True(t, prev.Contains(time.Date(2024, 5, 8, 23, 59, 0, 0, time.UTC)))
	assert.False(t, prev.Contains(w.From))
}

func TestPeriodStarts(t *testing.T) {
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(testNow))
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(time.Date(2024, 5, 13, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(testNow))

	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "2024-05-15", DayKey(time.Date(2024, 5, 16, 8, 0, 0, 0, tokyo)))
}
