package analytics

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	topReferrers   = 5
	topCardholders = 10
	batchLimit     = 500
)

// SummarizeUser reduces raw events into a cardholder report. Events may
// span more than w; only the relevant slices are counted for each figure.
func SummarizeUser(userID string, w Window, now time.Time, views []ViewEvent, saves []ContactSaveEvent) *UserAnalytics {
	prev := w.Previous()
	today := StartOfDay(now)
	week := StartOfWeek(now)
	month := StartOfMonth(now)

	out := &UserAnalytics{
		UserID:  userID,
		Range:   w,
		Sources: make(map[string]int, len(Sources)),
	}
	for _, src := range Sources {
		out.Sources[src] = 0
	}

	dailyViews := map[string]int{}
	dailySaves := map[string]int{}
	visitors := map[string]struct{}{}
	anonymous := 0
	referrers := map[string]int{}

	for _, v := range views {
		ts := v.Timestamp.UTC()
		switch {
		case w.Contains(ts):
			out.Totals.Views++
			dailyViews[DayKey(ts)]++
			out.Sources[NormalizeSource(v.Source)]++
			if v.VisitorID != "" {
				visitors[v.VisitorID] = struct{}{}
			} else {
				anonymous++
			}
			if ref := referrerHost(v.Referrer); ref != "" {
				referrers[ref]++
			}
		case prev.Contains(ts):
			out.Change.PreviousViews++
		}
		countPeriods(ts, today, week, month, &out.Today.Views, &out.ThisWeek.Views, &out.ThisMonth.Views)
	}

	for _, c := range saves {
		ts := c.Timestamp.UTC()
		switch {
		case w.Contains(ts):
			out.Totals.ContactSaves++
			dailySaves[DayKey(ts)]++
		case prev.Contains(ts):
			out.Change.PreviousContactSaves++
		}
		countPeriods(ts, today, week, month, &out.Today.ContactSaves, &out.ThisWeek.ContactSaves, &out.ThisMonth.ContactSaves)
	}

	// visitors without an id cannot be de-duplicated
	out.Totals.UniqueVisitors = len(visitors) + anonymous
	out.Totals.ConversionRate = Rate(out.Totals.ContactSaves, out.Totals.Views)
	out.Change.ViewsPercent = PercentChange(out.Totals.Views, out.Change.PreviousViews)
	out.Change.ContactSavesPercent = PercentChange(out.Totals.ContactSaves, out.Change.PreviousContactSaves)
	out.Daily = DailySeries(w, dailyViews, dailySaves)
	out.Referrers = rankReferrers(referrers, topReferrers)
	return out
}

// SummarizeCompany reduces daily rollups into a company report.
func SummarizeCompany(companyID string, w Window, rollups []DailyViews) *CompanyAnalytics {
	out := &CompanyAnalytics{
		CompanyID:      companyID,
		Range:          w,
		TopCardholders: []CardholderRank{},
	}

	dailyViews := map[string]int{}
	dailySaves := map[string]int{}
	perUser := map[string]*CardholderRank{}

	for _, r := range rollups {
		if r.Date < w.StartDate || r.Date > w.EndDate {
			continue
		}
		views, saves := int(r.Views), int(r.ContactSaves)
		out.Totals.Views += views
		out.Totals.ContactSaves += saves
		dailyViews[r.Date] += views
		dailySaves[r.Date] += saves

		rank, ok := perUser[r.UserID]
		if !ok {
			rank = &CardholderRank{UserID: r.UserID}
			perUser[r.UserID] = rank
		}
		rank.Views += views
		rank.ContactSaves += saves
	}

	for _, rank := range perUser {
		if rank.Views > 0 {
			out.ActiveCardholders++
		}
		rank.ConversionRate = Rate(rank.ContactSaves, rank.Views)
		out.TopCardholders = append(out.TopCardholders, *rank)
	}
	sort.Slice(out.TopCardholders, func(i, j int) bool {
		a, b := out.TopCardholders[i], out.TopCardholders[j]
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		if a.ContactSaves != b.ContactSaves {
			return a.ContactSaves > b.ContactSaves
		}
		return a.UserID < b.UserID
	})
	if len(out.TopCardholders) > topCardholders {
		out.TopCardholders = out.TopCardholders[:topCardholders]
	}

	out.Totals.ConversionRate = Rate(out.Totals.ContactSaves, out.Totals.Views)
	out.Daily = DailySeries(w, dailyViews, dailySaves)
	return out
}

// DailySeries emits one point per day of w, zero-filled.
func DailySeries(w Window, views, saves map[string]int) []DailyPoint {
	points := make([]DailyPoint, 0, w.Days)
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		key := DayKey(d)
		points = append(points, DailyPoint{Date: key, Views: views[key], ContactSaves: saves[key]})
	}
	return points
}

// Rate is saves per 100 views, one decimal.
func Rate(saves, views int) float64 {
	if views == 0 {
		return 0
	}
	return round1(float64(saves) / float64(views) * 100)
}

// PercentChange from prev to cur, one decimal. Growth from zero reads as 100.
func PercentChange(cur, prev int) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return round1(float64(cur-prev) / float64(prev) * 100)
}

// Chunk splits items into slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = batchLimit
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func countPeriods(ts, today, week, month time.Time, day, thisWeek, thisMonth *int) {
	if !ts.Before(today) {
		*day++
	}
	if !ts.Before(week) {
		*thisWeek++
	}
	if !ts.Before(month) {
		*thisMonth++
	}
}

func referrerHost(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	}
	return strings.ToLower(ref)
}

func rankReferrers(counts map[string]int, n int) []ReferrerCount {
	out := make([]ReferrerCount, 0, len(counts))
	for ref, c := range counts {
		out = append(out, ReferrerCount{Referrer: ref, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Referrer < out[j].Referrer
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
