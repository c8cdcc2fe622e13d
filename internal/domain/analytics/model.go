package analytics

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Sources a profile can be opened from.
const (
	SourceLink   = "link"
	SourceQR     = "qr"
	SourceNFC    = "nfc"
	SourceShare  = "share"
	SourceDirect = "direct"
)

var Sources = []string{SourceLink, SourceQR, SourceNFC, SourceShare, SourceDirect}

// NormalizeSource maps anything unknown to "direct".
func NormalizeSource(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range Sources {
		if v == s {
			return s
		}
	}
	return SourceDirect
}

// ViewEvent is stored in viewEvents.
type ViewEvent struct {
	ID        string    `firestore:"-" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	CompanyID string    `firestore:"companyId" json:"companyId"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
	Source    string    `firestore:"source" json:"source"`
	Referrer  string    `firestore:"referrer,omitempty" json:"referrer,omitempty"`
	UserAgent string    `firestore:"userAgent,omitempty" json:"userAgent,omitempty"`
	VisitorID string    `firestore:"visitorId,omitempty" json:"visitorId,omitempty"`
}

// ContactSaveEvent is stored in contactSaveEvents.
type ContactSaveEvent struct {
	ID        string    `firestore:"-" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	CompanyID string    `firestore:"companyId" json:"companyId"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
	Source    string    `firestore:"source" json:"source"`
	VisitorID string    `firestore:"visitorId,omitempty" json:"visitorId,omitempty"`
}

// DailyViews is the per-cardholder rollup at userDailyViews/{userId}_{date}.
type DailyViews struct {
	UserID       string    `firestore:"userId" json:"userId"`
	CompanyID    string    `firestore:"companyId" json:"companyId"`
	Date         string    `firestore:"date" json:"date"`
	Views        int64     `firestore:"views" json:"views"`
	ContactSaves int64     `firestore:"contactSaves" json:"contactSaves"`
	UpdatedAt    time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Target identifies the cardholder an event belongs to.
type Target struct {
	UserID    string
	CompanyID string
}

type TrackInput struct {
	Source    string `json:"source"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"-"`
	VisitorID string `json:"visitorId,omitempty"`
}

func (in *TrackInput) Trim() {
	in.Source = NormalizeSource(in.Source)
	in.Referrer = truncate(strings.TrimSpace(in.Referrer), 500)
	in.UserAgent = truncate(strings.TrimSpace(in.UserAgent), 500)
	in.VisitorID = truncate(strings.TrimSpace(in.VisitorID), 100)
}

type TrackResult struct {
	Recorded  bool   `json:"recorded"`
	VisitorID string `json:"visitorId,omitempty"`
}

type Totals struct {
	Views          int     `json:"views"`
	UniqueVisitors int     `json:"uniqueVisitors"`
	ContactSaves   int     `json:"contactSaves"`
	ConversionRate float64 `json:"conversionRate"`
}

type CompanyTotals struct {
	Views          int     `json:"views"`
	ContactSaves   int     `json:"contactSaves"`
	ConversionRate float64 `json:"conversionRate"`
}

type Counts struct {
	Views        int `json:"views"`
	ContactSaves int `json:"contactSaves"`
}

// Change compares the window with the one of equal length before it.
type Change struct {
	PreviousViews        int     `json:"previousViews"`
	PreviousContactSaves int     `json:"previousContactSaves"`
	ViewsPercent         float64 `json:"viewsPercent"`
	ContactSavesPercent  float64 `json:"contactSavesPercent"`
}

type DailyPoint struct {
	Date         string `json:"date"`
	Views        int    `json:"views"`
	ContactSaves int    `json:"contactSaves"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
}

type UserAnalytics struct {
	UserID    string          `json:"userId"`
	Range     Window          `json:"range"`
	Totals    Totals          `json:"totals"`
	Change    Change          `json:"change"`
	Today     Counts          `json:"today"`
	ThisWeek  Counts          `json:"thisWeek"`
	ThisMonth Counts          `json:"thisMonth"`
	Daily     []DailyPoint    `json:"daily"`
	Sources   map[string]int  `json:"sources"`
	Referrers []ReferrerCount `json:"topReferrers"`
}

type CardholderRank struct {
	UserID         string  `json:"userId"`
	Views          int     `json:"views"`
	ContactSaves   int     `json:"contactSaves"`
	ConversionRate float64 `json:"conversionRate"`
}

type CompanyAnalytics struct {
	CompanyID         string           `json:"companyId"`
	Range             Window           `json:"range"`
	Totals            CompanyTotals    `json:"totals"`
	ActiveCardholders int              `json:"activeCardholders"`
	Daily             []DailyPoint     `json:"daily"`
	TopCardholders    []CardholderRank `json:"topCardholders"`
}

// DeleteResult counts removed documents per collection.
type DeleteResult struct {
	ViewEvents        int `json:"viewEvents"`
	ContactSaveEvents int `json:"contactSaveEvents"`
	DailyViews        int `json:"userDailyViews"`
}

func (r DeleteResult) Total() int {
	return r.ViewEvents + r.ContactSaveEvents + r.DailyViews
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
