package analytics

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	MaxRangeDays = 366
	DefaultRange = "30d"
	RangeAll     = "all"
	RangeCustom  = "custom"
)

var rangeDays = map[string]int{"7d": 7, "30d": 30, "90d": 90, "365d": 365}

// RangeQuery is the raw ?range=&from=&to= query.
type RangeQuery struct {
	Range string
	From  string
	To    string
}

// Window is a half-open [From, To) span of whole UTC days.
type Window struct {
	Key       string    `json:"key"`
	StartDate string    `json:"from"`
	EndDate   string    `json:"to"`
	Days      int       `json:"days"`
	From      time.Time `json:"-"`
	To        time.Time `json:"-"`
}

func newWindow(key string, from, to time.Time) Window {
	days := int(to.Sub(from).Hours() / 24)
	return Window{
		Key:       key,
		StartDate: from.Format(DateLayout),
		EndDate:   to.AddDate(0, 0, -1).Format(DateLayout),
		Days:      days,
		From:      from,
		To:        to,
	}
}

// Previous is the window of equal length ending where w starts.
func (w Window) Previous() Window {
	return newWindow(w.Key, w.From.AddDate(0, 0, -w.Days), w.From)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// ResolveWindow turns a query into a window ending today. "all" starts at
// since, which callers set to the profile or company creation time.
func ResolveWindow(q RangeQuery, now, since time.Time) (Window, error) {
	today := StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	from := strings.TrimSpace(q.From)
	to := strings.TrimSpace(q.To)
	if from != "" || to != "" {
		if from == "" || to == "" {
			return Window{}, fmt.Errorf("%w: from and to must be given together", ErrBadRequest)
		}
		start, err := time.Parse(DateLayout, from)
		if err != nil {
			return Window{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrBadRequest)
		}
		end, err := time.Parse(DateLayout, to)
		if err != nil {
			return Window{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrBadRequest)
		}
		if end.Before(start) {
			return Window{}, fmt.Errorf("%w: from must not be after to", ErrBadRequest)
		}
		w := newWindow(RangeCustom, start, end.AddDate(0, 0, 1))
		if w.Days > MaxRangeDays {
			return Window{}, fmt.Errorf("%w: range cannot exceed %d days", ErrBadRequest, MaxRangeDays)
		}
		return w, nil
	}

	key := strings.ToLower(strings.TrimSpace(q.Range))
	if key == "" {
		key = DefaultRange
	}
	if key == RangeAll {
		start := StartOfDay(since)
		if since.IsZero() || !start.Before(tomorrow) {
			start = today
		}
		return newWindow(RangeAll, start, tomorrow), nil
	}
	n, ok := rangeDays[key]
	if !ok {
		return Window{}, fmt.Errorf("%w: range must be one of 7d, 30d, 90d, 365d, all", ErrBadRequest)
	}
	return newWindow(key, today.AddDate(0, 0, -(n-1)), tomorrow), nil
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the Monday of t's week.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
