package testutil

import (
	"context"
	"sync"
	"time"

	"cardlink/backend/internal/domain/analytics"
)

// Analytics is an in-memory analytics.Store.
type Analytics struct {
	mu     sync.Mutex
	Views  []analytics.ViewEvent
	Saves  []analytics.ContactSaveEvent
	Daily  map[string]*analytics.DailyViews
	Purged []string

	// DeleteErr, when set, fails DeleteUser.
	DeleteErr error
}

func NewAnalytics() *Analytics {
	return &Analytics{Daily: map[string]*analytics.DailyViews{}}
}

func (s *Analytics) AddView(_ context.Context, ev analytics.ViewEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Views = append(s.Views, ev)
	return nil
}

func (s *Analytics) AddContactSave(_ context.Context, ev analytics.ContactSaveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves = append(s.Saves, ev)
	return nil
}

func (s *Analytics) IncrementDaily(_ context.Context, t analytics.Target, date, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := analytics.DailyDocID(t.UserID, date)
	d, ok := s.Daily[id]
	if !ok {
		d = &analytics.DailyViews{UserID: t.UserID, CompanyID: t.CompanyID, Date: date}
		s.Daily[id] = d
	}
	switch field {
	case analytics.FieldViews:
		d.Views++
	case analytics.FieldContactSaves:
		d.ContactSaves++
	}
	return nil
}

func (s *Analytics) ListViews(_ context.Context, userID string, from, to time.Time) ([]analytics.ViewEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []analytics.ViewEvent{}
	for _, v := range s.Views {
		if v.UserID == userID && !v.Timestamp.Before(from) && v.Timestamp.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Analytics) ListContactSaves(_ context.Context, userID string, from, to time.Time) ([]analytics.ContactSaveEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []analytics.ContactSaveEvent{}
	for _, c := range s.Saves {
		if c.UserID == userID && !c.Timestamp.Before(from) && c.Timestamp.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Analytics) ListDailyViews(_ context.Context, companyID, fromDate, toDate string) ([]analytics.DailyViews, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []analytics.DailyViews{}
	for _, d := range s.Daily {
		if d.CompanyID == companyID && d.Date >= fromDate && d.Date <= toDate {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *Analytics) DeleteUser(_ context.Context, userID string) (analytics.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return analytics.DeleteResult{}, s.DeleteErr
	}
	var res analytics.DeleteResult

	views := s.Views[:0]
	for _, v := range s.Views {
		if v.UserID == userID {
			res.ViewEvents++
			continue
		}
		views = append(views, v)
	}
	s.Views = views

	saves := s.Saves[:0]
	for _, c := range s.Saves {
		if c.UserID == userID {
			res.ContactSaveEvents++
			continue
		}
		saves = append(saves, c)
	}
	s.Saves = saves

	for id, d := range s.Daily {
		if d.UserID == userID {
			delete(s.Daily, id)
			res.DailyViews++
		}
	}
	s.Purged = append(s.Purged, userID)
	return res, nil
}

// Deduper remembers keys forever.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]bool
	Err  error
}

func (d *Deduper) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return false, d.Err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}
