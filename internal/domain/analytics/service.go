package analytics

import (
	"context"
	"fmt"
	"time"

	"cardlink/backend/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deduper reports whether key is new within window.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Recorder receives counters for recorded events.
type Recorder interface {
	ObserveView(source string)
	ObserveContactSave(source string)
	ObservePurge(res DeleteResult)
}

type Service struct {
	store   Store
	deduper Deduper
	window  time.Duration
	metrics Recorder
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{
		store: store,
		log:   logging.OrNop(log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetDeduper enables repeat-view suppression for the given window.
func (s *Service) SetDeduper(d Deduper, window time.Duration) {
	s.deduper = d
	s.window = window
}

func (s *Service) SetMetrics(m Recorder) { s.metrics = m }

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RecordView stores a profile view and bumps the day's rollup. Repeat views
// by a known visitor inside the de-duplication window are acknowledged
// without being stored.
func (s *Service) RecordView(ctx context.Context, t Target, in TrackInput) (*TrackResult, error) {
	if t.UserID == "" || t.CompanyID == "" {
		return nil, fmt.Errorf("%w: profile is required", ErrBadRequest)
	}
	in.Trim()

	known := in.VisitorID != ""
	if !known {
		in.VisitorID = uuid.NewString()
	}

	if known && s.deduper != nil && s.window > 0 {
		first, err := s.deduper.FirstSeen(ctx, "view:"+t.UserID+":"+in.VisitorID, s.window)
		if err != nil {
			s.log.Warn("view dedupe unavailable", zap.String("userId", t.UserID), zap.Error(err))
		} else if !first {
			return &TrackResult{Recorded: false, VisitorID: in.VisitorID}, nil
		}
	}

	now := s.now()
	ev := ViewEvent{
		UserID:    t.UserID,
		CompanyID: t.CompanyID,
		Timestamp: now,
		Source:    in.Source,
		Referrer:  in.Referrer,
		UserAgent: in.UserAgent,
		VisitorID: in.VisitorID,
	}
	if err := s.store.AddView(ctx, ev); err != nil {
		return nil, err
	}
	if err := s.store.IncrementDaily(ctx, t, DayKey(now), FieldViews); err != nil {
		s.log.Warn("failed to update daily views", zap.String("userId", t.UserID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.ObserveView(in.Source)
	}
	return &TrackResult{Recorded: true, VisitorID: in.VisitorID}, nil
}

// RecordContactSave stores a "save contact" and bumps the day's rollup.
func (s *Service) RecordContactSave(ctx context.Context, t Target, in TrackInput) (*TrackResult, error) {
	if t.UserID == "" || t.CompanyID == "" {
		return nil, fmt.Errorf("%w: profile is required", ErrBadRequest)
	}
	in.Trim()

	now := s.now()
	ev := ContactSaveEvent{
		UserID:    t.UserID,
		CompanyID: t.CompanyID,
		Timestamp: now,
		Source:    in.Source,
		VisitorID: in.VisitorID,
	}
	if err := s.store.AddContactSave(ctx, ev); err != nil {
		return nil, err
	}
	if err := s.store.IncrementDaily(ctx, t, DayKey(now), FieldContactSaves); err != nil {
		s.log.Warn("failed to update daily contact saves", zap.String("userId", t.UserID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.ObserveContactSave(in.Source)
	}
	return &TrackResult{Recorded: true, VisitorID: in.VisitorID}, nil
}

// GetUserAnalytics builds a cardholder's report. since anchors range=all.
func (s *Service) GetUserAnalytics(ctx context.Context, userID string, since time.Time, q RangeQuery) (*UserAnalytics, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrBadRequest)
	}
	now := s.now()
	w, err := ResolveWindow(q, now, since)
	if err != nil {
		return nil, err
	}

	// today / this week / this month are reported whatever the range
	from := earliest(w.Previous().From, StartOfWeek(now), StartOfMonth(now))
	to := w.To
	if tomorrow := StartOfDay(now).AddDate(0, 0, 1); tomorrow.After(to) {
		to = tomorrow
	}

	var (
		views []ViewEvent
		saves []ContactSaveEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = s.store.ListViews(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		saves, err = s.store.ListContactSaves(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return SummarizeUser(userID, w, now, views, saves), nil
}

// GetAnalytics builds the company-wide report from daily rollups.
func (s *Service) GetAnalytics(ctx context.Context, companyID string, since time.Time, q RangeQuery) (*CompanyAnalytics, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrBadRequest)
	}
	w, err := ResolveWindow(q, s.now(), since)
	if err != nil {
		return nil, err
	}
	rollups, err := s.store.ListDailyViews(ctx, companyID, w.StartDate, w.EndDate)
	if err != nil {
		return nil, err
	}
	return SummarizeCompany(companyID, w, rollups), nil
}

// DeleteUserAnalytics removes a cardholder's events and rollups.
func (s *Service) DeleteUserAnalytics(ctx context.Context, userID string) (DeleteResult, error) {
	if userID == "" {
		return DeleteResult{}, fmt.Errorf("%w: userId is required", ErrBadRequest)
	}
	res, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		s.log.Error("analytics purge incomplete",
			zap.String("userId", userID),
			zap.Int("deleted", res.Total()),
			zap.Error(err))
		return res, err
	}
	if s.metrics != nil {
		s.metrics.ObservePurge(res)
	}
	s.log.Info("analytics purged",
		zap.String("userId", userID),
		zap.Int("viewEvents", res.ViewEvents),
		zap.Int("contactSaveEvents", res.ContactSaveEvents),
		zap.Int("userDailyViews", res.DailyViews))
	return res, nil
}

// PurgeUser lets the cardholder service clear analytics before a delete.
func (s *Service) PurgeUser(ctx context.Context, userID string) error {
	_, err := s.DeleteUserAnalytics(ctx, userID)
	return err
}

func earliest(ts ...time.Time) time.Time {
	out := ts[0]
	for _, t := range ts[1:] {
		if t.Before(out) {
			out = t
		}
	}
	return out
}
