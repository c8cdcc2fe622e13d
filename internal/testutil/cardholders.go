// Package testutil provides in-memory stores for service and router tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cardlink/backend/internal/domain/cardholder"
)

// Cardholders is an in-memory cardholder.Store with the same uniqueness
// rules as the Firestore repository.
type Cardholders struct {
	mu     sync.Mutex
	byID   map[string]cardholder.Profile
	nextID int

	// Err, when set, is returned by every call.
	Err error
}

func NewCardholders() *Cardholders {
	return &Cardholders{byID: map[string]cardholder.Profile{}}
}

func (s *Cardholders) Create(_ context.Context, p cardholder.Profile) (*cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := s.checkUnique(p, ""); err != nil {
		return nil, err
	}
	s.nextID++
	p.ID = fmt.Sprintf("u%d", s.nextID)
	p.HasPassword = p.PasswordHash != ""
	s.byID[p.ID] = p
	return &p, nil
}

func (s *Cardholders) Get(_ context.Context, id string) (*cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: cardholder not found", cardholder.ErrNotFound)
	}
	return &p, nil
}

func (s *Cardholders) GetBySlug(_ context.Context, slug string) (*cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, p := range s.byID {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: profile not found", cardholder.ErrNotFound)
}

func (s *Cardholders) FindByEmail(_ context.Context, email string) (*cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, p := range s.byID {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: cardholder not found", cardholder.ErrNotFound)
}

// Update applies mutate to a copy and stores it only when it succeeds.
func (s *Cardholders) Update(_ context.Context, id string, mutate cardholder.MutateFunc) (*cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: cardholder not found", cardholder.ErrNotFound)
	}
	p.Socials = copySocials(p.Socials)
	if err := mutate(&p); err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.checkUnique(p, id); err != nil {
		return nil, err
	}
	p.HasPassword = p.PasswordHash != ""
	s.byID[id] = p
	return &p, nil
}

func (s *Cardholders) TouchLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: cardholder not found", cardholder.ErrNotFound)
	}
	p.LastLoginAt = &at
	s.byID[id] = p
	return nil
}

func (s *Cardholders) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: cardholder not found", cardholder.ErrNotFound)
	}
	delete(s.byID, id)
	return nil
}

func (s *Cardholders) List(_ context.Context, companyID string, in cardholder.ListInput) ([]cardholder.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []cardholder.Profile{}
	for _, p := range s.byID {
		if p.CompanyID != companyID || (in.ActiveOnly && !p.IsActive) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

// Len returns the number of stored profiles.
func (s *Cardholders) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Cardholders) checkUnique(p cardholder.Profile, selfID string) error {
	for id, other := range s.byID {
		if id == selfID {
			continue
		}
		if other.Slug == p.Slug {
			return fmt.Errorf("%w: %s", cardholder.ErrSlugTaken, p.Slug)
		}
		if other.Email == p.Email {
			return fmt.Errorf("%w: %s", cardholder.ErrEmailTaken, p.Email)
		}
	}
	return nil
}

func copySocials(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
