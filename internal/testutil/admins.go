package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cardlink/backend/internal/domain/admin"

	"firebase.google.com/go/v4/auth"
)

// Admins is an in-memory admin.Store.
type Admins struct {
	mu        sync.Mutex
	admins    map[string]admin.Admin
	companies map[string]admin.Company
	nextID    int
}

func NewAdmins() *Admins {
	return &Admins{admins: map[string]admin.Admin{}, companies: map[string]admin.Company{}}
}

func (s *Admins) GetAdmin(_ context.Context, uid string) (*admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[uid]
	if !ok {
		return nil, fmt.Errorf("%w: admin not found", admin.ErrNotFound)
	}
	return &a, nil
}

func (s *Admins) PutAdmin(_ context.Context, a admin.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.UID] = a
	return nil
}

func (s *Admins) ListAdmins(_ context.Context, companyID string) ([]admin.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []admin.Admin{}
	for _, a := range s.admins {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Admins) GetCompany(_ context.Context, companyID string) (*admin.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: company not found", admin.ErrNotFound)
	}
	return &c, nil
}

func (s *Admins) CreateCompany(_ context.Context, c admin.Company) (*admin.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		s.nextID++
		c.ID = fmt.Sprintf("c%d", s.nextID)
	}
	s.companies[c.ID] = c
	return &c, nil
}

// ErrUserNotFound is what Directory returns for unknown emails. It does not
// satisfy auth.IsUserNotFound.
var ErrUserNotFound = errors.New("user not found")

// Directory is an in-memory Firebase Auth user directory.
type Directory struct {
	mu     sync.Mutex
	Users  map[string]*auth.UserRecord // by email
	Claims map[string]map[string]interface{}
}

func NewDirectory() *Directory {
	return &Directory{Users: map[string]*auth.UserRecord{}, Claims: map[string]map[string]interface{}{}}
}

// AddUser registers a Firebase user.
func (d *Directory) AddUser(uid, email, displayName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Users[email] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, Email: email, DisplayName: displayName}}
}

func (d *Directory) GetUserByEmail(_ context.Context, email string) (*auth.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.Users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (d *Directory) SetCustomUserClaims(_ context.Context, uid string, claims map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Claims[uid] = claims
	return nil
}

// ClaimsFor returns the last claims set for uid.
func (d *Directory) ClaimsFor(uid string) map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Claims[uid]
}

// Tokens is a fake ID token verifier: the bearer token is the uid.
type Tokens struct {
	Valid map[string]bool
}

func (t Tokens) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if !t.Valid[idToken] {
		return nil, fmt.Errorf("invalid id token")
	}
	return &auth.Token{UID: idToken, Claims: map[string]interface{}{}}, nil
}
