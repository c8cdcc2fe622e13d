package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/validate"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

const resourceAdmin = "admin"

// Directory is the subset of the Firebase Auth admin client used here.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

// LimitChecker enforces the company's plan limits.
type LimitChecker interface {
	CheckPlanLimit(ctx context.Context, companyID, resource string) error
}

type Service struct {
	store  Store
	dir    Directory
	limits LimitChecker
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, dir Directory, log *zap.Logger) *Service {
	return &Service{
		store: store,
		dir:   dir,
		log:   logging.OrNop(log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetLimitChecker sets the plan limit checker (billing is optional)
func (s *Service) SetLimitChecker(l LimitChecker) {
	s.limits = l
}

// Resolve returns the active admin record for a verified Firebase uid.
func (s *Service) Resolve(ctx context.Context, uid string) (*Admin, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrUnauthorized)
	}
	a, err := s.store.GetAdmin(ctx, uid)
	if err != nil {
		if IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, fmt.Errorf("%w: admin account is disabled", ErrForbidden)
	}
	return a, nil
}

// Bootstrap creates a company with uid as its owner. Used by cmd/set-admin.
func (s *Service) Bootstrap(ctx context.Context, uid, email, companyName string) (*Admin, *Company, error) {
	uid = strings.TrimSpace(uid)
	companyName = strings.TrimSpace(companyName)
	if uid == "" || companyName == "" {
		return nil, nil, fmt.Errorf("%w: uid and company name are required", ErrBadRequest)
	}

	if existing, err := s.store.GetAdmin(ctx, uid); err == nil {
		return nil, nil, fmt.Errorf("%w: %s is already an admin of company %s", ErrConflict, uid, existing.CompanyID)
	} else if !IsErrNotFound(err) {
		return nil, nil, err
	}

	now := s.now()
	company, err := s.store.CreateCompany(ctx, Company{
		Name:      companyName,
		Plan:      "free",
		CreatedBy: uid,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, nil, err
	}

	a := Admin{
		UID:       uid,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CompanyID: company.ID,
		Role:      RoleOwner,
		IsActive:  true,
		CreatedBy: uid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutAdmin(ctx, a); err != nil {
		return nil, nil, err
	}
	s.syncClaims(ctx, a)

	return &a, company, nil
}

// AddAdmin registers an existing Firebase user as an admin of the caller's
// company. Owners only.
func (s *Service) AddAdmin(ctx context.Context, caller *Admin, in AddAdminInput) (*Admin, error) {
	if caller == nil || !caller.IsOwner() {
		return nil, fmt.Errorf("%w: only owners can add admins", ErrForbidden)
	}
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if in.Role == "" {
		in.Role = RoleAdmin
	}
	if s.dir == nil {
		return nil, fmt.Errorf("auth directory is not configured")
	}

	if s.limits != nil {
		if err := s.limits.CheckPlanLimit(ctx, caller.CompanyID, resourceAdmin); err != nil {
			return nil, err
		}
	}

	user, err := s.dir.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, fmt.Errorf("%w: no account exists for %s", ErrNotFound, in.Email)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.now()
	a := Admin{
		UID:         user.UID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		CompanyID:   caller.CompanyID,
		Role:        in.Role,
		IsActive:    true,
		CreatedBy:   caller.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a.DisplayName == "" {
		a.DisplayName = user.DisplayName
	}

	existing, err := s.store.GetAdmin(ctx, user.UID)
	switch {
	case err == nil && existing.CompanyID != caller.CompanyID:
		return nil, fmt.Errorf("%w: %s already administers another company", ErrConflict, in.Email)
	case err == nil && existing.IsActive:
		return nil, fmt.Errorf("%w: %s is already an admin", ErrConflict, in.Email)
	case err == nil:
		a.CreatedAt = existing.CreatedAt
	case !IsErrNotFound(err):
		return nil, err
	}

	if err := s.store.PutAdmin(ctx, a); err != nil {
		return nil, err
	}
	s.syncClaims(ctx, a)

	return &a, nil
}

// SetAdminActive enables or disables another admin of the caller's company.
func (s *Service) SetAdminActive(ctx context.Context, caller *Admin, uid string, active bool) (*Admin, error) {
	if caller == nil || !caller.IsOwner() {
		return nil, fmt.Errorf("%w: only owners can change admins", ErrForbidden)
	}
	if uid == caller.UID {
		return nil, fmt.Errorf("%w: cannot change your own access", ErrBadRequest)
	}
	a, err := s.store.GetAdmin(ctx, uid)
	if err != nil {
		return nil, err
	}
	if a.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("%w: admin belongs to another company", ErrForbidden)
	}
	if a.IsActive == active {
		return a, nil
	}
	if active && s.limits != nil {
		if err := s.limits.CheckPlanLimit(ctx, caller.CompanyID, resourceAdmin); err != nil {
			return nil, err
		}
	}
	a.IsActive = active
	a.UpdatedAt = s.now()
	if err := s.store.PutAdmin(ctx, *a); err != nil {
		return nil, err
	}
	s.syncClaims(ctx, *a)
	return a, nil
}

func (s *Service) ListAdmins(ctx context.Context, caller *Admin) ([]Admin, error) {
	if caller == nil {
		return nil, fmt.Errorf("%w: admin required", ErrForbidden)
	}
	return s.store.ListAdmins(ctx, caller.CompanyID)
}

func (s *Service) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrBadRequest)
	}
	return s.store.GetCompany(ctx, companyID)
}

// syncClaims mirrors the admin record into custom claims so clients can
// route without a Firestore read. The admins doc stays authoritative.
func (s *Service) syncClaims(ctx context.Context, a Admin) {
	if s.dir == nil {
		return
	}
	claims := map[string]interface{}{
		"admin":           a.IsActive,
		"role":            a.Role,
		"companyId":       a.CompanyID,
		"claimsUpdatedAt": s.now().Unix(),
	}
	if err := s.dir.SetCustomUserClaims(ctx, a.UID, claims); err != nil {
		s.log.Warn("failed to set admin claims", zap.String("uid", a.UID), zap.Error(err))
	}
}
